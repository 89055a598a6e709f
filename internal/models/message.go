package models

import "time"

// MessageStatus tracks an optimistic message through confirmation.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "PENDING"
	MessageStatusConfirmed MessageStatus = "CONFIRMED"
	MessageStatusFailed    MessageStatus = "FAILED"
)

// Message is the canonical chat message shape. ID is empty until the
// server confirms the message; ClientMsgID is set on every message this
// client originated.
type Message struct {
	ID             string        `json:"id,omitempty"`
	ClientMsgID    string        `json:"clientMsgId,omitempty"`
	ConversationID string        `json:"conversationId"`
	SenderID       string        `json:"senderId"`
	SenderRole     string        `json:"senderRole,omitempty"`
	Content        string        `json:"content"`
	CreatedAt      time.Time     `json:"createdAt"`
	Status         MessageStatus `json:"-"`
}

// IsPending reports whether the message still awaits server confirmation.
func (m Message) IsPending() bool {
	return m.Status == MessageStatusPending
}

// Conversation is a support conversation as seen by this client.
type Conversation struct {
	ID                 string    `json:"id"`
	Participants       []string  `json:"participants,omitempty"`
	LastMessagePreview string    `json:"lastMessagePreview,omitempty"`
	LastMessageAt      time.Time `json:"lastMessageAt,omitempty"`
	AssignedAgentID    string    `json:"assignedAgentId,omitempty"`
}

// ReactionEvent is a transient signal; only the latest one is exposed.
type ReactionEvent struct {
	MessageID      string   `json:"messageId"`
	ConversationID string   `json:"conversationId"`
	Reactions      []string `json:"reactions"`
}

// NotificationEvent is a personal notification addressed to ReceiverID.
type NotificationEvent struct {
	Type       string `json:"type"`
	ReceiverID string `json:"receiverId"`
	Link       string `json:"link,omitempty"`
	Message    string `json:"message,omitempty"`
}
