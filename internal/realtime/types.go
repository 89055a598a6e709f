package realtime

import (
	"time"

	"realtime-sync/internal/connection"
	"realtime-sync/internal/models"
	"realtime-sync/internal/notification"
)

type SendMessageInput struct {
	ConversationID string
	Content        string
	SenderRole     string
}

// Callbacks are the UI hooks. Any of them may be nil. They run on the
// engine loop and must not call back into the UseCase.
type Callbacks struct {
	OnIncomingMessage      func(models.Message)
	OnReactionEvent        func(models.ReactionEvent)
	OnNotificationDecision func(notification.Decision)
	OnSendFailed           func(models.Message)
}

type Options struct {
	SeenCapacity               int
	PendingTimeout             time.Duration
	MaxMessagesPerConversation int
	ActiveConversationID       string
	Connection                 connection.Options
	Notification               notification.Options
}

// Stats is a point-in-time snapshot of the engine.
type Stats struct {
	Status             string   `json:"status"`
	ActiveConversation string   `json:"active_conversation,omitempty"`
	Subscriptions      []string `json:"subscriptions"`
	Unread             int      `json:"unread"`
	Pending            int      `json:"pending"`
	Seen               int      `json:"seen"`
	Queued             int      `json:"queued"`
}
