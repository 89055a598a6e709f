package models

import "encoding/json"

// Event tags carried in the envelope "type" field.
const (
	TagConversationCreated  = "conversation.created"
	TagConversationAssigned = "conversation.assigned"
	TagConversationDeleted  = "conversation.deleted"
	TagMessageCreated       = "message.created"
	TagReactionUpdated      = "reaction.updated"
)

// IsConversationTag reports whether tag belongs to the conversation/message
// event family. Every other tag is a personal notification when it arrives
// on the personal channel and malformed anywhere else.
func IsConversationTag(tag string) bool {
	switch tag {
	case TagConversationCreated, TagConversationAssigned, TagConversationDeleted,
		TagMessageCreated, TagReactionUpdated:
		return true
	default:
		return false
	}
}

// Envelope is one inbound frame, tagged with the channel it arrived on.
// It is consumed immediately and never stored.
type Envelope struct {
	Type          string          `json:"type"`
	OriginChannel string          `json:"-"`
	Data          json.RawMessage `json:"data"`
}
