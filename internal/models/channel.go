package models

import "strings"

// Channel keys understood by the router and the transports.
const (
	ChannelPersonalNotifications = "personal-notifications"
	ChannelBroadcastSupport      = "broadcast-support"

	conversationChannelPrefix = "conversation:"
)

// ConversationChannel returns the scoped channel key for a conversation.
func ConversationChannel(conversationID string) string {
	return conversationChannelPrefix + conversationID
}

// ConversationIDFromChannel extracts the id from a conversation:<id> key.
func ConversationIDFromChannel(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, conversationChannelPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// IsKnownChannel reports whether key is one of the three channel shapes.
func IsKnownChannel(key string) bool {
	if key == ChannelPersonalNotifications || key == ChannelBroadcastSupport {
		return true
	}
	_, ok := ConversationIDFromChannel(key)
	return ok
}
