package event

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"realtime-sync/internal/models"
)

// Backends disagree on field names. Every alias is resolved here, once, so
// the rest of the engine only sees the canonical models.
var (
	messageIDPaths      = []string{"id", "messageId", "message_id", "_id"}
	clientMsgIDPaths    = []string{"clientMsgId", "client_msg_id", "clientMessageId", "tempId"}
	conversationIDPaths = []string{"conversationId", "conversation_id", "roomId", "conversation.id"}
	senderIDPaths       = []string{"senderId", "sender_id", "sender.id", "userId", "fromUserId"}
	senderRolePaths     = []string{"senderRole", "sender_role", "sender.role", "role"}
	contentPaths        = []string{"content", "text", "body"}
	createdAtPaths      = []string{"createdAt", "created_at", "timestamp", "sentAt"}

	conversationRecordIDPaths = []string{"id", "conversationId", "conversation_id", "_id"}
	previewPaths              = []string{"lastMessagePreview", "lastMessage.content", "lastMessage", "last_message"}
	agentIDPaths              = []string{"assignedAgentId", "assigned_agent_id", "agentId", "assignee.id"}

	lifecycleStampPaths = []string{"assignedAt", "assigned_at", "deletedAt", "deleted_at", "updatedAt", "updated_at", "timestamp"}

	reactionMessageIDPaths = []string{"messageId", "message_id", "id"}

	notificationTypePaths     = []string{"notificationType", "notification_type", "type", "kind", "event"}
	notificationReceiverPaths = []string{"receiverId", "receiver_id", "recipientId", "recipient_id", "userId", "user_id", "targetUserId", "to"}
	notificationLinkPaths     = []string{"link", "url", "href", "redirectUrl"}
	notificationMessagePaths  = []string{"message", "content", "body", "title"}
)

func first(root gjson.Result, paths []string) gjson.Result {
	for _, p := range paths {
		if r := root.Get(p); r.Exists() && r.Type != gjson.Null && r.String() != "" {
			return r
		}
	}
	return gjson.Result{}
}

func firstString(root gjson.Result, paths []string) string {
	return strings.TrimSpace(first(root, paths).String())
}

// nested returns data[key] when it is an object, otherwise data itself.
func nested(data []byte, key string) gjson.Result {
	root := gjson.ParseBytes(data)
	if inner := root.Get(key); inner.IsObject() {
		return inner
	}
	return root
}

func parseTime(r gjson.Result) time.Time {
	switch r.Type {
	case gjson.Number:
		n := r.Int()
		if n <= 0 {
			return time.Time{}
		}
		// Seconds and milliseconds both show up in the wild.
		if n < 1e12 {
			return time.Unix(n, 0).UTC()
		}
		return time.UnixMilli(n).UTC()
	case gjson.String:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, r.Str); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

func stringList(r gjson.Result, itemPaths ...string) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	for _, item := range r.Array() {
		if item.IsObject() {
			if v := firstString(item, itemPaths); v != "" {
				out = append(out, v)
			}
			continue
		}
		if v := strings.TrimSpace(item.String()); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// NormalizeMessage maps a message.created payload onto models.Message.
// The payload may be flat or wrapped in a "message" object. Missing fields
// are left empty; the classifier decides what is required.
func NormalizeMessage(env models.Envelope) models.Message {
	root := nested(env.Data, "message")

	msg := models.Message{
		ID:             firstString(root, messageIDPaths),
		ClientMsgID:    firstString(root, clientMsgIDPaths),
		ConversationID: firstString(root, conversationIDPaths),
		SenderID:       firstString(root, senderIDPaths),
		SenderRole:     firstString(root, senderRolePaths),
		CreatedAt:      parseTime(first(root, createdAtPaths)),
	}
	if c := first(root, contentPaths); c.Exists() {
		msg.Content = c.String()
	} else if m := root.Get("message"); m.Type == gjson.String {
		msg.Content = m.Str
	}
	if msg.ClientMsgID == "" {
		// Some backends echo the correlation id only at the envelope level.
		msg.ClientMsgID = firstString(gjson.ParseBytes(env.Data), clientMsgIDPaths)
	}
	if msg.ConversationID == "" {
		msg.ConversationID, _ = models.ConversationIDFromChannel(env.OriginChannel)
	}
	return msg
}

// NormalizeConversation maps conversation lifecycle payloads.
func NormalizeConversation(env models.Envelope) models.Conversation {
	root := nested(env.Data, "conversation")

	conv := models.Conversation{
		ID:                 firstString(root, conversationRecordIDPaths),
		Participants:       stringList(root.Get("participants"), "id", "userId"),
		LastMessagePreview: firstString(root, previewPaths),
		AssignedAgentID:    firstString(root, agentIDPaths),
		LastMessageAt:      parseTime(first(root, []string{"lastMessageAt", "updatedAt", "updated_at"})),
	}
	if conv.ID == "" {
		conv.ID, _ = models.ConversationIDFromChannel(env.OriginChannel)
	}
	return conv
}

// NormalizeReaction maps reaction.updated payloads.
func NormalizeReaction(env models.Envelope) models.ReactionEvent {
	root := gjson.ParseBytes(env.Data)

	ev := models.ReactionEvent{
		MessageID:      firstString(root, reactionMessageIDPaths),
		ConversationID: firstString(root, conversationIDPaths),
		Reactions:      stringList(root.Get("reactions"), "emoji", "type", "reaction"),
	}
	if ev.ConversationID == "" {
		ev.ConversationID, _ = models.ConversationIDFromChannel(env.OriginChannel)
	}
	if ev.Reactions == nil {
		ev.Reactions = []string{}
	}
	return ev
}

// NormalizeNotification maps a personal notification. The envelope tag is
// used as the notification type when the payload does not carry one.
func NormalizeNotification(env models.Envelope) models.NotificationEvent {
	root := nested(env.Data, "notification")

	ev := models.NotificationEvent{
		Type:       firstString(root, notificationTypePaths),
		ReceiverID: firstString(root, notificationReceiverPaths),
		Link:       firstString(root, notificationLinkPaths),
		Message:    firstString(root, notificationMessagePaths),
	}
	if ev.Type == "" {
		ev.Type = env.Type
	}
	return ev
}

// LifecycleStamp returns the server event time of a lifecycle payload as
// unix milliseconds, or "" when the payload carries none.
func LifecycleStamp(env models.Envelope) string {
	root := nested(env.Data, "conversation")
	t := parseTime(first(root, lifecycleStampPaths))
	if t.IsZero() {
		t = parseTime(first(gjson.ParseBytes(env.Data), lifecycleStampPaths))
	}
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}
