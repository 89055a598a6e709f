package event

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"realtime-sync/internal/models"
	"realtime-sync/internal/pending"
	"realtime-sync/internal/seen"
)

// signatureContentRunes bounds how much content goes into a fallback key.
const signatureContentRunes = 64

// Classifier decides whether an envelope is new, a duplicate, or the
// confirmation of an optimistic send. It is the only writer of the seen
// registry and the pending tracker.
type Classifier struct {
	seen    *seen.Registry
	pending *pending.Tracker
}

// NewClassifier returns a Classifier over the given structures.
func NewClassifier(registry *seen.Registry, tracker *pending.Tracker) *Classifier {
	return &Classifier{seen: registry, pending: tracker}
}

// Classify normalizes env and classifies it. Notification tags skip the
// dedup path entirely and are accepted only on the personal channel. Malformed payloads return ErrMalformedEnvelope and
// leave both structures untouched.
func (c *Classifier) Classify(env models.Envelope) (Result, error) {
	res := Result{Tag: env.Type, Channel: env.OriginChannel}

	if !models.IsConversationTag(env.Type) {
		// Only the personal channel carries notifications.
		if env.OriginChannel != models.ChannelPersonalNotifications {
			return Result{}, fmt.Errorf("%w: unexpected %s on %s", ErrMalformedEnvelope, env.Type, env.OriginChannel)
		}
		n := NormalizeNotification(env)
		res.Kind = KindNotification
		res.Notification = &n
		return res, nil
	}

	if env.Type == models.TagMessageCreated {
		return c.classifyMessage(env, res)
	}

	switch env.Type {
	case models.TagReactionUpdated:
		r := NormalizeReaction(env)
		if r.MessageID == "" {
			return Result{}, fmt.Errorf("%w: reaction without message id", ErrMalformedEnvelope)
		}
		res.Reaction = &r
		res.Key = ReactionKey(r)
	default:
		conv := NormalizeConversation(env)
		if conv.ID == "" {
			return Result{}, fmt.Errorf("%w: %s without conversation id", ErrMalformedEnvelope, env.Type)
		}
		res.Conversation = &conv
		res.Key = ConversationKey(env.Type, conv, LifecycleStamp(env))
	}

	return c.dedup(res), nil
}

func (c *Classifier) classifyMessage(env models.Envelope, res Result) (Result, error) {
	msg := NormalizeMessage(env)

	// Reconciliation wins over plain dedup.
	if msg.ClientMsgID != "" && c.pending.Has(msg.ClientMsgID) {
		confirmed := msg
		prev, _ := c.pending.Peek(msg.ClientMsgID)
		mergePending(&confirmed, prev)
		if confirmed.ConversationID == "" {
			return Result{}, fmt.Errorf("%w: message without conversation id", ErrMalformedEnvelope)
		}

		taken, _ := c.pending.Take(msg.ClientMsgID)
		confirmed.Status = models.MessageStatusConfirmed
		res.Kind = KindReconciliation
		res.Message = &confirmed
		res.Replaced = &taken
		res.Key = MessageKey(confirmed)
		c.seen.Remember(res.Key)
		return res, nil
	}

	if msg.ConversationID == "" {
		return Result{}, fmt.Errorf("%w: message without conversation id", ErrMalformedEnvelope)
	}
	msg.Status = models.MessageStatusConfirmed
	res.Message = &msg
	res.Key = MessageKey(msg)
	return c.dedup(res), nil
}

func (c *Classifier) dedup(res Result) Result {
	if c.seen.Has(res.Key) {
		res.Kind = KindDuplicate
		return res
	}
	c.seen.Remember(res.Key)
	res.Kind = KindNew
	return res
}

// mergePending fills fields the server left out of its confirmation from
// the locally pending copy.
func mergePending(confirmed *models.Message, prev models.Message) {
	if confirmed.ConversationID == "" {
		confirmed.ConversationID = prev.ConversationID
	}
	if confirmed.SenderID == "" {
		confirmed.SenderID = prev.SenderID
	}
	if confirmed.SenderRole == "" {
		confirmed.SenderRole = prev.SenderRole
	}
	if confirmed.Content == "" {
		confirmed.Content = prev.Content
	}
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = prev.CreatedAt
	}
}

// MessageKey is the server id when present, otherwise a signature over
// conversation, sender, role, truncated content and timestamp. Two distinct
// messages with identical signatures collapse into one.
func MessageKey(m models.Message) string {
	if m.ID != "" {
		return m.ID
	}
	ts := ""
	if !m.CreatedAt.IsZero() {
		ts = strconv.FormatInt(m.CreatedAt.UnixMilli(), 10)
	}
	return strings.Join([]string{
		m.ConversationID,
		m.SenderID,
		m.SenderRole,
		truncateRunes(m.Content, signatureContentRunes),
		ts,
	}, "|")
}

// ConversationKey scopes lifecycle events by tag so they never collide with
// message ids. stamp is the event time reported by the server, if any; it
// lets a conversation be reassigned back to an earlier agent.
func ConversationKey(tag string, conv models.Conversation, stamp string) string {
	key := tag + ":" + conv.ID
	if tag == models.TagConversationAssigned {
		key += ":" + conv.AssignedAgentID
	}
	if stamp != "" {
		key += "@" + stamp
	}
	return key
}

// ReactionKey identifies one reaction snapshot of a message.
func ReactionKey(r models.ReactionEvent) string {
	sorted := slices.Clone(r.Reactions)
	slices.Sort(sorted)
	return models.TagReactionUpdated + ":" + r.MessageID + ":" + strings.Join(sorted, ",")
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
