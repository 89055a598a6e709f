package event

import "realtime-sync/internal/models"

// Kind is the outcome of classifying one envelope.
type Kind int

const (
	// KindNew is applied to local state.
	KindNew Kind = iota + 1
	// KindDuplicate is discarded without any effect.
	KindDuplicate
	// KindReconciliation replaces a pending message with its confirmed copy.
	KindReconciliation
	// KindNotification goes to the notification gate.
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindDuplicate:
		return "duplicate"
	case KindReconciliation:
		return "reconciliation"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Result is a classified, normalized event. Exactly one of the payload
// pointers is set, matching Tag.
type Result struct {
	Kind    Kind
	Tag     string
	Channel string
	Key     string

	Message      *models.Message
	Replaced     *models.Message // pending copy, set for KindReconciliation
	Conversation *models.Conversation
	Reaction     *models.ReactionEvent
	Notification *models.NotificationEvent
}
