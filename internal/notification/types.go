package notification

import (
	"context"
	"time"

	"realtime-sync/internal/models"
)

// DecisionKind is the outcome of gating one notification.
type DecisionKind int

const (
	Suppressed DecisionKind = iota
	SystemPrompt
	UserPrompt
	PassiveSignal
)

func (k DecisionKind) String() string {
	switch k {
	case Suppressed:
		return "suppressed"
	case SystemPrompt:
		return "system_prompt"
	case UserPrompt:
		return "user_prompt"
	case PassiveSignal:
		return "passive_signal"
	default:
		return "unknown"
	}
}

// Canonical notification types with a forced or actionable prompt.
const (
	TypeAccountLocked = "ACCOUNT_LOCKED"
	TypePasswordReset = "PASSWORD_RESET"
	TypeOrderRefunded = "ORDER_REFUNDED"
)

// Cache tags invalidated after an accepted notification.
const (
	TagUnreadCount   = "UnreadCount"
	TagNotifications = "Notifications"
)

// Reasons attached to Suppressed decisions.
const (
	ReasonUnknownIdentity   = "unknown identity"
	ReasonRecipientMismatch = "recipient mismatch"
)

// Decision tells the UI what to show for a notification.
type Decision struct {
	Kind DecisionKind
	// Type is the canonical notification type.
	Type string
	// LogoutIn is the forced logout countdown of a SystemPrompt.
	LogoutIn time.Duration
	// Action is the primary action link of a UserPrompt.
	Action string
	// Reason explains a Suppressed decision.
	Reason string
	Event  models.NotificationEvent
}

// IdentitySource reports the locally authenticated user.
type IdentitySource interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// IdentityFunc adapts a function to IdentitySource.
type IdentityFunc func(ctx context.Context) (string, bool)

func (f IdentityFunc) CurrentUserID(ctx context.Context) (string, bool) {
	return f(ctx)
}

// Cache is the notification read-model cache of the REST collaborator.
type Cache interface {
	Invalidate(ctx context.Context, userID string, tags ...string) error
}

// OSNotifier shows best-effort operating system notifications.
type OSNotifier interface {
	Permitted() bool
	Notify(ctx context.Context, title, body, link string) error
}

// Options tunes the gate side effects.
type Options struct {
	OSEnabled       bool
	OSRate          float64
	OSBurst         int
	LogoutCountdown time.Duration
}

const DefaultLogoutCountdown = 5 * time.Second
