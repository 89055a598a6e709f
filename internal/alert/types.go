package alert

import "time"

// SecurityEventInput describes a SystemPrompt decision.
type SecurityEventInput struct {
	UserID   string
	Type     string
	Message  string
	LogoutIn time.Duration
	At       time.Time
}

// MisdeliveryInput describes a notification whose receiver is not the local user.
type MisdeliveryInput struct {
	LocalUserID string
	ReceiverID  string
	Type        string
	At          time.Time
}

// PanicInput describes a recovered panic in the status server.
type PanicInput struct {
	Method string
	Path   string
	Value  any
	Stack  string
	At     time.Time
}
