package alert

import "context"

//go:generate mockery --name UseCase
type UseCase interface {
	// DispatchSecurityEvent reports a forced-logout notification.
	DispatchSecurityEvent(ctx context.Context, input SecurityEventInput) error
	// DispatchMisdelivery reports a notification addressed to another user.
	DispatchMisdelivery(ctx context.Context, input MisdeliveryInput) error
	DispatchPanic(ctx context.Context, input PanicInput) error
}
