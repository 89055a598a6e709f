package main

import (
	"context"
	"time"

	"realtime-sync/internal/alert"
	"realtime-sync/internal/models"
	"realtime-sync/internal/notification"
	"realtime-sync/internal/realtime"
	"realtime-sync/pkg/log"
)

// The daemon has no UI; callbacks and OS notifications go to the log.
// Security prompts and misdelivered notifications are also sent to operators.

const alertTimeout = 30 * time.Second

func logCallbacks(logger log.Logger, alerts alert.UseCase, identity notification.IdentitySource) realtime.Callbacks {
	ctx := context.Background()
	return realtime.Callbacks{
		OnIncomingMessage: func(m models.Message) {
			logger.Infof(ctx, "message %s in %s from %s: %s", m.ID, m.ConversationID, m.SenderID, m.Content)
		},
		OnReactionEvent: func(r models.ReactionEvent) {
			logger.Infof(ctx, "reactions on %s: %v", r.MessageID, r.Reactions)
		},
		OnNotificationDecision: func(d notification.Decision) {
			switch d.Kind {
			case notification.SystemPrompt:
				logger.Warnf(ctx, "%s: forced logout in %s", d.Type, d.LogoutIn)
				if alerts != nil {
					in := alert.SecurityEventInput{
						UserID:   d.Event.ReceiverID,
						Type:     d.Type,
						Message:  d.Event.Message,
						LogoutIn: d.LogoutIn,
						At:       time.Now(),
					}
					dispatch(func(ctx context.Context) error { return alerts.DispatchSecurityEvent(ctx, in) })
				}
			case notification.UserPrompt:
				logger.Infof(ctx, "%s: %s (%s)", d.Type, d.Event.Message, d.Action)
			case notification.Suppressed:
				logger.Debugf(ctx, "%s suppressed: %s", d.Type, d.Reason)
				if alerts != nil && d.Reason == notification.ReasonRecipientMismatch {
					local, _ := identity.CurrentUserID(ctx)
					in := alert.MisdeliveryInput{
						LocalUserID: local,
						ReceiverID:  d.Event.ReceiverID,
						Type:        d.Type,
						At:          time.Now(),
					}
					dispatch(func(ctx context.Context) error { return alerts.DispatchMisdelivery(ctx, in) })
				}
			}
		},
		OnSendFailed: func(m models.Message) {
			logger.Errorf(ctx, "send %s to %s failed", m.ClientMsgID, m.ConversationID)
		},
	}
}

// dispatch runs fn off the engine loop; callbacks must not block on the network.
func dispatch(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		_ = fn(ctx)
	}()
}

type logNotifier struct {
	logger    log.Logger
	permitted bool
}

func newLogNotifier(logger log.Logger, permitted bool) notification.OSNotifier {
	return &logNotifier{logger: logger, permitted: permitted}
}

func (n *logNotifier) Permitted() bool {
	return n.permitted
}

func (n *logNotifier) Notify(ctx context.Context, title, body, link string) error {
	n.logger.Infof(ctx, "notify: %s: %s %s", title, body, link)
	return nil
}
