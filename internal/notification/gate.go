// Package notification filters personal notifications by recipient and
// turns accepted ones into UI decisions and side effects.
package notification

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"realtime-sync/internal/models"
	"realtime-sync/pkg/log"
)

// Gate evaluates notifications against the local identity. Nothing
// observable happens for an event addressed to someone else.
type Gate struct {
	identity IdentitySource
	cache    Cache
	notifier OSNotifier
	limiter  *rate.Limiter
	logger   log.Logger
	opts     Options
}

// New builds a Gate. cache and notifier may be nil.
func New(identity IdentitySource, cache Cache, notifier OSNotifier, logger log.Logger, opts Options) *Gate {
	if opts.LogoutCountdown <= 0 {
		opts.LogoutCountdown = DefaultLogoutCountdown
	}
	if opts.OSBurst <= 0 {
		opts.OSBurst = 1
	}
	limit := rate.Limit(opts.OSRate)
	if opts.OSRate <= 0 {
		limit = rate.Inf
	}
	return &Gate{
		identity: identity,
		cache:    cache,
		notifier: notifier,
		limiter:  rate.NewLimiter(limit, opts.OSBurst),
		logger:   logger,
		opts:     opts,
	}
}

// Handle decides what ev produces for the current user and fires the
// side effects of that decision.
func (g *Gate) Handle(ctx context.Context, ev models.NotificationEvent) Decision {
	userID, ok := g.identity.CurrentUserID(ctx)
	if !ok || userID == "" {
		g.logger.Debugf(ctx, "notification: suppressed %s, no identity", ev.Type)
		return Decision{Kind: Suppressed, Type: CanonicalType(ev.Type), Reason: ReasonUnknownIdentity, Event: ev}
	}
	if ev.ReceiverID != userID {
		g.logger.Warnf(ctx, "notification: suppressed %s addressed to %q", ev.Type, ev.ReceiverID)
		return Decision{Kind: Suppressed, Type: CanonicalType(ev.Type), Reason: ReasonRecipientMismatch, Event: ev}
	}

	d := g.decide(ev)

	if g.cache != nil {
		if err := g.cache.Invalidate(ctx, userID, TagUnreadCount, TagNotifications); err != nil {
			g.logger.Warnf(ctx, "notification: invalidate cache: %v", err)
		}
	}
	if d.Kind == PassiveSignal {
		g.notifyOS(ctx, ev)
	}

	g.logger.Infof(ctx, "notification: %s -> %s", d.Type, d.Kind)
	return d
}

func (g *Gate) decide(ev models.NotificationEvent) Decision {
	t := CanonicalType(ev.Type)
	d := Decision{Type: t, Event: ev}
	switch t {
	case TypeAccountLocked, TypePasswordReset:
		d.Kind = SystemPrompt
		d.LogoutIn = g.opts.LogoutCountdown
	case TypeOrderRefunded:
		d.Kind = UserPrompt
		d.Action = ev.Link
	default:
		d.Kind = PassiveSignal
	}
	return d
}

func (g *Gate) notifyOS(ctx context.Context, ev models.NotificationEvent) {
	if !g.opts.OSEnabled || g.notifier == nil || !g.notifier.Permitted() {
		return
	}
	if !g.limiter.Allow() {
		g.logger.Debugf(ctx, "notification: os notification throttled for %s", ev.Type)
		return
	}
	if err := g.notifier.Notify(ctx, title(ev), ev.Message, ev.Link); err != nil {
		g.logger.Warnf(ctx, "notification: os notify: %v", err)
	}
}

var typeReplacer = strings.NewReplacer(".", "_", "-", "_", " ", "_")

// CanonicalType upper-cases t and folds separators to underscores, so
// "account.locked" and "Account-Locked" both become ACCOUNT_LOCKED.
func CanonicalType(t string) string {
	return typeReplacer.Replace(strings.ToUpper(strings.TrimSpace(t)))
}

func title(ev models.NotificationEvent) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(CanonicalType(ev.Type), "_", " ")))
	if len(words) == 0 {
		return "Notification"
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}
