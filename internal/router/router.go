// Package router keeps the set of subscribed channels equal to the set the
// current view needs.
package router

import (
	"context"
	"errors"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"realtime-sync/internal/models"
	"realtime-sync/pkg/log"
)

// Subscriber is the transport side of a subscription. Implemented by the
// live connection session.
type Subscriber interface {
	Subscribe(channel string) error
	Unsubscribe(channel string) error
}

// Router owns the subscription bookkeeping. It is driven only by the
// active conversation changing and by (re)connection, and is not safe for
// concurrent use.
type Router struct {
	logger   log.Logger
	sub      Subscriber
	activeID string
	current  mapset.Set[string]
}

// New returns a detached Router.
func New(logger log.Logger) *Router {
	return &Router{
		logger:  logger,
		current: mapset.NewThreadUnsafeSet[string](),
	}
}

// DesiredChannels returns the channels needed for activeID.
func DesiredChannels(activeID string) mapset.Set[string] {
	desired := mapset.NewThreadUnsafeSet(models.ChannelPersonalNotifications, models.ChannelBroadcastSupport)
	if activeID != "" {
		desired.Add(models.ConversationChannel(activeID))
	}
	return desired
}

// Attach binds the router to a fresh session. Subscriptions from any
// previous session are void, so the full desired set is subscribed again.
func (r *Router) Attach(ctx context.Context, sub Subscriber) error {
	r.sub = sub
	r.current.Clear()
	return r.Sync(ctx)
}

// Detach forgets the session and its subscriptions without touching the
// transport, which is already gone.
func (r *Router) Detach() {
	r.sub = nil
	r.current.Clear()
}

// Attached reports whether a session is bound.
func (r *Router) Attached() bool {
	return r.sub != nil
}

// SetActiveConversation changes the scoped conversation channel and
// re-diffs. An empty id clears the scoped channel.
func (r *Router) SetActiveConversation(ctx context.Context, id string) error {
	if id != r.activeID {
		r.logger.Debugf(ctx, "router: active conversation %q -> %q", r.activeID, id)
	}
	r.activeID = id
	return r.Sync(ctx)
}

// ActiveConversation returns the active conversation id, or "".
func (r *Router) ActiveConversation() string {
	return r.activeID
}

// Sync unsubscribes channels no longer desired and subscribes channels
// newly desired. Unchanged channels are not touched. Without a session it
// only records the desired state.
func (r *Router) Sync(ctx context.Context) error {
	if r.sub == nil {
		return nil
	}

	desired := DesiredChannels(r.activeID)
	stale := sorted(r.current.Difference(desired))
	missing := sorted(desired.Difference(r.current))

	var errs []error
	for _, ch := range stale {
		// The subscription is dropped from bookkeeping either way; a failed
		// unsubscribe means the session is already unusable.
		r.current.Remove(ch)
		if err := r.sub.Unsubscribe(ch); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s: %w", ch, err))
			continue
		}
		r.logger.Debugf(ctx, "router: unsubscribed %s", ch)
	}

	for _, ch := range missing {
		if err := r.sub.Subscribe(ch); err != nil {
			errs = append(errs, fmt.Errorf("subscribe %s: %w", ch, err))
			continue
		}
		r.current.Add(ch)
		r.logger.Debugf(ctx, "router: subscribed %s", ch)
	}

	return errors.Join(errs...)
}

// Subscribed returns the currently subscribed channel keys, sorted.
func (r *Router) Subscribed() []string {
	return sorted(r.current)
}

func sorted(s mapset.Set[string]) []string {
	out := s.ToSlice()
	slices.Sort(out)
	return out
}
