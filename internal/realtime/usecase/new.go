package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"realtime-sync/internal/connection"
	"realtime-sync/internal/event"
	"realtime-sync/internal/notification"
	"realtime-sync/internal/pending"
	"realtime-sync/internal/realtime"
	"realtime-sync/internal/router"
	"realtime-sync/internal/seen"
	"realtime-sync/internal/state"
	pkgLog "realtime-sync/pkg/log"
)

const (
	eventBuffer     = 256
	teardownTimeout = 5 * time.Second
)

// Deps are the external collaborators of the engine. Cache, Notifier and
// Registerer may be nil.
type Deps struct {
	Dialer     connection.Dialer
	Auth       connection.AuthProvider
	Identity   notification.IdentitySource
	Cache      notification.Cache
	Notifier   notification.OSNotifier
	Registerer prometheus.Registerer
}

type usecase struct {
	l        pkgLog.Logger
	opts     realtime.Options
	cb       realtime.Callbacks
	identity notification.IdentitySource
	metrics  *Metrics

	seen       *seen.Registry
	pending    *pending.Tracker
	classifier *event.Classifier
	router     *router.Router
	store      *state.Store
	gate       *notification.Gate
	manager    *connection.Manager

	events chan connEvent
	calls  chan func(ctx context.Context)

	started  atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	newID func() string
	now   func() time.Time
}

func New(l pkgLog.Logger, deps Deps, opts realtime.Options, cb realtime.Callbacks) realtime.UseCase {
	return newUsecase(l, deps, opts, cb)
}

func newUsecase(l pkgLog.Logger, deps Deps, opts realtime.Options, cb realtime.Callbacks) *usecase {
	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	uc := &usecase{
		l:        l,
		opts:     opts,
		cb:       cb,
		identity: deps.Identity,
		metrics:  NewMetrics(reg),
		seen:     seen.New(opts.SeenCapacity),
		pending:  pending.New(),
		router:   router.New(l),
		store:    state.New(opts.MaxMessagesPerConversation),
		gate:     notification.New(deps.Identity, deps.Cache, deps.Notifier, l, opts.Notification),
		events:   make(chan connEvent, eventBuffer),
		calls:    make(chan func(ctx context.Context)),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	uc.classifier = event.NewClassifier(uc.seen, uc.pending)
	uc.store.SetActive(opts.ActiveConversationID)

	connOpts := opts.Connection
	userHook := connOpts.OnStatus
	connOpts.OnStatus = func(s connection.Status) {
		uc.metrics.status.Set(float64(s))
		if s == connection.StatusReconnecting {
			uc.metrics.reconnects.Inc()
		}
		if userHook != nil {
			userHook(s)
		}
	}
	uc.manager = connection.NewManager(deps.Dialer, deps.Auth, listener{events: uc.events}, l, connOpts)

	return uc
}
