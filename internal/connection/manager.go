// Package connection owns the push connection lifecycle: connect with a
// credential, reconnect with capped backoff, and teardown.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"realtime-sync/pkg/log"
)

// Manager drives one Session at a time through
// Disconnected -> Connecting -> Connected -> Reconnecting -> Connecting.
type Manager struct {
	dialer   Dialer
	auth     AuthProvider
	listener Listener
	logger   log.Logger
	opts     Options

	mu      sync.Mutex
	status  Status
	session Session
	outbox  []Frame
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager returns a Disconnected manager. Nothing is dialed until Connect.
func NewManager(dialer Dialer, auth AuthProvider, listener Listener, logger log.Logger, opts Options) *Manager {
	return &Manager{
		dialer:   dialer,
		auth:     auth,
		listener: listener,
		logger:   logger,
		opts:     opts.withDefaults(),
		status:   StatusDisconnected,
	}
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connect starts the connection loop. Without a credential it returns
// ErrMissingToken and stays Disconnected. Calling it while a loop is
// already running is a no-op.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	token, ok := m.auth.AccessToken(ctx)
	if !ok || token == "" {
		m.logger.Info(ctx, "connection: no access token, staying disconnected")
		return ErrMissingToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.done = make(chan struct{})
	m.setStatusLocked(StatusConnecting)
	go m.run(runCtx, token, m.done)
	return nil
}

// Teardown stops the loop, releases the session and drops queued frames.
// It blocks until the loop has exited or ctx is done.
func (m *Manager) Teardown(ctx context.Context) error {
	m.mu.Lock()
	cancel, done, sess := m.cancel, m.done, m.session
	m.cancel, m.done, m.session = nil, nil, nil
	m.outbox = nil
	m.setStatusLocked(StatusDisconnected)
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if sess != nil {
		if err := sess.Close(); err != nil {
			m.logger.Warnf(ctx, "connection: close session: %v", err)
		}
	}

	select {
	case <-done:
		m.logger.Info(ctx, "connection: torn down")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection: teardown: %w", ctx.Err())
	}
}

// Publish sends payload on channel. While not connected the frame is
// queued and flushed in order on the next connect. A frame the live
// session fails to send is requeued and the session is closed, so the only
// error is ErrOutboxFull.
func (m *Manager) Publish(ctx context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	if m.status != StatusConnected || m.session == nil {
		defer m.mu.Unlock()
		if len(m.outbox) >= m.opts.OutboxSize {
			return ErrOutboxFull
		}
		m.outbox = append(m.outbox, Frame{Channel: channel, Payload: payload})
		m.logger.Debugf(ctx, "connection: queued frame for %s (%d queued)", channel, len(m.outbox))
		return nil
	}
	sess := m.session
	m.mu.Unlock()

	if err := sess.Publish(channel, payload); err != nil {
		// The session is unusable. The frame goes back to the head of the
		// outbox and later publishes queue behind it until the reconnect
		// flushes them.
		m.mu.Lock()
		if m.session == sess {
			m.session = nil
		}
		m.outbox = append([]Frame{{Channel: channel, Payload: payload}}, m.outbox...)
		m.mu.Unlock()
		_ = sess.Close()
		m.logger.Warnf(ctx, "connection: publish %s failed, requeued: %v", channel, err)
	}
	return nil
}

// Queued returns the number of frames waiting in the outbox.
func (m *Manager) Queued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.outbox)
}

func (m *Manager) run(ctx context.Context, token string, done chan struct{}) {
	defer close(done)

	attempt := 0
	for {
		sess, err := m.dialer.Dial(ctx, token)
		if err == nil {
			attempt = 0
			cause := m.serve(ctx, sess)
			m.listener.OnDisconnected(ctx, cause)
			if ctx.Err() != nil {
				return
			}
			m.logger.Warnf(ctx, "connection: session dropped: %v", cause)
		} else {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warnf(ctx, "connection: dial failed: %v", err)
		}

		if !m.transition(ctx, StatusReconnecting) {
			return
		}
		delay := Backoff(attempt, m.opts.ReconnectBase, m.opts.ReconnectCap, m.opts.JitterPercent)
		attempt++
		m.logger.Infof(ctx, "connection: reconnecting in %s (attempt %d)", delay, attempt)
		if !sleep(ctx, delay) {
			return
		}

		next, ok := m.auth.AccessToken(ctx)
		if !ok || next == "" {
			m.logger.Info(ctx, "connection: access token gone, stopping")
			m.stop()
			return
		}
		token = next
		if !m.transition(ctx, StatusConnecting) {
			return
		}
	}
}

// serve attaches sess, flushes the outbox and forwards frames until the
// session ends. It returns the reason it ended.
func (m *Manager) serve(ctx context.Context, sess Session) error {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		_ = sess.Close()
		return ErrTornDown
	}
	m.session = sess
	m.mu.Unlock()

	m.listener.OnConnected(ctx, sess)
	if err := m.flush(ctx, sess); err != nil {
		m.detach(sess)
		_ = sess.Close()
		return err
	}

	frames := sess.Frames()
	for {
		select {
		case <-ctx.Done():
			m.detach(sess)
			_ = sess.Close()
			return ErrTornDown
		case f, ok := <-frames:
			if !ok {
				m.detach(sess)
				_ = sess.Close()
				if err := sess.Err(); err != nil {
					return err
				}
				return ErrSessionClosed
			}
			m.listener.OnFrame(ctx, f)
		}
	}
}

// flush drains the outbox onto sess and only then marks the manager
// Connected, so queued frames keep their order ahead of new publishes.
func (m *Manager) flush(ctx context.Context, sess Session) error {
	for {
		m.mu.Lock()
		if ctx.Err() != nil {
			m.mu.Unlock()
			return ErrTornDown
		}
		batch := m.outbox
		m.outbox = nil
		if len(batch) == 0 {
			m.setStatusLocked(StatusConnected)
			m.mu.Unlock()
			m.logger.Info(ctx, "connection: connected")
			return nil
		}
		m.mu.Unlock()

		for i, f := range batch {
			if err := sess.Publish(f.Channel, f.Payload); err != nil {
				m.mu.Lock()
				m.outbox = append(batch[i:len(batch):len(batch)], m.outbox...)
				m.mu.Unlock()
				return fmt.Errorf("connection: flush outbox: %w", err)
			}
		}
		m.logger.Debugf(ctx, "connection: flushed %d queued frames", len(batch))
	}
}

func (m *Manager) detach(sess Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == sess {
		m.session = nil
	}
}

// transition moves to s unless the loop has been torn down.
func (m *Manager) transition(ctx context.Context, s Status) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	m.setStatusLocked(s)
	return true
}

// stop ends the loop from inside, leaving the manager Disconnected and
// ready for another Connect.
func (m *Manager) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel, m.done, m.session = nil, nil, nil
	m.setStatusLocked(StatusDisconnected)
}

func (m *Manager) setStatusLocked(s Status) {
	if m.status == s {
		return
	}
	m.status = s
	if m.opts.OnStatus != nil {
		m.opts.OnStatus(s)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// IsTransient reports whether err came from the session ending rather than
// an explicit teardown.
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, ErrTornDown)
}
