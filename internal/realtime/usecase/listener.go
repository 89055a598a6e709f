package usecase

import (
	"context"

	"realtime-sync/internal/connection"
)

type connEventKind int

const (
	connConnected connEventKind = iota
	connFrame
	connDisconnected
)

// connEvent carries one manager callback into the engine loop. ctx is the
// manager's run context; once it is done the event belongs to a torn-down
// connection.
type connEvent struct {
	ctx   context.Context
	kind  connEventKind
	sess  connection.Session
	frame connection.Frame
	cause error
}

// listener forwards manager callbacks onto a single channel so sessions,
// frames and drops reach the loop in the order they happened.
type listener struct {
	events chan<- connEvent
}

func (l listener) OnConnected(ctx context.Context, sess connection.Session) {
	l.push(ctx, connEvent{kind: connConnected, sess: sess})
}

func (l listener) OnFrame(ctx context.Context, f connection.Frame) {
	l.push(ctx, connEvent{kind: connFrame, frame: f})
}

func (l listener) OnDisconnected(ctx context.Context, cause error) {
	l.push(ctx, connEvent{kind: connDisconnected, cause: cause})
}

func (l listener) push(ctx context.Context, ev connEvent) {
	ev.ctx = ctx
	select {
	case l.events <- ev:
	case <-ctx.Done():
	}
}
