package usecase

import (
	"context"
	"errors"
	"time"

	"realtime-sync/internal/connection"
	"realtime-sync/internal/realtime"
)

// Run is the engine loop. Connection events, API calls and the pending
// sweep are all handled here one at a time, so engine state needs no locks.
func (uc *usecase) Run(ctx context.Context) error {
	if !uc.started.CompareAndSwap(false, true) {
		return realtime.ErrAlreadyRunning
	}
	defer close(uc.done)

	if err := uc.router.SetActiveConversation(ctx, uc.store.Active()); err != nil {
		uc.l.Warnf(ctx, "internal.realtime.usecase.Run: %v", err)
	}
	if err := uc.connect(ctx); err != nil && !errors.Is(err, connection.ErrMissingToken) {
		uc.l.Errorf(ctx, "internal.realtime.usecase.Run: %v", err)
	}

	var sweep <-chan time.Time
	if uc.opts.PendingTimeout > 0 {
		t := time.NewTicker(sweepInterval(uc.opts.PendingTimeout))
		defer t.Stop()
		sweep = t.C
	}

	uc.l.Info(ctx, "Realtime engine started")
	for {
		select {
		case <-ctx.Done():
			uc.teardown(ctx)
			return nil
		case <-uc.quit:
			uc.teardown(ctx)
			return nil
		case ev := <-uc.events:
			uc.handleConnEvent(ctx, ev)
		case call := <-uc.calls:
			call(ctx)
		case <-sweep:
			uc.expirePending(ctx)
		}
	}
}

// Shutdown stops the loop and waits for it to exit.
func (uc *usecase) Shutdown(ctx context.Context) error {
	uc.quitOnce.Do(func() { close(uc.quit) })
	if !uc.started.Load() {
		return nil
	}
	select {
	case <-uc.done:
		uc.l.Info(ctx, "Realtime engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs fn on the loop and returns its error.
func (uc *usecase) do(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	call := func(loopCtx context.Context) { result <- fn(loopCtx) }

	select {
	case uc.calls <- call:
	case <-uc.done:
		return realtime.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-result
}

func (uc *usecase) connect(ctx context.Context) error {
	if err := uc.manager.Connect(ctx); err != nil {
		if errors.Is(err, connection.ErrMissingToken) {
			uc.l.Info(ctx, "internal.realtime.usecase.connect: not authenticated, staying offline")
		}
		return err
	}
	return nil
}

func (uc *usecase) teardown(ctx context.Context) {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	if err := uc.manager.Teardown(tctx); err != nil {
		uc.l.Warnf(ctx, "internal.realtime.usecase.teardown: %v", err)
	}
	uc.router.Detach()
}

func (uc *usecase) handleConnEvent(ctx context.Context, ev connEvent) {
	if ev.ctx != nil && ev.ctx.Err() != nil {
		// Left over from a connection that has since been torn down.
		return
	}

	switch ev.kind {
	case connConnected:
		if err := uc.router.Attach(ctx, ev.sess); err != nil {
			uc.l.Warnf(ctx, "internal.realtime.usecase.handleConnEvent: subscribe: %v", err)
		}
	case connFrame:
		uc.handleFrame(ctx, ev.frame)
	case connDisconnected:
		uc.router.Detach()
		if connection.IsTransient(ev.cause) {
			uc.l.Warnf(ctx, "internal.realtime.usecase.handleConnEvent: disconnected: %v", ev.cause)
		} else {
			uc.l.Infof(ctx, "internal.realtime.usecase.handleConnEvent: disconnected")
		}
	}
}

func (uc *usecase) expirePending(ctx context.Context) {
	for _, m := range uc.pending.Expire(uc.opts.PendingTimeout) {
		uc.failSend(ctx, m)
		uc.l.Warnf(ctx, "internal.realtime.usecase.expirePending: %s not confirmed within %s", m.ClientMsgID, uc.opts.PendingTimeout)
	}
}

func sweepInterval(timeout time.Duration) time.Duration {
	return min(max(timeout/4, 10*time.Millisecond), time.Second)
}
