package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"realtime-sync/internal/connection"
	"realtime-sync/internal/models"
	"realtime-sync/internal/notification"
	"realtime-sync/internal/realtime"
	"realtime-sync/pkg/log"
)

const waitFor = 2 * time.Second

type fakeSession struct {
	mu        sync.Mutex
	subs      []string
	unsubs    []string
	published []connection.Frame
	pubErr    error
	err       error
	frames    chan connection.Frame
	closeOnce sync.Once
}

func (s *fakeSession) Subscribe(ch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, ch)
	return nil
}

func (s *fakeSession) Unsubscribe(ch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubs = append(s.unsubs, ch)
	return nil
}

func (s *fakeSession) Publish(ch string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pubErr != nil {
		return s.pubErr
	}
	s.published = append(s.published, connection.Frame{Channel: ch, Payload: payload})
	return nil
}

func (s *fakeSession) Frames() <-chan connection.Frame { return s.frames }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Close() error {
	s.closeOnce.Do(func() { close(s.frames) })
	return nil
}

func (s *fakeSession) subscribed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subs...)
}

func (s *fakeSession) unsubscribed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.unsubs...)
}

func (s *fakeSession) sent() []connection.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]connection.Frame(nil), s.published...)
}

type fakeDialer struct {
	ready chan *fakeSession
}

func (d *fakeDialer) Dial(context.Context, string) (connection.Session, error) {
	s := &fakeSession{frames: make(chan connection.Frame, 64)}
	d.ready <- s
	return s, nil
}

type recorder struct {
	mu        sync.Mutex
	incoming  []models.Message
	reactions []models.ReactionEvent
	decisions []notification.Decision
	failed    []models.Message
}

func (r *recorder) callbacks() realtime.Callbacks {
	return realtime.Callbacks{
		OnIncomingMessage: func(m models.Message) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.incoming = append(r.incoming, m)
		},
		OnReactionEvent: func(e models.ReactionEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.reactions = append(r.reactions, e)
		},
		OnNotificationDecision: func(d notification.Decision) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.decisions = append(r.decisions, d)
		},
		OnSendFailed: func(m models.Message) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.failed = append(r.failed, m)
		},
	}
}

func (r *recorder) incomingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.incoming)
}

func (r *recorder) decisionKinds() []notification.DecisionKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.DecisionKind
	for _, d := range r.decisions {
		out = append(out, d.Kind)
	}
	return out
}

func (r *recorder) failedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed)
}

type harness struct {
	uc      *usecase
	dialer  *fakeDialer
	rec     *recorder
	session *fakeSession
	barrier int
}

func newHarness(t *testing.T, token string, opts realtime.Options) *harness {
	t.Helper()
	opts.Connection.ReconnectBase = time.Millisecond
	opts.Connection.ReconnectCap = 5 * time.Millisecond

	h := &harness{
		dialer: &fakeDialer{ready: make(chan *fakeSession, 8)},
		rec:    &recorder{},
	}
	deps := Deps{
		Dialer:   h.dialer,
		Auth:     connection.StaticToken(token),
		Identity: notification.IdentityFunc(func(context.Context) (string, bool) { return "u1", true }),
	}
	h.uc = newUsecase(log.NewNop(), deps, opts, h.rec.callbacks())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.uc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errc:
		case <-time.After(waitFor):
			t.Error("engine did not stop")
		}
	})
	return h
}

// awaitSession waits for the next dial and for the router to subscribe n
// channels on it.
func (h *harness) awaitSession(t *testing.T, n int) *fakeSession {
	t.Helper()
	select {
	case s := <-h.dialer.ready:
		h.session = s
	case <-time.After(waitFor):
		t.Fatal("no dial")
	}
	require.Eventually(t, func() bool { return len(h.session.subscribed()) == n }, waitFor, time.Millisecond)
	return h.session
}

func (h *harness) send(channel, payload string) {
	h.session.frames <- connection.Frame{Channel: channel, Payload: []byte(payload)}
}

// sync pushes a marker reaction through the session and waits for the loop
// to apply it, so every earlier frame has been handled.
func (h *harness) sync(t *testing.T) {
	t.Helper()
	h.barrier++
	id := fmt.Sprintf("barrier-%d", h.barrier)
	h.send(models.ChannelBroadcastSupport, `{"type":"reaction.updated","data":{"messageId":"`+id+`","reactions":[]}}`)
	require.Eventually(t, func() bool {
		var got string
		_ = h.uc.do(context.Background(), func(context.Context) error {
			r, _ := h.uc.store.LatestReaction()
			got = r.MessageID
			return nil
		})
		return got == id
	}, waitFor, time.Millisecond)
}

func TestDuplicateAcrossChannelsAppliedOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "tok", realtime.Options{ActiveConversationID: "42"})
	h.awaitSession(t, 3)

	frame := `{"type":"message.created","data":{"id":"m1","conversationId":"42","senderId":"u2","content":"hi"}}`
	h.send(models.ChannelBroadcastSupport, frame)
	h.send(models.ConversationChannel("42"), frame)
	h.sync(t)

	msgs, err := h.uc.Messages(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, 1, h.rec.incomingCount())

	unread, err := h.uc.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, unread)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.uc.metrics.classified.WithLabelValues("duplicate")))
}

func TestOptimisticSendReconciles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "tok", realtime.Options{ActiveConversationID: "42"})
	h.uc.newID = func() string { return "c1" }
	sess := h.awaitSession(t, 3)
	require.Eventually(t, func() bool {
		st, _ := h.uc.Stats(ctx)
		return st.Status == connection.StatusConnected.String()
	}, waitFor, time.Millisecond)

	msg, err := h.uc.SendMessage(ctx, realtime.SendMessageInput{ConversationID: "42", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "c1", msg.ClientMsgID)
	assert.True(t, msg.IsPending())

	sent := sess.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "conversation:42", sent[0].Channel)
	assert.Equal(t, "message.created", gjson.GetBytes(sent[0].Payload, "type").String())
	assert.Equal(t, "c1", gjson.GetBytes(sent[0].Payload, "data.clientMsgId").String())
	assert.Equal(t, "u1", gjson.GetBytes(sent[0].Payload, "data.senderId").String())

	h.send(models.ConversationChannel("42"), `{"type":"message.created","data":{"clientMsgId":"c1","id":"srv-9"}}`)
	h.sync(t)

	msgs, err := h.uc.Messages(ctx, "42")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-9", msgs[0].ID)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, models.MessageStatusConfirmed, msgs[0].Status)

	pendingMsgs, err := h.uc.PendingMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, pendingMsgs)

	// The broadcast copy of the same confirmation is a duplicate.
	h.send(models.ChannelBroadcastSupport, `{"type":"message.created","data":{"clientMsgId":"c1","id":"srv-9","conversationId":"42"}}`)
	h.sync(t)
	msgs, _ = h.uc.Messages(ctx, "42")
	assert.Len(t, msgs, 1)
}

func TestUnreadOnlyForInactiveConversation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "tok", realtime.Options{ActiveConversationID: "A"})
	h.awaitSession(t, 3)

	h.send(models.ChannelBroadcastSupport, `{"type":"message.created","data":{"id":"m1","conversationId":"B","content":"x"}}`)
	h.sync(t)
	unread, _ := h.uc.UnreadCount(ctx)
	assert.Equal(t, 1, unread)

	h.send(models.ConversationChannel("A"), `{"type":"message.created","data":{"id":"m2","conversationId":"A","content":"y"}}`)
	h.sync(t)
	unread, _ = h.uc.UnreadCount(ctx)
	assert.Equal(t, 1, unread)

	require.NoError(t, h.uc.ClearUnread(ctx))
	unread, _ = h.uc.UnreadCount(ctx)
	assert.Zero(t, unread)
}

func TestReconnectResubscribesAndKeepsTrackers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "tok", realtime.Options{ActiveConversationID: "42"})
	h.uc.newID = func() string { return "c1" }
	first := h.awaitSession(t, 3)

	h.send(models.ChannelBroadcastSupport, `{"type":"message.created","data":{"id":"m1","conversationId":"7","content":"x"}}`)
	h.sync(t)
	_, err := h.uc.SendMessage(ctx, realtime.SendMessageInput{ConversationID: "42", Content: "hello"})
	require.NoError(t, err)

	first.mu.Lock()
	first.err = fmt.Errorf("connection reset")
	first.mu.Unlock()
	_ = first.Close()

	second := h.awaitSession(t, 3)
	assert.ElementsMatch(t, []string{"personal-notifications", "broadcast-support", "conversation:42"}, second.subscribed())
	assert.Empty(t, second.unsubscribed())

	pendingMsgs, err := h.uc.PendingMessages(ctx)
	require.NoError(t, err)
	require.Len(t, pendingMsgs, 1)
	assert.Equal(t, "c1", pendingMsgs[0].ClientMsgID)

	// m1 is still remembered: replaying it after the reconnect is a duplicate.
	h.send(models.ChannelBroadcastSupport, `{"type":"message.created","data":{"id":"m1","conversationId":"7","content":"x"}}`)
	h.sync(t)
	unread, _ := h.uc.UnreadCount(ctx)
	assert.Equal(t, 1, unread)
	assert.GreaterOrEqual(t, testutil.ToFloat64(h.uc.metrics.reconnects), float64(1))
}

func TestSwitchingConversationRediffs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "tok", realtime.Options{ActiveConversationID: "A"})
	sess := h.awaitSession(t, 3)

	require.NoError(t, h.uc.SetActiveConversation(ctx, "B"))
	require.NoError(t, h.uc.SetActiveConversation(ctx, "B"))

	assert.Equal(t, []string{"conversation:A"}, sess.unsubscribed())
	assert.Len(t, sess.subscribed(), 4)
	assert.Equal(t, "conversation:B", sess.subscribed()[3])
}

func TestDeletingActiveConversationClearsIt(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "tok", realtime.Options{ActiveConversationID: "42"})
	sess := h.awaitSession(t, 3)

	h.send(models.ChannelBroadcastSupport, `{"type":"conversation.created","data":{"id":"42"}}`)
	h.send(models.ChannelBroadcastSupport, `{"type":"conversation.deleted","data":{"id":"42"}}`)
	h.sync(t)

	st, err := h.uc.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.ActiveConversation)
	assert.NotContains(t, st.Subscriptions, "conversation:42")
	assert.Equal(t, []string{"conversation:42"}, sess.unsubscribed())

	convs, _ := h.uc.Conversations(ctx)
	assert.Empty(t, convs)
}

func TestNotificationsAreGated(t *testing.T) {
	h := newHarness(t, "tok", realtime.Options{})
	h.awaitSession(t, 2)

	h.send(models.ChannelPersonalNotifications, `{"type":"ACCOUNT_LOCKED","data":{"receiverId":"u2"}}`)
	h.send(models.ChannelPersonalNotifications, `{"type":"ACCOUNT_LOCKED","data":{"receiverId":"u1"}}`)
	h.sync(t)

	assert.Equal(t, []notification.DecisionKind{notification.Suppressed, notification.SystemPrompt}, h.rec.decisionKinds())
}

func TestChatChannelTagsNeverReachGate(t *testing.T) {
	h := newHarness(t, "tok", realtime.Options{ActiveConversationID: "A"})
	h.awaitSession(t, 3)

	h.send(models.ConversationChannel("A"), `{"type":"typing.started","data":{"conversationId":"A","userId":"u1"}}`)
	h.send(models.ChannelBroadcastSupport, `{"type":"ORDER_REFUNDED","data":{"receiverId":"u1"}}`)
	h.sync(t)

	assert.Empty(t, h.rec.decisionKinds())
	assert.Equal(t, float64(2), testutil.ToFloat64(h.uc.metrics.malformed))
	assert.Zero(t, testutil.ToFloat64(h.uc.metrics.classified.WithLabelValues("notification")))
}

func TestMalformedFramesAreDropped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "tok", realtime.Options{})
	h.awaitSession(t, 2)

	h.send(models.ChannelBroadcastSupport, `not json`)
	h.send(models.ChannelBroadcastSupport, `{"data":{}}`)
	h.send(models.ChannelBroadcastSupport, `{"type":"message.created","data":{"content":"no conversation"}}`)
	h.sync(t)

	assert.Equal(t, float64(3), testutil.ToFloat64(h.uc.metrics.malformed))
	st, err := h.uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, connection.StatusConnected.String(), st.Status)
	assert.Equal(t, 1, st.Seen) // the barrier reaction
}

func TestUnconfirmedSendFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "", realtime.Options{PendingTimeout: 20 * time.Millisecond})

	msg, err := h.uc.SendMessage(ctx, realtime.SendMessageInput{ConversationID: "9", Content: "hi"})
	require.NoError(t, err)
	assert.True(t, msg.IsPending())

	require.Eventually(t, func() bool { return h.rec.failedCount() == 1 }, waitFor, time.Millisecond)

	msgs, err := h.uc.Messages(ctx, "9")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageStatusFailed, msgs[0].Status)

	pendingMsgs, _ := h.uc.PendingMessages(ctx)
	assert.Empty(t, pendingMsgs)
}

func TestSendSurvivesBrokenSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "tok", realtime.Options{ActiveConversationID: "42"})
	h.uc.newID = func() string { return "c1" }
	first := h.awaitSession(t, 3)
	require.Eventually(t, func() bool {
		st, _ := h.uc.Stats(ctx)
		return st.Status == connection.StatusConnected.String()
	}, waitFor, time.Millisecond)

	first.mu.Lock()
	first.pubErr = errors.New("broken pipe")
	first.mu.Unlock()

	msg, err := h.uc.SendMessage(ctx, realtime.SendMessageInput{ConversationID: "42", Content: "hi"})
	require.NoError(t, err)
	assert.True(t, msg.IsPending())
	assert.Zero(t, h.rec.failedCount())

	pendingMsgs, err := h.uc.PendingMessages(ctx)
	require.NoError(t, err)
	require.Len(t, pendingMsgs, 1)
	assert.Equal(t, "c1", pendingMsgs[0].ClientMsgID)

	second := h.awaitSession(t, 3)
	require.Eventually(t, func() bool { return len(second.sent()) == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, "c1", gjson.GetBytes(second.sent()[0].Payload, "data.clientMsgId").String())

	h.send(models.ConversationChannel("42"), `{"type":"message.created","data":{"id":"m1","clientMsgId":"c1","conversationId":"42","senderId":"u1","content":"hi"}}`)
	require.Eventually(t, func() bool {
		p, _ := h.uc.PendingMessages(ctx)
		return len(p) == 0
	}, waitFor, time.Millisecond)
	assert.Zero(t, h.rec.failedCount())
}

func TestOfflineWithoutToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "", realtime.Options{})

	require.ErrorIs(t, h.uc.Connect(ctx), connection.ErrMissingToken)
	st, err := h.uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "disconnected", st.Status)
	assert.Empty(t, st.Subscriptions)

	_, err = h.uc.SendMessage(ctx, realtime.SendMessageInput{ConversationID: "9", Content: "queued"})
	require.NoError(t, err)
	st, _ = h.uc.Stats(ctx)
	assert.Equal(t, 1, st.Queued)
	assert.Equal(t, 1, st.Pending)
}

func TestLogoutKeepsTrackers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "tok", realtime.Options{ActiveConversationID: "42"})
	h.awaitSession(t, 3)
	_, err := h.uc.SendMessage(ctx, realtime.SendMessageInput{ConversationID: "42", Content: "hello"})
	require.NoError(t, err)

	require.NoError(t, h.uc.Logout(ctx))

	st, err := h.uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "disconnected", st.Status)
	assert.Empty(t, st.Subscriptions)
	assert.Equal(t, 1, st.Pending)
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness(t, "", realtime.Options{})
	_, err := h.uc.SendMessage(context.Background(), realtime.SendMessageInput{ConversationID: "1", Content: "  "})
	assert.ErrorIs(t, err, realtime.ErrFieldRequired)
}

func TestCallsAfterShutdown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "", realtime.Options{})
	_, err := h.uc.Stats(ctx)
	require.NoError(t, err)

	require.NoError(t, h.uc.Shutdown(ctx))
	_, err = h.uc.UnreadCount(ctx)
	assert.ErrorIs(t, err, realtime.ErrStopped)
}
