package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-sync/internal/connection"
	"realtime-sync/pkg/log"
)

const waitFor = 2 * time.Second

// fakeServer is a push server that records control frames and lets the
// test write raw messages to the connected client.
type fakeServer struct {
	srv      *httptest.Server
	auth     chan string
	controls chan ControlFrame
	conns    chan *websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		auth:     make(chan string, 4),
		controls: make(chan ControlFrame, 16),
		conns:    make(chan *websocket.Conn, 4),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz != "Bearer valid_token" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		fs.auth <- authz

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		fs.conns <- conn
		for {
			var f ControlFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			fs.controls <- f
		}
	})

	fs.srv = httptest.NewServer(r)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http") + "/ws"
}

func (fs *fakeServer) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-fs.conns:
		return c
	case <-time.After(waitFor):
		t.Fatal("client never connected")
		return nil
	}
}

func (fs *fakeServer) control(t *testing.T) ControlFrame {
	t.Helper()
	select {
	case f := <-fs.controls:
		return f
	case <-time.After(waitFor):
		t.Fatal("no control frame")
		return ControlFrame{}
	}
}

func nextFrame(t *testing.T, s connection.Session) connection.Frame {
	t.Helper()
	select {
	case f, ok := <-s.Frames():
		require.True(t, ok, "frames closed")
		return f
	case <-time.After(waitFor):
		t.Fatal("no frame")
		return connection.Frame{}
	}
}

func dial(t *testing.T, fs *fakeServer) connection.Session {
	t.Helper()
	d := New(Config{URL: fs.url(), HandshakeTimeout: time.Second}, log.NewNop())
	s, err := d.Dial(context.Background(), "valid_token")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDialSendsBearerToken(t *testing.T) {
	fs := newFakeServer(t)
	dial(t, fs)

	select {
	case got := <-fs.auth:
		assert.Equal(t, "Bearer valid_token", got)
	case <-time.After(waitFor):
		t.Fatal("handshake not seen")
	}
}

func TestDialRejected(t *testing.T) {
	fs := newFakeServer(t)
	d := New(Config{URL: fs.url()}, log.NewNop())

	_, err := d.Dial(context.Background(), "expired")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestControlFrames(t *testing.T) {
	fs := newFakeServer(t)
	s := dial(t, fs)
	fs.conn(t)

	require.NoError(t, s.Subscribe("conversation:42"))
	require.NoError(t, s.Unsubscribe("conversation:41"))
	require.NoError(t, s.Publish("conversation:42", []byte(`{"type":"message.created","data":{"clientMsgId":"c1"}}`)))

	assert.Equal(t, ControlFrame{Action: ActionSubscribe, Channel: "conversation:42"}, fs.control(t))
	assert.Equal(t, ControlFrame{Action: ActionUnsubscribe, Channel: "conversation:41"}, fs.control(t))

	pub := fs.control(t)
	assert.Equal(t, ActionPublish, pub.Action)
	assert.JSONEq(t, `{"type":"message.created","data":{"clientMsgId":"c1"}}`, string(pub.Data))
}

func TestInboundFrames(t *testing.T) {
	fs := newFakeServer(t)
	s := dial(t, fs)
	conn := fs.conn(t)

	single := `{"channel":"broadcast-support","type":"message.created","data":{"id":"m1"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(single)))

	f := nextFrame(t, s)
	assert.Equal(t, "broadcast-support", f.Channel)
	assert.JSONEq(t, single, string(f.Payload))

	batch := `{"channel":"conversation:1","type":"a","data":{}}` + "\n" +
		`{"type":"no-channel"}` + "\n" +
		`{"channel":"personal-notifications","type":"b","data":{}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(batch)))

	assert.Equal(t, "conversation:1", nextFrame(t, s).Channel)
	assert.Equal(t, "personal-notifications", nextFrame(t, s).Channel)
}

func TestServerDropClosesFrames(t *testing.T) {
	fs := newFakeServer(t)
	s := dial(t, fs)
	conn := fs.conn(t)

	require.NoError(t, conn.Close())

	select {
	case _, ok := <-s.Frames():
		assert.False(t, ok)
	case <-time.After(waitFor):
		t.Fatal("frames not closed after drop")
	}
	assert.Error(t, s.Err())
	assert.ErrorIs(t, s.Subscribe("x"), connection.ErrSessionClosed)
}

func TestCloseIsClean(t *testing.T) {
	fs := newFakeServer(t)
	s := dial(t, fs)
	fs.conn(t)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case _, ok := <-s.Frames():
		assert.False(t, ok)
	case <-time.After(waitFor):
		t.Fatal("frames not closed")
	}
	assert.NoError(t, s.Err())
}
