package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"realtime-sync/internal/connection"
	"realtime-sync/pkg/log"
)

// Control frame actions sent to the server.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPublish     = "publish"
)

// ControlFrame is a client to server frame.
type ControlFrame struct {
	Action  string          `json:"action"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type session struct {
	conn   *websocket.Conn
	cfg    Config
	logger log.Logger

	send   chan []byte
	frames chan connection.Frame
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func newSession(conn *websocket.Conn, cfg Config, logger log.Logger) *session {
	return &session{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		frames: make(chan connection.Frame, frameBuffer),
		done:   make(chan struct{}),
	}
}

func (s *session) start() {
	go s.writePump()
	go s.readPump()
}

func (s *session) Subscribe(channel string) error {
	return s.control(ControlFrame{Action: ActionSubscribe, Channel: channel})
}

func (s *session) Unsubscribe(channel string) error {
	return s.control(ControlFrame{Action: ActionUnsubscribe, Channel: channel})
}

func (s *session) Publish(channel string, payload []byte) error {
	return s.control(ControlFrame{Action: ActionPublish, Channel: channel, Data: payload})
}

func (s *session) Frames() <-chan connection.Frame {
	return s.frames
}

func (s *session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops both pumps. Frames is closed once the read pump exits.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *session) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	_ = s.Close()
}

func (s *session) control(f ControlFrame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return connection.ErrSessionClosed
	default:
	}
	select {
	case s.send <- b:
		return nil
	case <-s.done:
		return connection.ErrSessionClosed
	}
}

// readPump turns server messages into frames. It is the only reader of the
// socket and the only writer of s.frames.
func (s *session) readPump() {
	defer close(s.frames)

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warnf(context.Background(), "websocket: read: %v", err)
				}
				s.fail(err)
			}
			return
		}

		// The server may batch several frames into one message, one per line.
		for _, line := range bytes.Split(message, []byte{'\n'}) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			channel := gjson.GetBytes(line, "channel").String()
			if channel == "" {
				s.logger.Warnf(context.Background(), "websocket: frame without channel dropped")
				continue
			}
			select {
			case s.frames <- connection.Frame{Channel: channel, Payload: line}:
			case <-s.done:
				return
			}
		}
	}
}

// writePump is the only writer of the socket: control frames and pings.
func (s *session) writePump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.fail(err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.fail(err)
				return
			}
		case <-s.done:
			return
		}
	}
}
