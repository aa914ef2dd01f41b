package gateway

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/BenderTales/tales-chat-api/internal/obslog"
)

const sessionSendBuffer = 64

// Session is one connected websocket participant. It implements
// chat.Participant; the zone tag feeds the proximity distance for the
// local channel.
type Session struct {
	id   uuid.UUID
	name string
	zone string

	conn *websocket.Conn
	out  chan string

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(name, zone string, conn *websocket.Conn) *Session {
	return &Session{
		id:   uuid.New(),
		name: name,
		zone: zone,
		conn: conn,
		out:  make(chan string, sessionSendBuffer),
		done: make(chan struct{}),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }
func (s *Session) Name() string  { return s.name }
func (s *Session) Zone() string  { return s.zone }

// deliver queues text for the session. A slow consumer with a full
// buffer drops the message rather than blocking the broadcast.
func (s *Session) deliver(text string) {
	select {
	case <-s.done:
	case s.out <- text:
	default:
		obslog.L().Warn("session_send_dropped", zap.String("participant", s.name))
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
	})
}

func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case text := <-s.out:
			if err := s.conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
				s.close()
				return
			}
		}
	}
}

// readLoop consumes inbound lines and hands them to the server. Returns
// when the peer disconnects.
func (s *Session) readLoop(ctx context.Context, srv *Server) {
	for {
		typ, raw, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		line := strings.TrimRight(string(raw), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		srv.handleLine(ctx, s, line)
	}
}
