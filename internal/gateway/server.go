package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/BenderTales/tales-chat-api/internal/chat"
	"github.com/BenderTales/tales-chat-api/internal/msgcat"
	"github.com/BenderTales/tales-chat-api/internal/obslog"
)

// Server hosts the websocket chat endpoint and owns the session
// registry. It implements chat.Roster and chat.Sink, so the chat manager
// sees every connected session as a participant and delivers through it.
type Server struct {
	manager *chat.Manager
	perms   chat.Permissions
	catalog *msgcat.Catalog

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	byName   map[string]*Session

	httpSrv *http.Server
}

func NewServer(addr string, perms chat.Permissions, catalog *msgcat.Catalog) *Server {
	s := &Server{
		perms:    perms,
		catalog:  catalog,
		sessions: make(map[uuid.UUID]*Session),
		byName:   make(map[string]*Session),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// SetManager wires the router in. Must be called before Run; the manager
// itself is constructed with this server as roster and sink.
func (s *Server) SetManager(m *chat.Manager) { s.manager = m }

// Run serves the websocket endpoint until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	obslog.L().Info("gateway_listening", zap.String("addr", s.httpSrv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	zone := strings.TrimSpace(r.URL.Query().Get("zone"))
	if name == "" {
		http.Error(w, "name query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err))
		return
	}

	sess := newSession(name, zone, conn)
	if !s.register(sess) {
		_ = conn.Close(websocket.StatusPolicyViolation, "name already connected")
		return
	}
	obslog.L().Info("session_connected", zap.String("participant", name), zap.String("zone", zone))

	ctx := r.Context()
	go sess.writeLoop(ctx)
	sess.readLoop(ctx, s)

	s.unregister(sess)
	sess.close()
	obslog.L().Info("session_disconnected", zap.String("participant", name))
}

func (s *Server) register(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[sess.Name()]; taken {
		return false
	}
	s.sessions[sess.ID()] = sess
	s.byName[sess.Name()] = sess
	return true
}

func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.ID())
	delete(s.byName, sess.Name())
}

// List implements chat.Roster.
func (s *Server) List() []chat.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Participant, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// FindByID implements chat.Roster.
func (s *Server) FindByID(id uuid.UUID) chat.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return sess
}

// IsConnected implements chat.Roster.
func (s *Server) IsConnected(p chat.Participant) bool {
	if p == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[p.ID()]
	return ok
}

// FindByName resolves a connected participant by display name.
func (s *Server) FindByName(name string) chat.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byName[name]
	if !ok {
		return nil
	}
	return sess
}

// Deliver implements chat.Sink.
func (s *Server) Deliver(p chat.Participant, text string) {
	s.mu.RLock()
	sess, ok := s.sessions[p.ID()]
	s.mu.RUnlock()
	if ok {
		sess.deliver(text)
	}
}

// LogToConsole implements chat.Sink.
func (s *Server) LogToConsole(text string) {
	obslog.L().Info("chat", zap.String("message", text))
}

// Distance implements the proximity model for the local channel: two
// sessions in the same named zone are adjacent, everything else is out
// of range.
func (s *Server) Distance(a, b chat.Participant) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sa, aok := s.sessions[a.ID()]
	sb, bok := s.sessions[b.ID()]
	if !aok || !bok || sa.Zone() == "" || sb.Zone() == "" {
		return 0, false
	}
	if sa.Zone() != sb.Zone() {
		return 0, false
	}
	return 0, true
}

var (
	_ chat.Roster = (*Server)(nil)
	_ chat.Sink   = (*Server)(nil)
)
