package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/jgarzik/brainpro-go/pkg/protocol"
)

// Server accepts client WebSocket connections and forwards chat.send
// (and friends) to one Agent daemon: a cached *http.ServeMux, an
// http.Server with context-triggered graceful Shutdown, and a /health
// endpoint, built on github.com/coder/websocket's Accept function. The
// client protocol here is WS-frame-based only, with no separate managed-
// mode HTTP API surface.
type Server struct {
	token       string
	sessions    *SessionStore
	agent       *AgentClient
	router      *MethodRouter
	rateLimiter *RateLimiter
	cron        *cronStore

	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer builds a Server. token is the gateway bearer token
// (BRAINPRO_GATEWAY_TOKEN, env-only — never read from the config file);
// empty disables auth. rateRPS<=0 disables rate limiting.
func NewServer(token string, agent *AgentClient, rateRPS float64) *Server {
	return &Server{
		token:       token,
		sessions:    NewSessionStore(),
		agent:       agent,
		router:      NewMethodRouter(),
		rateLimiter: NewRateLimiter(rateRPS, 5),
		cron:        newCronStore(),
	}
}

func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.mux = mux
	return mux
}

// Start listens on addr (host:port) until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := s.BuildMux()
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	slog.Info("gateway.start", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Error("gateway.websocket_upgrade_failed", "error", err)
		return
	}
	conn.SetReadLimit(4 << 20)

	client := newClient(conn, s)
	defer conn.Close(websocket.StatusNormalClosure, "")
	client.Run(r.Context())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","protocol":%d}`, protocol.ProtocolVersion)
}
