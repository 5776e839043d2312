// Package listen implements the inbound transport: the platform pushes
// events here over HTTP and the server enqueues them for the worker pool.
// It is a pass-through; all interpretation happens in the router.
package listen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
)

// maxBodySize caps inbound payloads; platform events are small.
const maxBodySize = 1 << 20

// EventQueuer is the queue contract the listener honors: FIFO push,
// observable depth.
type EventQueuer interface {
	Push(ev *protocol.Event)
	Depth() int
}

// Server is the inbound HTTP listener.
type Server struct {
	addr    string
	queue   EventQueuer
	workers int
	logger  *slog.Logger
	server  *http.Server
}

// New creates a listener bound to addr. workers is reported by /health.
func New(addr string, q EventQueuer, workers int) *Server {
	return &Server{
		addr:    addr,
		queue:   q,
		workers: workers,
		logger:  log.WithComponent("listen"),
	}
}

// Start runs the listener until ctx is cancelled (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("listener starting", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("listener shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("listener shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("listener error: %w", err)
	}
}

// Routes builds the inbound mux. Exposed so tests can drive the handlers
// without binding a socket.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Post("/", s.handleEvent)
	r.Get("/health", s.handleHealth)
	return r
}

// handleEvent decodes one pushed event and enqueues it. Anything that is
// not a JSON object is rejected; shape checks beyond that belong to the
// router.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.respondText(w, http.StatusInternalServerError, "error")
		return
	}

	var ev protocol.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		s.logger.Error("invalid event payload", "error", err, "remote_addr", r.RemoteAddr)
		s.respondText(w, http.StatusBadRequest, "ignored")
		return
	}

	ev.EventID = uuid.NewString()
	s.logger.Info("event received",
		"event_id", ev.EventID,
		"post_type", ev.PostType,
		"message_type", ev.MessageType,
		"request_id", middleware.GetReqID(r.Context()),
	)
	s.queue.Push(&ev)
	s.respondText(w, http.StatusOK, "OK")
}

// handleHealth reports liveness plus the queue depth signal.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"workers":     s.workers,
		"queue_depth": s.queue.Depth(),
	})
}

func (s *Server) respondText(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
