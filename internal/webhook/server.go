// Package webhook is the serve-mode delivery shim: it receives GitHub
// webhook POSTs, verifies their HMAC signature, and hands each one to
// the dispatcher exactly once. The routing core never depends on HTTP.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/deliveries"
	"github.com/forgebot/forgebot/internal/dispatch"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/log"
)

// Server receives GitHub webhook deliveries and dispatches them.
type Server struct {
	cfg        config.WebhookConfig
	dispatcher EventDispatcher
	store      *deliveries.Store
	hub        *events.Hub
	logger     *slog.Logger
	server     *http.Server
}

// New creates a webhook server. store and hub may be nil.
func New(cfg config.WebhookConfig, dispatcher EventDispatcher, store *deliveries.Store, hub *events.Hub) *Server {
	if cfg.Path == "" {
		cfg.Path = config.DefaultWebhookPath
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = config.DefaultSignatureHeader
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = config.DefaultMaxBodySize
	}

	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		store:      store,
		hub:        hub,
		logger:     log.WithComponent("webhook"),
	}
}

// Start starts the webhook HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.cfg.Listen, "path", s.cfg.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Routes configures the HTTP router.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post(s.cfg.Path, s.handleDelivery)
	r.Get("/events", s.handleEvents)
	r.Get("/deliveries", s.handleDeliveries)

	return r
}

// loggingMiddleware logs HTTP requests (excludes payload bodies).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleDelivery handles one incoming webhook POST.
func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limitedReader := io.LimitReader(r.Body, s.cfg.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.cfg.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	signature := r.Header.Get(s.cfg.SignatureHeader)
	if err := verifySignature(body, signature, s.cfg.Secret); err != nil {
		s.logger.Warn("webhook signature verification failed", "path", r.URL.Path)
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	eventName := r.Header.Get("X-GitHub-Event")
	if eventName == "" {
		s.respondError(w, http.StatusBadRequest, "missing X-GitHub-Event header")
		return
	}
	deliveryID := r.Header.Get("X-GitHub-Delivery")

	receivedAt := time.Now()
	summary, err := s.dispatcher.Dispatch(ctx, eventName, deliveryID, body)
	if err != nil {
		s.logger.Error("dispatch failed", "event", eventName, "delivery_id", deliveryID, "error", err)
		s.respondError(w, http.StatusBadRequest, "dispatch failed")
		return
	}

	s.record(ctx, summary, eventName, receivedAt)

	s.respondJSON(w, http.StatusAccepted, AcceptedResponse{
		DeliveryID: summary.Outputs["event_guid"],
		Category:   string(summary.Category),
		Handlers:   len(summary.Results),
	})
}

// record writes the delivery row; failures are logged, never surfaced to
// the sender (the dispatch already happened).
func (s *Server) record(ctx context.Context, summary *dispatch.Summary, eventName string, receivedAt time.Time) {
	if s.store == nil {
		return
	}

	err := s.store.Record(ctx, deliveries.Delivery{
		ID:          summary.Outputs["event_guid"],
		Event:       eventName,
		Repository:  summary.Outputs["repository"],
		Category:    string(summary.Category),
		ReceivedAt:  receivedAt,
		CompletedAt: time.Now(),
		Results:     summary.Results,
	})
	if err != nil {
		s.logger.Error("failed to record delivery", "delivery_id", summary.Outputs["event_guid"], "error", err)
	}
}

// handleEvents returns the hub's buffered lifecycle events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.respondJSON(w, http.StatusOK, []events.Event{})
		return
	}

	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		since, _ = strconv.ParseInt(v, 10, 64)
	}
	s.respondJSON(w, http.StatusOK, s.hub.SnapshotSince(since))
}

// handleDeliveries returns recent deliveries, newest first.
func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondJSON(w, http.StatusOK, []deliveries.Delivery{})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list deliveries", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}
	if rows == nil {
		rows = []deliveries.Delivery{}
	}
	s.respondJSON(w, http.StatusOK, rows)
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
