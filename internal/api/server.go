// Package api exposes the HTTP surface: observation intake, product
// summaries, wishlist management, scan triggering and alert queries.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/pricewatch/internal/metrics"
	"github.com/JakeFAU/pricewatch/internal/pipeline"
	"github.com/JakeFAU/pricewatch/internal/tracker"
)

// Tracker is the slice of the pipeline the HTTP layer needs.
type Tracker interface {
	Observe(ctx context.Context, c tracker.Candidate) (tracker.Outcome, error)
	Summary(ctx context.Context, key string) (*tracker.Summary, error)
	Toggle(ctx context.Context, key string, meta tracker.Meta) (bool, error)
	SetTarget(ctx context.Context, key string, value float64) error
	Wishlist(ctx context.Context) ([]tracker.WishlistEntry, error)
	RecentAlerts(ctx context.Context, n int) ([]tracker.Alert, error)
}

// ScanTrigger starts a background scan and returns its id.
type ScanTrigger interface {
	RunAsync(ctx context.Context) (string, error)
}

// Config carries the server dependencies and knobs.
type Config struct {
	Tracker Tracker
	Scans   ScanTrigger
	Logger  *zap.Logger

	// APIKey, when non-empty, gates the /v1 routes.
	APIKey string

	// RequestTimeout bounds handler execution. Zero disables the
	// timeout middleware.
	RequestTimeout time.Duration
}

// Server is the HTTP front end.
type Server struct {
	tracker Tracker
	scans   ScanTrigger
	logger  *zap.Logger
	router  chi.Router
}

// NewServer wires the router, middleware chain and routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Tracker == nil {
		return nil, errors.New("api: tracker is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	metrics.Init()

	s := &Server{
		tracker: cfg.Tracker,
		scans:   cfg.Scans,
		logger:  cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	if cfg.RequestTimeout > 0 {
		r.Use(timeoutMiddleware(cfg.RequestTimeout))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Post("/observations", s.handleObserve)
		r.Get("/products/{key}/summary", s.handleSummary)
		r.Get("/wishlist", s.handleWishlist)
		r.Post("/wishlist", s.handleToggle)
		r.Put("/wishlist/{key}/target", s.handleSetTarget)
		r.Get("/alerts", s.handleAlerts)
		r.Post("/scan", s.handleScan)
	})

	s.router = r
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	// Readiness mirrors liveness: the server has no lazy-connecting
	// dependencies once NewServer returns.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	var c tracker.Candidate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if c.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	out, err := s.tracker.Observe(r.Context(), c)
	if err != nil {
		s.logger.Error("observation failed", zap.String("url", c.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "observation failed")
		return
	}
	status := http.StatusAccepted
	if !out.Accepted && !out.Deduplicated {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	key, ok := productKeyParam(w, r)
	if !ok {
		return
	}
	sum, err := s.tracker.Summary(r.Context(), key)
	if err != nil {
		s.logger.Error("summary failed", zap.String("product_key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "summary failed")
		return
	}
	if len(sum.History) == 0 && sum.WishlistItem == nil {
		writeError(w, http.StatusNotFound, "unknown product")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleWishlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.tracker.Wishlist(r.Context())
	if err != nil {
		s.logger.Error("wishlist listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "wishlist listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var meta tracker.Meta
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if meta.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	key := tracker.ProductKey(meta.URL)
	added, err := s.tracker.Toggle(r.Context(), key, meta)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidTarget) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("wishlist toggle failed", zap.String("product_key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "wishlist toggle failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_key": key, "added": added})
}

func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	key, ok := productKeyParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Target float64 `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if err := s.tracker.SetTarget(r.Context(), key, req.Target); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNotInWishlist):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, pipeline.ErrInvalidTarget):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("set target failed", zap.String("product_key", key), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "set target failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_key": key, "target": req.Target})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	alerts, err := s.tracker.RecentAlerts(r.Context(), limit)
	if err != nil {
		s.logger.Error("alert listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "alert listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scans == nil {
		writeError(w, http.StatusServiceUnavailable, "scanning is not configured")
		return
	}
	// Detach from the request context so the scan survives the
	// response being written.
	scanID, err := s.scans.RunAsync(context.WithoutCancel(r.Context()))
	if err != nil {
		s.logger.Error("scan trigger failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan trigger failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": scanID})
}

// productKeyParam pulls the {key} path parameter. Keys contain slashes,
// so callers percent-encode them and we decode here.
func productKeyParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "key")
	key, err := url.PathUnescape(raw)
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "invalid product key")
		return "", false
	}
	return key, true
}

type requestIDKey struct{}

// RequestIDFrom returns the request id placed on the context by the
// middleware, or the empty string.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", RequestIDFrom(r.Context())),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timed out"}`)
	}
}

func apiKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")
			if got == "" {
				got = r.URL.Query().Get("api_key")
			}
			if got != key {
				writeError(w, http.StatusForbidden, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// responseWriter captures the status code for logging while passing
// through the optional interfaces chi handlers rely on.
type responseWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (rw *responseWriter) WriteHeader(status int) {
	if !rw.wrote {
		rw.status = status
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
