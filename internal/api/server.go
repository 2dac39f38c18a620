// Package api exposes the claims service over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/truescope/internal/claims"
	"github.com/ppiankov/truescope/internal/identity"
	"github.com/ppiankov/truescope/internal/logging"
	"github.com/ppiankov/truescope/internal/metrics"
	"github.com/ppiankov/truescope/internal/model"
	"github.com/ppiankov/truescope/internal/ratelimit"
	"github.com/ppiankov/truescope/internal/store"
)

// ClaimService is the subset of claims.Service the HTTP layer uses
type ClaimService interface {
	Create(ctx context.Context, id *model.Identity, in claims.CreateInput) (*model.Claim, error)
	List(ctx context.Context, f claims.ListFilter, page, size int) ([]model.Claim, error)
	Get(ctx context.Context, id string) (*model.Claim, error)
	TransitionStatus(ctx context.Context, id *model.Identity, claimID string, in claims.TransitionInput) (*model.Claim, error)
}

// Config wires the server's collaborators. Claims and Resolver are required.
type Config struct {
	Claims       ClaimService
	Resolver     identity.Resolver
	Limiter      *ratelimit.Limiter // nil disables API rate limiting
	Metrics      *metrics.Metrics   // nil disables /metrics
	Logger       logging.Logger
	MaxBodyBytes int64
	Health       func(ctx context.Context) error // Readiness probe, optional
}

// Server holds handler dependencies
type Server struct {
	claims       ClaimService
	resolver     identity.Resolver
	limiter      *ratelimit.Limiter
	metrics      *metrics.Metrics
	logger       logging.Logger
	maxBodyBytes int64
	health       func(ctx context.Context) error
}

// NewRouter builds the HTTP handler
func NewRouter(cfg Config) http.Handler {
	s := &Server{
		claims:       cfg.Claims,
		resolver:     cfg.Resolver,
		limiter:      cfg.Limiter,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		maxBodyBytes: cfg.MaxBodyBytes,
		health:       cfg.Health,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = 1 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/claims", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.limitBody)

		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/", s.handleCreate)
			r.Put("/{id}/status", s.handleTransition)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		s.writeServiceError(w, r, model.ErrUnauthorized)
		return
	}

	var in claims.CreateInput
	if !s.decode(w, r, &in) {
		return
	}

	c, err := s.claims.Create(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size := store.ClampPage(
		queryInt(q.Get("page"), 1),
		queryInt(q.Get("limit"), store.DefaultPageSize),
	)

	list, err := s.claims.List(r.Context(), claims.ListFilter{
		Query:  strings.TrimSpace(q.Get("q")),
		Status: strings.TrimSpace(q.Get("status")),
		Tag:    strings.TrimSpace(q.Get("tag")),
	}, page, size)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Claim{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.claims.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == nil {
		// Identity is checked before the body is read
		s.writeServiceError(w, r, model.ErrUnauthorized)
		return
	}

	var in claims.TransitionInput
	if !s.decode(w, r, &in) {
		return
	}

	c, err := s.claims.TransitionStatus(r.Context(), id, chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// decode reads a single JSON object into v, writing the error response itself on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, "malformed JSON body")
		}
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "request body must be a single JSON object")
		return false
	}
	return true
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}
