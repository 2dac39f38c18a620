// Package claims implements the claim lifecycle: creation with enrichment,
// listing, lookup and reviewer-gated status transitions.
package claims

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/truescope/internal/authz"
	"github.com/ppiankov/truescope/internal/enrich"
	"github.com/ppiankov/truescope/internal/logging"
	"github.com/ppiankov/truescope/internal/metrics"
	"github.com/ppiankov/truescope/internal/model"
	"github.com/ppiankov/truescope/internal/store"
	"github.com/ppiankov/truescope/internal/transition"
	"github.com/ppiankov/truescope/internal/validate"
)

// CreateInput is a claim submission. Only the field matching Type is read.
type CreateInput struct {
	Type string   `json:"type"`
	URL  string   `json:"url,omitempty"`
	Text string   `json:"text,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// TransitionInput requests a status change
type TransitionInput struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// ListFilter narrows a listing. Empty fields match everything.
type ListFilter struct {
	Query  string
	Status string
	Tag    string
}

// Service orchestrates the store, the enricher and the transition policy
type Service struct {
	store    store.Store
	enricher enrich.Enricher
	recorder TransitionRecorder
	metrics  *metrics.Metrics
	logger   logging.Logger
	now      func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithRecorder sets the transition audit hook
func WithRecorder(r TransitionRecorder) Option { return func(s *Service) { s.recorder = r } }

// WithMetrics enables counters
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService wires a service. A nil enricher disables enrichment.
func NewService(st store.Store, en enrich.Enricher, opts ...Option) *Service {
	if en == nil {
		en = enrich.Nop{}
	}
	s := &Service{
		store:    st,
		enricher: en,
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recorder == nil {
		s.recorder = NewLogRecorder(s.logger)
	}
	return s
}

// Create validates and stores a new claim submitted by id. URL claims are
// enriched first; enrichment never causes Create to fail.
func (s *Service) Create(ctx context.Context, id *model.Identity, in CreateInput) (*model.Claim, error) {
	if err := authz.RequireAuthenticated(id); err != nil {
		return nil, err
	}

	kind, err := validate.Kind(in.Type)
	if err != nil {
		return nil, err
	}
	tags, err := validate.Tags(in.Tags)
	if err != nil {
		return nil, err
	}

	c := model.Claim{Kind: kind, Tags: tags, SubmittedBy: id.ID}
	switch kind {
	case model.KindURL:
		if c.URL, err = validate.URL(in.URL); err != nil {
			return nil, err
		}
		c.Metadata = s.enricher.Fetch(ctx, c.URL).Truncated()
	case model.KindText:
		if c.Text, err = validate.Text(in.Text); err != nil {
			return nil, err
		}
	}

	stored, err := s.store.Insert(ctx, c)
	if err != nil {
		return nil, err
	}

	s.metrics.ClaimCreated(string(stored.Kind))
	s.logger.WithFields(logrus.Fields{
		"claim_id": stored.ID,
		"kind":     stored.Kind,
		"actor":    id.ID,
		"enriched": !stored.Metadata.IsZero(),
	}).Info("claim created")
	return stored, nil
}

// List returns one page of claims, newest first. Page and size are clamped.
func (s *Service) List(ctx context.Context, f ListFilter, page, size int) ([]model.Claim, error) {
	return s.store.Query(ctx, store.Filter{
		Status: model.Status(f.Status),
		Tag:    f.Tag,
		Query:  model.TruncateRunes(f.Query, validate.QueryMax),
	}, page, size)
}

// Get looks up one claim
func (s *Service) Get(ctx context.Context, id string) (*model.Claim, error) {
	return s.store.FindByID(ctx, id)
}

// TransitionStatus moves a claim along the verification graph. Checks run in
// order: identity, role, input, existence, policy, then the optimistic write.
func (s *Service) TransitionStatus(ctx context.Context, id *model.Identity, claimID string, in TransitionInput) (*model.Claim, error) {
	if err := authz.Require(id, authz.Reviewers...); err != nil {
		return nil, err
	}

	next, err := validate.Status(in.Status)
	if err != nil {
		return nil, err
	}
	note, err := validate.Note(in.Note)
	if err != nil {
		return nil, err
	}

	current, err := s.store.FindByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := transition.Check(current.Status, next); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateStatus(ctx, claimID, current.Status, next)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			s.metrics.TransitionConflict()
			s.logger.WithFields(logrus.Fields{
				"claim_id": claimID,
				"from":     current.Status,
				"to":       next,
				"actor":    id.ID,
			}).Warn("status transition lost to a concurrent update")
		}
		return nil, err
	}

	s.metrics.Transition(string(current.Status), string(next))

	rec := TransitionRecord{
		ClaimID:   claimID,
		From:      current.Status,
		To:        next,
		ActorID:   id.ID,
		ActorRole: id.Role,
		Note:      note,
		Final:     transition.IsTerminal(next),
		At:        s.now().UTC(),
	}
	if err := s.recorder.RecordTransition(ctx, rec); err != nil {
		// The status change is already committed
		s.logger.WithError(err).WithField("claim_id", claimID).Error("transition recorder failed")
	}

	return updated, nil
}
