package claims

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/truescope/internal/logging"
	"github.com/ppiankov/truescope/internal/model"
)

// TransitionRecord describes one committed status change
type TransitionRecord struct {
	ClaimID   string
	From      model.Status
	To        model.Status
	ActorID   string
	ActorRole model.Role
	Note      string // Reviewer note, at most 200 characters, may be empty
	Final     bool   // To is a verdict; the claim will not move again
	At        time.Time
}

// TransitionRecorder is notified after every successful transition. It is
// the hook for an audit trail; nothing is persisted by default.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, rec TransitionRecord) error
}

// LogRecorder writes each transition as an info log line
type LogRecorder struct {
	logger logging.Logger
}

// NewLogRecorder creates a recorder on logger
func NewLogRecorder(logger logging.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// RecordTransition logs rec
func (r *LogRecorder) RecordTransition(_ context.Context, rec TransitionRecord) error {
	r.logger.WithFields(logrus.Fields{
		"claim_id": rec.ClaimID,
		"from":     rec.From,
		"to":       rec.To,
		"actor":    rec.ActorID,
		"role":     rec.ActorRole,
		"note":     rec.Note,
		"final":    rec.Final,
		"at":       rec.At.Format(time.RFC3339),
	}).Info("claim status changed")
	return nil
}

// RecorderFunc adapts a function to TransitionRecorder
type RecorderFunc func(ctx context.Context, rec TransitionRecord) error

// RecordTransition calls f
func (f RecorderFunc) RecordTransition(ctx context.Context, rec TransitionRecord) error {
	return f(ctx, rec)
}
