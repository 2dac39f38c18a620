package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/truescope/internal/model"
	"github.com/ppiankov/truescope/internal/transition"
)

type errorBody struct {
	Error string       `json:"error"`
	Field string       `json:"field,omitempty"`
	From  model.Status `json:"from,omitempty"`
	To    model.Status `json:"to,omitempty"`

	Allowed []model.Status `json:"allowed,omitempty"` // Legal targets from From
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter / time.Second)
	if retryAfter%time.Second != 0 {
		secs++
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, "too many requests")
}

// statusFor maps the error taxonomy onto HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err. Internal failures are logged and hidden
// behind a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorBody{Error: http.StatusText(code)}

	var ve *model.ValidationError
	var te *model.TransitionError
	switch {
	case errors.As(err, &ve):
		body.Error = ve.Error()
		body.Field = ve.Field
	case errors.As(err, &te):
		body.Error = te.Error()
		body.From, body.To = te.From, te.To
		body.Allowed = transition.Next(te.From)
	case code == http.StatusConflict:
		body.Error = "claim status changed concurrently; reload and retry"
	case code == http.StatusInternalServerError:
		s.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("request failed")
	}

	writeJSON(w, code, body)
}
