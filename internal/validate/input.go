// Package validate checks and normalizes claim input.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/truescope/internal/model"
)

// Input limits
const (
	URLMax    = 2048
	TextMin   = 10
	TextMax   = 10000
	TagsMax   = 20
	TagLenMax = 50
	NoteMax   = 200
	QueryMax  = 200
)

var v = validator.New()

var statusTag = func() string {
	names := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		names[i] = string(s)
	}
	return "required,oneof=" + strings.Join(names, " ")
}()

// Kind parses a claim type
func Kind(raw string) (model.Kind, error) {
	k := model.Kind(strings.TrimSpace(raw))
	if err := check("type", string(k), "required,oneof=url text"); err != nil {
		return "", err
	}
	return k, nil
}

// URL trims and checks an absolute URL
func URL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if err := check("url", u, fmt.Sprintf("required,max=%d,http_url", URLMax)); err != nil {
		return "", err
	}
	return u, nil
}

// Text trims free-text content and enforces its length bounds in characters
func Text(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if err := check("text", s, fmt.Sprintf("required,min=%d,max=%d", TextMin, TextMax)); err != nil {
		return "", err
	}
	return s, nil
}

// Tags normalizes tags (trim, lowercase, drop empties, deduplicate) and
// checks the result. Order of first occurrence is preserved.
func Tags(raw []string) ([]string, error) {
	tags := NormalizeTags(raw)
	if err := check("tags", tags, fmt.Sprintf("max=%d,dive,max=%d", TagsMax, TagLenMax)); err != nil {
		return nil, err
	}
	return tags, nil
}

// NormalizeTags applies tag normalization without limits
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// Status parses a requested verification status
func Status(raw string) (model.Status, error) {
	s := strings.TrimSpace(raw)
	if err := check("status", s, statusTag); err != nil {
		return "", err
	}
	return model.Status(s), nil
}

// Note trims the optional transition note and caps its length
func Note(raw string) (string, error) {
	n := strings.TrimSpace(raw)
	if err := check("note", n, fmt.Sprintf("max=%d", NoteMax)); err != nil {
		return "", err
	}
	return n, nil
}

func check(field string, value any, tag string) error {
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &model.ValidationError{Field: field, Reason: reason(verrs[0])}
	}
	return &model.ValidationError{Field: field, Reason: err.Error()}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "http_url":
		return "must be an absolute http or https URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		if fe.Kind().String() == "slice" {
			return "must have at most " + fe.Param() + " entries"
		}
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
