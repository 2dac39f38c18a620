package model

import (
	"errors"
	"strings"
	"testing"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated", 5, "trunc"},
		{"héllo wörld", 4, "héll"},
		{"", 3, ""},
	}

	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestMetadata_Truncated(t *testing.T) {
	long := strings.Repeat("é", MetadataFieldMax+20)
	m := Metadata{Title: long, SiteName: "Example"}.Truncated()

	if n := len([]rune(m.Title)); n != MetadataFieldMax {
		t.Errorf("expected title capped at %d characters, got %d", MetadataFieldMax, n)
	}
	if m.SiteName != "Example" {
		t.Errorf("expected site name untouched, got %q", m.SiteName)
	}
	if m.Description != "" || m.Image != "" {
		t.Error("expected absent fields to stay absent")
	}
}

func TestMetadata_IsZero(t *testing.T) {
	if !(Metadata{}).IsZero() {
		t.Error("empty metadata should be zero")
	}
	if (Metadata{Image: "https://example.com/a.png"}).IsZero() {
		t.Error("metadata with one field should not be zero")
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []Status{"", "approved", "FALSE"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	var err error = &TransitionError{From: StatusUnverified, To: StatusFalse}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("TransitionError should match ErrInvalidTransition")
	}
	if err.Error() != "invalid status transition: unverified -> false" {
		t.Errorf("unexpected message: %s", err)
	}

	err = &ValidationError{Field: "text", Reason: "too short"}
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should match ErrValidation")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("ValidationError should not match ErrNotFound")
	}
}

func TestDefaultConfig_RateLimitWindow(t *testing.T) {
	rl := DefaultConfig().RateLimit
	// Burst plus one minute of refill bounds requests in any minute
	if perMinute := float64(rl.Burst) + 60*rl.RequestsPerSecond; perMinute > 125 {
		t.Errorf("default limit allows %.0f requests per minute, want about 120", perMinute)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without jwt secret")
	}

	cfg.Auth.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults plus secret to validate, got %v", err)
	}

	cfg.Log.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log format")
	}
}
