package model

import (
	"time"
	"unicode/utf8"
)

// MetadataFieldMax is the maximum length, in characters, of each metadata field
const MetadataFieldMax = 300

// Claim represents a unit of content submitted for fact-verification
type Claim struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"type"`
	URL         string    `json:"url,omitempty"`  // Set iff Kind == KindURL
	Text        string    `json:"text,omitempty"` // Set iff Kind == KindText
	Tags        []string  `json:"tags"`           // Lowercase, trimmed, deduplicated
	Metadata    Metadata  `json:"metadata"`       // Best-effort preview, URL claims only
	Status      Status    `json:"status"`
	SubmittedBy string    `json:"submittedBy"` // Identity id of the creator
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Kind is the content type of a claim, fixed at creation
type Kind string

const (
	KindURL  Kind = "url"  // Claim points at a web page
	KindText Kind = "text" // Claim is free text
)

// Valid reports whether k is a known claim kind
func (k Kind) Valid() bool {
	return k == KindURL || k == KindText
}

// Status is the verification state of a claim
type Status string

const (
	StatusUnverified   Status = "unverified"    // Initial state
	StatusUnderReview  Status = "under_review"  // Picked up by a reviewer
	StatusVerifiedTrue Status = "verified_true" // Terminal
	StatusMisleading   Status = "misleading"    // Terminal
	StatusFalse        Status = "false"         // Terminal
)

// Statuses lists every verification state in lifecycle order
var Statuses = []Status{
	StatusUnverified,
	StatusUnderReview,
	StatusVerifiedTrue,
	StatusMisleading,
	StatusFalse,
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Metadata is the page preview extracted for URL claims.
// Every field is independently optional.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
}

// IsZero reports whether no field was populated
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// Truncated returns a copy with every field capped at MetadataFieldMax characters
func (m Metadata) Truncated() Metadata {
	return Metadata{
		Title:       TruncateRunes(m.Title, MetadataFieldMax),
		Description: TruncateRunes(m.Description, MetadataFieldMax),
		Image:       TruncateRunes(m.Image, MetadataFieldMax),
		SiteName:    TruncateRunes(m.SiteName, MetadataFieldMax),
	}
}

// TruncateRunes cuts s to at most max characters without splitting a rune
func TruncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
