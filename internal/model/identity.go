package model

// Role is the privilege tier of an authenticated actor
type Role string

const (
	RoleUser     Role = "user"     // Can submit claims
	RoleReviewer Role = "reviewer" // Can move claims through review
	RoleAdmin    Role = "admin"    // Reviewer privileges plus administration
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleReviewer, RoleAdmin:
		return true
	default:
		return false
	}
}

// Identity is the verified actor behind a request
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
