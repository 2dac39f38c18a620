// Package authz gates operations on the caller's role.
package authz

import (
	"fmt"

	"github.com/ppiankov/truescope/internal/model"
)

// Reviewers may move claims through the verification workflow
var Reviewers = []model.Role{model.RoleReviewer, model.RoleAdmin}

// Require returns model.ErrUnauthorized for a nil identity and a wrapped
// model.ErrForbidden when the identity's role is not in allowed.
func Require(id *model.Identity, allowed ...model.Role) error {
	if id == nil {
		return model.ErrUnauthorized
	}
	for _, r := range allowed {
		if id.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q not permitted", model.ErrForbidden, id.Role)
}

// RequireAuthenticated accepts any known identity
func RequireAuthenticated(id *model.Identity) error {
	return Require(id, model.RoleUser, model.RoleReviewer, model.RoleAdmin)
}
