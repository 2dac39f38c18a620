// Package identity resolves bearer credentials to a verified actor.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ppiankov/truescope/internal/model"
)

// Resolver turns an opaque credential into an identity.
// Implementations return an error wrapping model.ErrUnauthorized on rejection.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*model.Identity, error)
}

// Claims is the token payload: {id, role} plus registered claims
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Role   string `json:"role"`
}

// JWTResolver verifies HS256 tokens signed with a shared secret
type JWTResolver struct {
	secret []byte
	leeway time.Duration
}

// NewJWTResolver creates a resolver for the given secret
func NewJWTResolver(secret []byte) *JWTResolver {
	return &JWTResolver{secret: secret, leeway: 30 * time.Second}
}

// Resolve validates the token and maps its claims to an identity
func (r *JWTResolver) Resolve(_ context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", model.ErrUnauthorized)
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(r.leeway))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", model.ErrUnauthorized)
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return nil, fmt.Errorf("%w: token has no subject", model.ErrUnauthorized)
	}

	role := model.Role(claims.Role)
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrUnauthorized, claims.Role)
	}

	return &model.Identity{ID: id, Role: role}, nil
}

// Sign issues an HS256 token for id. Used by tooling and tests; the
// production issuer lives outside this service.
func Sign(secret []byte, id model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: id.ID,
		Role:   string(id.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// StaticResolver maps fixed tokens to identities
type StaticResolver map[string]model.Identity

// Resolve looks the token up in the table
func (s StaticResolver) Resolve(_ context.Context, token string) (*model.Identity, error) {
	id, ok := s[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", model.ErrUnauthorized)
	}
	return &id, nil
}

// BearerToken extracts the credential from an Authorization header value.
// ok is false when the header is absent or not a bearer credential.
func BearerToken(header string) (token string, ok bool) {
	scheme, rest, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(rest)
	return token, token != ""
}

type ctxKey struct{}

// WithIdentity attaches id to ctx
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached to ctx, or nil for anonymous callers
func FromContext(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(ctxKey{}).(*model.Identity)
	return id
}

// ErrMalformedHeader is returned by callers that reject non-bearer Authorization headers
var ErrMalformedHeader = errors.New("authorization header must be a bearer token")
