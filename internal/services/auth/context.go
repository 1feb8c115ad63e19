package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

const (
	RoleOwner     = "OWNER"
	RoleModerator = "MODERATOR"
)

func NormalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}

func ValidRole(role string) bool {
	switch NormalizeRole(role) {
	case RoleOwner, RoleModerator:
		return true
	default:
		return false
	}
}

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

type Identity struct {
	UserID    int64
	Role      string
	Name      string
	TokenID   string
	ExpiresAt time.Time
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
