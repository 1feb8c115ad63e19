package auth

import (
	"errors"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)

	raw, expiresAt, err := manager.GenerateAccessToken(Identity{UserID: 42, Role: "moderator", Name: "mod"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected expiry in the future, got %v", expiresAt)
	}

	identity, err := manager.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.UserID != 42 || identity.Role != RoleModerator || identity.Name != "mod" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.TokenID == "" {
		t.Fatalf("expected token id")
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	raw, _, err := NewJWTManager("one", time.Hour).GenerateAccessToken(Identity{UserID: 1, Role: RoleOwner})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewJWTManager("two", time.Hour).ParseAccessToken(raw); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("secret", time.Minute)
	issued := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	raw, _, err := manager.GenerateAccessToken(Identity{UserID: 1, Role: RoleOwner})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	manager.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := manager.ParseAccessToken(raw); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestGenerateRejectsUnknownRole(t *testing.T) {
	_, _, err := NewJWTManager("secret", time.Hour).GenerateAccessToken(Identity{UserID: 1, Role: "USER"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUnconfiguredManagerRejectsEverything(t *testing.T) {
	manager := NewJWTManager(" ", time.Hour)
	if manager.Configured() {
		t.Fatalf("blank secret must not count as configured")
	}
	if _, err := manager.ParseAccessToken("abc"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
