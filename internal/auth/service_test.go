package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService(nil, ServiceConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})

	user := &User{ID: 42, Username: "alice", Role: "admin"}
	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "admin" || claims.Subject != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Fatalf("token should carry a future expiry")
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	issuer := NewService(nil, ServiceConfig{JWTSecret: "secret-a", TokenTTL: time.Hour})
	verifier := NewService(nil, ServiceConfig{JWTSecret: "secret-b", TokenTTL: time.Hour})

	token, err := issuer.IssueToken(&User{ID: 1, Username: "bob", Role: "student"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := verifier.ParseToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	svc := NewService(nil, ServiceConfig{JWTSecret: "test-secret", TokenTTL: time.Millisecond})

	token, err := svc.IssueToken(&User{ID: 1, Username: "bob", Role: "student"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := svc.ParseToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestParseTokenGarbage(t *testing.T) {
	svc := NewService(nil, ServiceConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	if _, err := svc.ParseToken("not.a.token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
