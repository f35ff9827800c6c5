package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", RoleName: RoleHR}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.UserID != claims.UserID || parsed.RoleName != claims.RoleName {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u1", RoleName: RoleTrainer}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected signature error")
	}

	expired, err := GenerateToken("secret-a", Claims{UserID: "u1", RoleName: RoleTrainer}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-a", expired); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	token, err := GenerateToken("s", Claims{UserID: "u1", RoleName: "JANITOR"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("s", token); err == nil {
		t.Fatal("expected claims error")
	}
}

type fakeUsers map[string]AuthUser

func (f fakeUsers) FindUser(_ context.Context, id string) (AuthUser, error) {
	u, ok := f[id]
	if !ok {
		return AuthUser{}, ErrUserNotFound
	}
	return u, nil
}

func TestIssueToken(t *testing.T) {
	svc := NewService(fakeUsers{
		"admin": {ID: "admin", RoleName: RoleAdmin, Status: StatusActive},
		"gone":  {ID: "gone", RoleName: RoleTrainer, Status: "INACTIVE"},
	}, "s")

	token, user, err := svc.IssueToken(context.Background(), "admin", time.Hour)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if user.RoleName != RoleAdmin {
		t.Fatalf("unexpected user %+v", user)
	}
	claims, err := ParseToken("s", token)
	if err != nil || claims.RoleName != RoleAdmin {
		t.Fatalf("unexpected claims %+v, %v", claims, err)
	}

	if _, _, err := svc.IssueToken(context.Background(), "gone", time.Hour); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected inactive error, got %v", err)
	}
	if _, _, err := svc.IssueToken(context.Background(), "missing", time.Hour); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
