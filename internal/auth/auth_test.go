package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/domain"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := auth.NewTokenManager("secret", time.Hour, 24*time.Hour)

	pair, err := m.IssuePair(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.RefreshID == "" {
		t.Error("expected refresh token id")
	}

	claims, err := m.ParseAccess(pair.Access)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user 42, got %d", claims.UserID)
	}

	if _, err := m.ParseAccess(pair.Refresh); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected refresh token to be rejected as access, got %v", err)
	}

	refresh, err := m.ParseRefresh(pair.Refresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if refresh.ID != pair.RefreshID {
		t.Errorf("expected jti %s, got %s", pair.RefreshID, refresh.ID)
	}

	access, err := m.NewAccess(refresh)
	if err != nil {
		t.Fatalf("new access: %v", err)
	}
	if _, err := m.ParseAccess(access); err != nil {
		t.Errorf("expected new access token to be valid, got %v", err)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	m := auth.NewTokenManager("secret", time.Hour, 24*time.Hour).WithClock(func() time.Time { return issued })

	pair, err := m.IssuePair(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	m.WithClock(func() time.Time { return issued.Add(2 * time.Hour) })
	if _, err := m.ParseAccess(pair.Access); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected expired access token to be invalid, got %v", err)
	}
	if _, err := m.ParseRefresh(pair.Refresh); err != nil {
		t.Errorf("expected refresh token still valid, got %v", err)
	}

	m.WithClock(func() time.Time { return issued.Add(25 * time.Hour) })
	if _, err := m.ParseRefresh(pair.Refresh); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected expired refresh token to be invalid, got %v", err)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	pair, err := auth.NewTokenManager("one", time.Hour, time.Hour).IssuePair(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := auth.NewTokenManager("two", time.Hour, time.Hour).ParseAccess(pair.Access); err == nil {
		t.Error("expected signature check to fail")
	}
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !auth.CheckPassword(hash, "s3cret!") {
		t.Error("expected password to match")
	}
	if auth.CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
}
