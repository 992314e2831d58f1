package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/alphabot-ai/confessional/internal/store/memory"
	"github.com/alphabot-ai/confessional/internal/store/sqlite"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	st := memory.New()
	return NewService(st, "admin", string(hash)), st
}

func TestLoginLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, "admin", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !svc.IsAuthorized(ctx, token) {
		t.Fatalf("expected token to be authorized")
	}
	if err := svc.Authorize(ctx, token); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if svc.IsAuthorized(ctx, token) {
		t.Fatalf("expected token to be revoked")
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := svc.Authorize(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	cases := []struct{ user, pass string }{
		{"admin", "wrong"},
		{"root", "s3cret"},
		{"", ""},
	}
	for _, c := range cases {
		if _, err := svc.Login(ctx, c.user, c.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login(%q, %q): expected ErrInvalidCredentials, got %v", c.user, c.pass, err)
		}
	}
	if n, _ := st.CountSessions(ctx); n != 0 {
		t.Fatalf("expected no sessions, got %d", n)
	}
}

func TestTokensAreUnique(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		token, err := svc.Login(ctx, "admin", "s3cret")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		if !strings.Contains(token, ".") {
			t.Fatalf("unexpected token shape %q", token)
		}
		seen[token] = true
	}
}

func TestEmptyTokenNeverAuthorized(t *testing.T) {
	svc, _ := newTestService(t)
	if svc.IsAuthorized(context.Background(), "") {
		t.Fatalf("empty token authorized")
	}
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("logout empty: %v", err)
	}
}

func TestSessionsInSQLiteStore(t *testing.T) {
	st, err := sqlite.Open(sqlite.MemoryDSN("auth_sessions"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc := NewService(st, "admin", hash)
	ctx := context.Background()

	token, err := svc.Login(ctx, "admin", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !svc.IsAuthorized(ctx, token) {
		t.Fatalf("expected token to be authorized")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def": "abc.def",
		"bearer  xyz ":   "xyz",
		"Basic abc":      "",
		"":               "",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
