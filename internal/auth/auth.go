// Package auth checks the shared admin credential and guards administrative
// operations on the resulting session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/alphabot-ai/confessional/internal/logging"
	"github.com/alphabot-ai/confessional/internal/metrics"
	"github.com/alphabot-ai/confessional/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Service holds one admin identity. A token is valid exactly while it is a
// member of the session store; there is no expiry.
type Service struct {
	sessions     store.SessionStore
	username     string
	passwordHash []byte
	now          func() time.Time
}

func NewService(sessions store.SessionStore, username, passwordHash string) *Service {
	return &Service{
		sessions:     sessions,
		username:     username,
		passwordHash: []byte(passwordHash),
		now:          time.Now,
	}
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		logging.Ctx(ctx).Warn().Str("username", username).Msg("admin login rejected")
		return "", ErrInvalidCredentials
	}

	token, err := s.newToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.CreateSession(ctx, token); err != nil {
		return "", err
	}
	s.observeSessions(ctx)
	logging.Ctx(ctx).Info().Msg("admin logged in")
	return token, nil
}

// Logout forgets token. Unknown and empty tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return err
	}
	s.observeSessions(ctx)
	return nil
}

func (s *Service) IsAuthorized(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ok, err := s.sessions.SessionExists(ctx, token)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("session lookup failed")
		return false
	}
	return ok
}

// Authorize returns ErrUnauthorized unless token belongs to a live session.
func (s *Service) Authorize(ctx context.Context, token string) error {
	if !s.IsAuthorized(ctx, token) {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) observeSessions(ctx context.Context) {
	n, err := s.sessions.CountSessions(ctx)
	if err != nil {
		return
	}
	metrics.ActiveSessions.Set(float64(n))
}

// newToken joins a time component with 32 random bytes.
func (s *Service) newToken() (string, error) {
	random, err := randomToken(32)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(s.now().UnixNano(), 36) + "." + random, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
