package save

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a CSRF token is missing or does not match.
var ErrInvalidToken = errors.New("save: invalid csrf token")

// TokenChecker validates the CSRF token posted with a save request.
type TokenChecker interface {
	Check(ctx context.Context, session, token string) error
}

// TokenCheckerFunc adapts a function into a TokenChecker.
type TokenCheckerFunc func(ctx context.Context, session, token string) error

// Check calls the underlying function.
func (fn TokenCheckerFunc) Check(ctx context.Context, session, token string) error {
	return fn(ctx, session, token)
}

// SessionTokens keeps one random token per session id.
type SessionTokens struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewSessionTokens returns an empty token table.
func NewSessionTokens() *SessionTokens {
	return &SessionTokens{tokens: make(map[string]string)}
}

// Token returns the token for session, minting one on first use.
func (s *SessionTokens) Token(session string) string {
	session = strings.TrimSpace(session)
	s.mu.RLock()
	token, ok := s.tokens[session]
	s.mu.RUnlock()
	if ok {
		return token
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.tokens[session]; ok {
		return token
	}
	token = uuid.NewString()
	s.tokens[session] = token
	return token
}

// Revoke forgets the token of session.
func (s *SessionTokens) Revoke(session string) {
	s.mu.Lock()
	delete(s.tokens, strings.TrimSpace(session))
	s.mu.Unlock()
}

func (s *SessionTokens) Check(ctx context.Context, session, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	expected, ok := s.tokens[strings.TrimSpace(session)]
	s.mu.RUnlock()
	if !ok || token == "" {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return ErrInvalidToken
	}
	return nil
}
