// Package session supplies the token bundle used by authenticated billing calls.
package session

import (
	"errors"
	"sync"

	"github.com/j-veylop/quota-autopay/internal/logger"
	"github.com/j-veylop/quota-autopay/internal/models"
)

// ErrExpired is returned when a strict token request finds no session. The
// monitoring run stops on it; the operator has to log in again out-of-band.
var ErrExpired = errors.New("session expired: login required")

// Provider hands out the current token bundle. ok is false when there is no
// session. Implementations may rotate tokens at any time, so callers must not
// cache the result across calls.
type Provider interface {
	Tokens() (models.TokenBundle, bool)
}

// Result is the outcome of a strict token request.
type Result struct {
	Tokens  models.TokenBundle
	Expired bool
}

// Err returns ErrExpired for an expired result and nil otherwise.
func (r Result) Err() error {
	if r.Expired {
		return ErrExpired
	}
	return nil
}

// Acquire performs a strict token request against p. Every authenticated call
// site goes through here immediately before the call.
func Acquire(p Provider) Result {
	if p == nil {
		return Result{Expired: true}
	}
	tokens, ok := p.Tokens()
	if !ok || tokens.IsZero() {
		logger.Warn("session unavailable")
		return Result{Expired: true}
	}
	return Result{Tokens: tokens}
}

// Static is a Provider holding a fixed, replaceable bundle.
type Static struct {
	mu     sync.RWMutex
	tokens models.TokenBundle
}

// NewStatic creates a Static provider. A zero bundle means no session.
func NewStatic(tokens models.TokenBundle) *Static {
	return &Static{tokens: tokens}
}

// Tokens implements Provider.
func (s *Static) Tokens() (models.TokenBundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, !s.tokens.IsZero()
}

// Set replaces the bundle.
func (s *Static) Set(tokens models.TokenBundle) {
	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
}
