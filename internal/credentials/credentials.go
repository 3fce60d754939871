// Package credentials provides the bearer-token providers consumed by the
// connection manager and the token refresh scheduler.
//
// The server verifies token signatures; the client side only needs to know
// whether the token it holds is still worth presenting, so the JWT provider
// checks the exp claim locally without validating the signature.
package credentials

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Provider supplies the bearer token attached at transport construction and
// answers periodic validity checks from the refresh scheduler.
type Provider interface {
	// HasValidToken reports whether the currently held token is usable.
	HasValidToken() bool

	// CurrentToken returns the token, or ok=false when none is held.
	CurrentToken() (token string, ok bool)
}

// Static is a fixed-token provider with an optional expiry. Zero expiry
// means the token never goes stale. Used for opaque (non-JWT) tokens and in
// tests.
type Static struct {
	token     string
	expiresAt time.Time
}

// NewStatic creates a provider for a token with no known expiry.
func NewStatic(token string) *Static {
	return &Static{token: token}
}

// NewStaticWithExpiry creates a provider whose token expires at the given time.
func NewStaticWithExpiry(token string, expiresAt time.Time) *Static {
	return &Static{token: token, expiresAt: expiresAt}
}

func (s *Static) HasValidToken() bool {
	if s.token == "" {
		return false
	}
	if s.expiresAt.IsZero() {
		return true
	}
	return time.Now().Before(s.expiresAt)
}

func (s *Static) CurrentToken() (string, bool) {
	if s.token == "" {
		return "", false
	}
	return s.token, true
}

// JWT holds a JWT bearer token and derives validity from its exp claim.
// The token may be swapped at runtime when an external login flow refreshes it.
type JWT struct {
	leeway time.Duration

	mu    sync.RWMutex
	token string
}

// NewJWT creates a JWT provider. The token is parsed once up front so a
// malformed token fails at construction rather than on first use. Leeway
// treats the token as stale that long before its actual expiry, leaving
// headroom for in-flight requests.
func NewJWT(token string, leeway time.Duration) (*JWT, error) {
	if _, err := parseExpiry(token); err != nil {
		return nil, err
	}
	return &JWT{token: token, leeway: leeway}, nil
}

// SetToken replaces the held token.
func (p *JWT) SetToken(token string) error {
	if _, err := parseExpiry(token); err != nil {
		return err
	}
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return nil
}

func (p *JWT) HasValidToken() bool {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	exp, err := parseExpiry(token)
	if err != nil {
		return false
	}
	if exp == nil {
		// No exp claim: nothing to go stale.
		return true
	}
	return time.Now().Add(p.leeway).Before(exp.Time)
}

func (p *JWT) CurrentToken() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token == "" {
		return "", false
	}
	return p.token, true
}

// parseExpiry extracts the exp claim without verifying the signature.
func parseExpiry(token string) (*jwt.NumericDate, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("read exp claim: %w", err)
	}
	return exp, nil
}
