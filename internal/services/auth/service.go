// Package auth verifies the operator bearer token guarding the HTTP API
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/hostguard/internal/dependencies/clock"
)

// Errors
var (
	ErrInvalidToken = errors.New("invalid operator token")
	ErrEmptyToken   = errors.New("operator token must not be empty")
)

// Config holds configuration for the auth service
type Config struct {
	// TokenHash is the bcrypt hash of the operator token. Empty disables
	// authentication.
	TokenHash string
	// CacheDuration is how long a verified token skips the bcrypt check
	CacheDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		CacheDuration: 5 * time.Minute,
	}
}

// Service checks operator tokens against a bcrypt hash
type Service struct {
	hash          []byte
	clock         clock.Clock
	cacheDuration time.Duration

	mu       sync.Mutex
	verified map[[sha256.Size]byte]time.Time
}

// New creates a Service. It fails if the configured hash isn't a bcrypt hash.
func New(clk clock.Clock, cfg Config) (*Service, error) {
	s := &Service{
		clock:         clk,
		cacheDuration: cfg.CacheDuration,
		verified:      make(map[[sha256.Size]byte]time.Time),
	}
	if cfg.TokenHash == "" {
		return s, nil
	}
	if _, err := bcrypt.Cost([]byte(cfg.TokenHash)); err != nil {
		return nil, fmt.Errorf("operator token hash: %w", err)
	}
	s.hash = []byte(cfg.TokenHash)
	return s, nil
}

// Enabled reports whether a token is required
func (s *Service) Enabled() bool {
	return len(s.hash) > 0
}

// Verify checks token. It always succeeds when authentication is disabled.
func (s *Service) Verify(token string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return ErrInvalidToken
	}

	key := sha256.Sum256([]byte(token))
	now := s.clock.Now()

	s.mu.Lock()
	expiresAt, ok := s.verified[key]
	s.mu.Unlock()
	if ok && now.Before(expiresAt) {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(token)); err != nil {
		return ErrInvalidToken
	}

	s.mu.Lock()
	s.verified[key] = now.Add(s.cacheDuration)
	s.mu.Unlock()
	return nil
}

// HashToken returns the bcrypt hash to configure for token
func HashToken(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}
