// Package auth manages the bearer credential used for the contacts API
// and the push stream.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	credFileName = "credentials.json"
	// EnvToken overrides the credentials file when set.
	EnvToken = "ROLODEX_TOKEN"
)

// ErrNotLoggedIn is returned by Require when no credential is available.
var ErrNotLoggedIn = errors.New("no token found")

type TokenInfo struct {
	Token     string     `json:"token"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // optional (JWT exp or server-provided)
}

// Expired reports whether the credential carries an expiry in the past.
func (ti *TokenInfo) Expired(now time.Time) bool {
	return ti.ExpiresAt != nil && !now.Before(*ti.ExpiresAt)
}

// Store reads and writes the credentials file in Dir.
type Store struct {
	Dir    string
	Getenv func(string) string
}

// DefaultStore keeps credentials in ~/.rolodex and honours ROLODEX_TOKEN.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("home: %w", err)
	}
	return &Store{Dir: filepath.Join(home, ".rolodex"), Getenv: os.Getenv}, nil
}

func (s *Store) path() string { return filepath.Join(s.Dir, credFileName) }

// Get returns the active credential, or nil when not logged in.
func (s *Store) Get() (*TokenInfo, error) {
	// 1) env override
	if s.Getenv != nil {
		if env := strings.TrimSpace(s.Getenv(EnvToken)); env != "" {
			tok := stripBearer(env)
			return &TokenInfo{Token: tok, Source: "env", ExpiresAt: jwtExpiry(tok)}, nil
		}
	}

	// 2) file
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var ti TokenInfo
	if err := json.Unmarshal(b, &ti); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	ti.Token = stripBearer(ti.Token)
	return &ti, nil
}

// Token returns the current bearer token or "". It is suitable as a
// per-request token source.
func (s *Store) Token() string {
	ti, err := s.Get()
	if err != nil || ti == nil {
		return ""
	}
	return ti.Token
}

// Require returns the credential or ErrNotLoggedIn.
func (s *Store) Require() (*TokenInfo, error) {
	ti, err := s.Get()
	if err != nil {
		return nil, err
	}
	if ti == nil || strings.TrimSpace(ti.Token) == "" {
		return nil, ErrNotLoggedIn
	}
	return ti, nil
}

// Set saves token with owner-only permissions. When expires is nil and the
// token is a JWT, its exp claim is used.
func (s *Store) Set(token string, expires *time.Time) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if expires == nil {
		expires = jwtExpiry(token)
	}
	ti := TokenInfo{
		Token:     token,
		Source:    "file",
		CreatedAt: time.Now(),
		ExpiresAt: expires,
	}
	b, err := json.MarshalIndent(ti, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.path(), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete removes the credentials file. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Claims decodes the payload of a JWT without verifying it. Opaque tokens
// return ok=false.
func Claims(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

func jwtExpiry(token string) *time.Time {
	claims, ok := Claims(token)
	if !ok {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.UTC()
	return &t
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
