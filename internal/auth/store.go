// Package auth stores the bearer credential attached to server requests.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// envToken overrides the stored credential for one invocation.
const envToken = "MEETSCRIBE_TOKEN"

// ErrNotLoggedIn reports that no credential is stored and none was supplied
// via the environment.
var ErrNotLoggedIn = errors.New("not logged in")

// Store persists the bearer token in a mode-0600 state file.
type Store struct {
	path string
}

// NewStore opens the credential store. An empty path resolves the default
// location under the state directory.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		resolved, err := resolveTokenPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	return &Store{path: path}, nil
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return s.path
}

// Login persists the token, replacing any previous credential.
func (s *Store) Login(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is empty")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

// Logout removes the stored credential. The boolean reports whether a
// credential existed.
func (s *Store) Logout() (bool, error) {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove credential: %w", err)
	}
	return true, nil
}

// Token returns the current bearer credential. The environment override
// wins over the stored file; with neither present it returns
// ErrNotLoggedIn.
func (s *Store) Token() (string, error) {
	if env := strings.TrimSpace(os.Getenv(envToken)); env != "" {
		return env, nil
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotLoggedIn
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

// TokenExpiry extracts the exp claim from a JWT credential without
// verifying its signature. Opaque tokens report ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, &jwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, false
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// resolveTokenPath selects XDG_STATE_HOME when available, otherwise
// ~/.local/state.
func resolveTokenPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "meetscribe", "token"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "meetscribe", "token"), nil
}
