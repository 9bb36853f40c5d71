// Package cookiejar persists one portal cookie set per account, encoded and
// encrypted at rest with the same hash+block key scheme used for web session
// cookies. A missing or empty jar is a normal condition, not an error.
package cookiejar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gorilla/securecookie"

	"github.com/example/supplybot/internal/portal"
)

const jarName = "portal_cookies"

// Store writes per-account cookie jars under dir.
type Store struct {
	dir string
	sc  *securecookie.SecureCookie
}

// New creates a store. TTL bounds how long a persisted jar stays decodable;
// 0 keeps the securecookie default.
func New(dir string, hashKey, blockKey []byte, ttlSeconds int) *Store {
	sc := securecookie.New(hashKey, blockKey)
	if ttlSeconds > 0 {
		sc.MaxAge(ttlSeconds)
	}
	return &Store{dir: dir, sc: sc}
}

func (s *Store) path(accountID string) string {
	return filepath.Join(s.dir, accountID, "cookies.enc")
}

// Save overwrites the account's jar with the given cookie set.
func (s *Store) Save(accountID string, cookies []portal.Cookie) error {
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies to save for account %s", accountID)
	}
	encoded, err := s.sc.Encode(jarName, cookies)
	if err != nil {
		return fmt.Errorf("encode cookie jar: %w", err)
	}
	p := s.path(accountID)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(encoded), 0o600)
}

// Load returns the persisted cookie set, or (nil, nil) when there is none.
// An expired or undecodable jar is also treated as absent: the session will
// simply start unauthenticated and wait for a human login.
func (s *Store) Load(accountID string) ([]portal.Cookie, error) {
	b, err := os.ReadFile(s.path(accountID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	var cookies []portal.Cookie
	if err := s.sc.Decode(jarName, string(b), &cookies); err != nil {
		return nil, nil
	}
	return cookies, nil
}
