// Package auth manages per-user calendar authorization: OAuth code exchange
// and a file-backed store of user access tokens. Calendar calls prefer the
// sender's own token so events land on their personal calendar.
package auth

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// UserToken is a stored user credential. ExpireAt already includes the
// safety margin applied at exchange time.
type UserToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpireAt     time.Time `json:"expire_at"`
}

// TokenStore keeps one JSON file per user under baseDir with an in-memory
// cache in front.
type TokenStore struct {
	baseDir string
	mu      sync.RWMutex
	tokens  map[string]*UserToken

	now func() time.Time
}

// NewTokenStore opens (and loads) the store at baseDir.
func NewTokenStore(baseDir string) (*TokenStore, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create token store dir: %w", err)
	}
	s := &TokenStore{
		baseDir: baseDir,
		tokens:  make(map[string]*UserToken),
		now:     time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TokenStore) load() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read token store dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var tok UserToken
		if err := json.Unmarshal(data, &tok); err != nil {
			continue
		}
		userID, err := url.PathUnescape(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		s.tokens[userID] = &tok
	}
	return nil
}

// Get returns the user's access token if present and not expired.
func (s *TokenStore) Get(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[userID]
	if !ok || tok.AccessToken == "" {
		return "", false
	}
	if !tok.ExpireAt.IsZero() && !s.now().Before(tok.ExpireAt) {
		return "", false
	}
	return tok.AccessToken, true
}

// Put stores the token in memory and on disk.
func (s *TokenStore) Put(userID string, tok *UserToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[userID] = tok
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	path := filepath.Join(s.baseDir, url.PathEscape(userID)+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
