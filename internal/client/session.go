package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	"github.com/khanhnv2901/wisafe/internal/shared/security"
)

// Session is the pair of tokens held after login.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether no tokens are held.
func (s Session) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// SessionStore keeps the session in memory and, when a path is set, in a
// file readable only by the owner.
type SessionStore struct {
	mu      sync.Mutex
	path    string
	session Session
	loaded  bool
}

// NewSessionStore returns a store backed by path. An empty path keeps the
// session in memory only.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load returns the current session, reading the file on first use.
func (s *SessionStore) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return Session{}, err
	}
	return s.session, nil
}

// Save replaces the stored session.
func (s *SessionStore) Save(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.loaded = true
	return s.persistLocked()
}

// SetAccessToken rotates the access token and keeps the refresh token.
func (s *SessionStore) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	s.session.AccessToken = token
	return s.persistLocked()
}

// Clear drops every token and removes the session file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
	s.loaded = true
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *SessionStore) loadLocked() error {
	if s.loaded || s.path == "" {
		s.loaded = true
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("parse session: %w", err)
	}
	s.session = session
	s.loaded = true
	return nil
}

func (s *SessionStore) persistLocked() error {
	if s.path == "" {
		return nil
	}
	if s.session.Empty() {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove session: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s.session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := security.WriteFileAtomic(s.path, data, constants.SecretFilePerm); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
