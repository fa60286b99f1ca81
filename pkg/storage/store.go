// Package storage implements the file-backed session snapshot store and
// the retention sweeper that archives idle sessions.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/inkwell-ai/inkwell/pkg/session"
)

// Store persists one JSON document per session id. Writes go through a
// temp file and an atomic rename, serialized per session id.
type Store struct {
	dir string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a session store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("session directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Info().Str("dir", dir).Msg("Session store initialized")
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// SaveSession writes a session snapshot and returns the path it was
// written to.
func (s *Store) SaveSession(sess *session.Session) (string, error) {
	if sess == nil {
		return "", fmt.Errorf("session is required")
	}
	if err := validateID(sess.ID); err != nil {
		return "", err
	}

	lock := s.writeLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	path := s.path(sess.ID)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to replace session file: %w", err)
	}

	return path, nil
}

// LoadSession reads a session snapshot by id.
func (s *Store) LoadSession(id string) (*session.Session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %q does not exist", id)
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &sess, nil
}

// ListSessions returns the ids of all stored sessions.
func (s *Store) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return ids, nil
}

// DeleteSession removes a stored session. Missing files are a no-op.
func (s *Store) DeleteSession(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	lock := s.writeLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}

	s.locksMu.Lock()
	delete(s.locks, id)
	s.locksMu.Unlock()

	return nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) writeLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, exists := s.locks[id]; exists {
		return lock
	}
	lock := &sync.Mutex{}
	s.locks[id] = lock
	return lock
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("session id cannot contain '..'")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("session id cannot contain path separators")
	}
	if strings.Contains(id, "\x00") {
		return fmt.Errorf("session id cannot contain null bytes")
	}
	return nil
}
