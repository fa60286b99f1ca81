package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Store loads templates from a directory of JSON documents, one file per
// template id. Loaded templates are cached until the backing file changes.
type Store struct {
	dir    string
	schema *gojsonschema.Schema

	mu      sync.RWMutex
	cache   map[string]*Template
	watcher *Watcher
}

// NewStore creates a template store rooted at dir. The directory is created
// if it does not exist.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("template directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create template directory: %w", err)
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	return &Store{
		dir:    dir,
		schema: schema,
		cache:  make(map[string]*Template),
	}, nil
}

// LoadTemplate returns the template with the given id, reading and
// validating its document on a cache miss. Points are sorted by priority.
func (s *Store) LoadTemplate(id string) (*Template, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	cached, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("template %q not found", id)
		}
		return nil, fmt.Errorf("failed to read template %q: %w", id, err)
	}

	if err := validateDocument(s.schema, data); err != nil {
		return nil, fmt.Errorf("template %q: %w", id, err)
	}

	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", id, err)
	}
	if tpl.ID != id {
		return nil, fmt.Errorf("template %q declares mismatched id %q", id, tpl.ID)
	}
	sortPoints(tpl.Points)

	s.mu.Lock()
	s.cache[id] = &tpl
	s.mu.Unlock()

	log.Debug().Str("template", id).Int("points", len(tpl.Points)).Msg("Template loaded")
	return &tpl, nil
}

// List returns the ids of all template documents in the store directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
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

// Invalidate drops a template from the cache so the next load re-reads it.
// An empty id drops the whole cache.
func (s *Store) Invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.cache = make(map[string]*Template)
		return
	}
	delete(s.cache, id)
}

// Watch starts invalidating cached templates when their files change.
func (s *Store) Watch() error {
	watcher, err := NewWatcher(s.dir, func(path string) {
		id := strings.TrimSuffix(filepath.Base(path), ".json")
		s.Invalidate(id)
		log.Debug().Str("template", id).Msg("Template cache invalidated")
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()
	return nil
}

// Close stops the file watcher if one is running.
func (s *Store) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if watcher != nil {
		return watcher.Stop()
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("template id cannot be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("template id cannot contain '..'")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("template id cannot contain path separators")
	}
	return nil
}
