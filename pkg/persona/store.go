// Package persona implements the SQLite-backed persona store consumed by
// the session orchestrator.
package persona

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Persona describes the voice a generation request should adopt.
type Persona struct {
	ID       string `json:"id"`
	Tone     string `json:"tone"`
	Audience string `json:"audience"`
}

// Store persists personas in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the persona database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("persona database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create persona directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open persona database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Persona store opened")
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS personas (
		id       TEXT PRIMARY KEY,
		tone     TEXT NOT NULL,
		audience TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate persona schema: %w", err)
	}
	return nil
}

// GetPersona returns the persona with the given id.
func (s *Store) GetPersona(id string) (*Persona, error) {
	if id == "" {
		return nil, fmt.Errorf("persona id cannot be empty")
	}

	row := s.db.QueryRow(`SELECT id, tone, audience FROM personas WHERE id = ?`, id)

	var p Persona
	if err := row.Scan(&p.ID, &p.Tone, &p.Audience); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("persona %q not found", id)
		}
		return nil, fmt.Errorf("failed to load persona %q: %w", id, err)
	}
	return &p, nil
}

// PutPersona inserts or replaces a persona.
func (s *Store) PutPersona(p Persona) error {
	if p.ID == "" {
		return fmt.Errorf("persona id cannot be empty")
	}

	_, err := s.db.Exec(
		`INSERT INTO personas (id, tone, audience) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET tone = excluded.tone, audience = excluded.audience`,
		p.ID, p.Tone, p.Audience,
	)
	if err != nil {
		return fmt.Errorf("failed to store persona %q: %w", p.ID, err)
	}
	return nil
}

// ListPersonas returns all personas ordered by id.
func (s *Store) ListPersonas() ([]Persona, error) {
	rows, err := s.db.Query(`SELECT id, tone, audience FROM personas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var personas []Persona
	for rows.Next() {
		var p Persona
		if err := rows.Scan(&p.ID, &p.Tone, &p.Audience); err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas = append(personas, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate personas: %w", err)
	}
	return personas, nil
}

// DeletePersona removes a persona. Deleting an unknown id is a no-op.
func (s *Store) DeletePersona(id string) error {
	if id == "" {
		return fmt.Errorf("persona id cannot be empty")
	}
	if _, err := s.db.Exec(`DELETE FROM personas WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete persona %q: %w", id, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
