package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/inkwell-ai/inkwell/internal/metrics"
)

const defaultSweepSchedule = "@hourly"

// SweeperConfig configures the retention sweeper.
type SweeperConfig struct {
	// ArchiveDir receives archived session files.
	ArchiveDir string

	// Retention is how long a session may sit unmodified before it is
	// archived.
	Retention time.Duration

	// Schedule is a cron expression; defaults to hourly.
	Schedule string

	// Metrics is optional instrumentation.
	Metrics *metrics.Metrics
}

// Sweeper archives session files that have been idle past the retention
// window, on a cron schedule.
type Sweeper struct {
	store  *Store
	config SweeperConfig
	cron   *cron.Cron
}

// NewSweeper creates a retention sweeper over a session store.
func NewSweeper(store *Store, config SweeperConfig) (*Sweeper, error) {
	if config.ArchiveDir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if config.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	if config.Schedule == "" {
		config.Schedule = defaultSweepSchedule
	}
	if err := os.MkdirAll(config.ArchiveDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &Sweeper{
		store:  store,
		config: config,
		cron:   cron.New(),
	}, nil
}

// Start schedules the sweep and begins running it.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.Sweep(); err != nil {
			log.Warn().Err(err).Msg("Retention sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.config.Schedule, err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.config.Schedule).
		Dur("retention", s.config.Retention).
		Msg("Retention sweeper started")
	return nil
}

// Stop halts the schedule, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Retention sweeper stopped")
}

// Sweep archives every session file idle past the retention window and
// returns the archived ids.
func (s *Sweeper) Sweep() ([]string, error) {
	ids, err := s.store.ListSessions()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-s.config.Retention)
	var archived []string

	for _, id := range ids {
		path := s.store.path(id)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := s.archive(id, path); err != nil {
			log.Warn().Str("session_id", id).Err(err).Msg("Failed to archive session")
			continue
		}
		archived = append(archived, id)

		if s.config.Metrics != nil {
			s.config.Metrics.SessionsArchived.Inc()
		}
	}

	if len(archived) > 0 {
		log.Info().Int("count", len(archived)).Msg("Sessions archived")
	}
	return archived, nil
}

// archive moves one session file into the archive directory. The write
// lock keeps a concurrent save from racing the move.
func (s *Sweeper) archive(id, path string) error {
	lock := s.store.writeLock(id)
	lock.Lock()
	defer lock.Unlock()

	target := filepath.Join(s.config.ArchiveDir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("failed to move session to archive: %w", err)
	}
	return nil
}
