package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/logger"
	"github.com/inkwell-ai/inkwell/internal/metrics"
	"github.com/inkwell-ai/inkwell/pkg/persona"
	"github.com/inkwell-ai/inkwell/pkg/provider"
	"github.com/inkwell-ai/inkwell/pkg/session"
	"github.com/inkwell-ai/inkwell/pkg/storage"
	"github.com/inkwell-ai/inkwell/pkg/template"
)

// app holds the wired components for a single CLI invocation.
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	templates    *template.Store
	personas     *persona.Store
	sessions     *storage.Store
	orchestrator *session.Orchestrator
}

// newApp loads configuration and wires the hub, stores, and orchestrator.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	lg, err := logger.New(logger.Config{
		Level:   level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	m := metrics.NewMetrics()

	hub := provider.NewHub(provider.Options{
		Timeout:            time.Duration(cfg.Fallback.TimeoutSeconds) * time.Second,
		DefaultTemperature: cfg.Fallback.Temperature,
		Policy: provider.FallbackPolicy{
			Backends:   cfg.Fallback.Backends,
			MaxRetries: cfg.Fallback.MaxRetries,
			RetryDelay: time.Duration(cfg.Fallback.RetryDelayMs) * time.Millisecond,
		},
		Metrics: m,
	})
	hub.Register(provider.NewAnthropicBackend("anthropic", cfg.Providers.Anthropic.Model, cfg.Providers.Anthropic.APIKey))
	hub.Register(provider.NewOpenAIBackend("openai", cfg.Providers.OpenAI.Model, cfg.Providers.OpenAI.APIKey))

	templates, err := template.NewStore(cfg.Templates.Dir)
	if err != nil {
		lg.Close()
		return nil, fmt.Errorf("failed to open template store: %w", err)
	}

	personas, err := persona.Open(cfg.Personas.DBPath)
	if err != nil {
		templates.Close()
		lg.Close()
		return nil, fmt.Errorf("failed to open persona store: %w", err)
	}

	sessions, err := storage.New(cfg.Sessions.Dir)
	if err != nil {
		personas.Close()
		templates.Close()
		lg.Close()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	orchestrator := session.NewOrchestrator(session.Options{
		Executor:       hub,
		Templates:      templates,
		Personas:       personas,
		Storage:        sessions,
		Metrics:        m,
		DefaultBackend: cfg.Providers.Default,
	})

	log.Debug().
		Str("default_backend", cfg.Providers.Default).
		Strs("fallback_backends", cfg.Fallback.Backends).
		Msg("Application wired")

	return &app{
		cfg:          cfg,
		log:          lg,
		templates:    templates,
		personas:     personas,
		sessions:     sessions,
		orchestrator: orchestrator,
	}, nil
}

// restore loads a persisted session and registers it with the orchestrator.
func (a *app) restore(sessionID string) (*session.Session, error) {
	sess, err := a.sessions.LoadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := a.orchestrator.Restore(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (a *app) close() {
	if err := a.templates.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close template store")
	}
	if err := a.personas.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close persona store")
	}
	if err := a.log.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close logger")
	}
}
