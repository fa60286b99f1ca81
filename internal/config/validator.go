package config

import "fmt"

var knownBackends = map[string]bool{
	"anthropic": true,
	"openai":    true,
}

// Validate checks a loaded configuration for inconsistencies
func Validate(cfg *Config) error {
	if cfg.Providers.Default == "" {
		return fmt.Errorf("providers.default is required")
	}
	if !knownBackends[cfg.Providers.Default] {
		return fmt.Errorf("providers.default %q is not a known backend", cfg.Providers.Default)
	}

	for _, backend := range cfg.Fallback.Backends {
		if !knownBackends[backend] {
			return fmt.Errorf("fallback.backends contains unknown backend %q", backend)
		}
	}

	if cfg.Fallback.MaxRetries < 0 {
		return fmt.Errorf("fallback.max_retries cannot be negative")
	}
	if cfg.Fallback.RetryDelayMs < 0 {
		return fmt.Errorf("fallback.retry_delay_ms cannot be negative")
	}
	if cfg.Fallback.TimeoutSeconds <= 0 {
		return fmt.Errorf("fallback.timeout_seconds must be positive")
	}
	if cfg.Fallback.Temperature < 0 || cfg.Fallback.Temperature > 2 {
		return fmt.Errorf("fallback.temperature must be between 0 and 2")
	}

	if cfg.Sessions.RetentionHours <= 0 {
		return fmt.Errorf("sessions.retention_hours must be positive")
	}

	return nil
}
