package provider

import (
	"fmt"
	"strings"
)

// FaultKind classifies a provider failure.
type FaultKind string

const (
	FaultProviderNotFound      FaultKind = "provider_not_found"
	FaultProviderNotConfigured FaultKind = "provider_not_configured"
	FaultProviderError         FaultKind = "provider_error"
	FaultRateLimitExceeded     FaultKind = "rate_limit_exceeded"
	FaultTimeout               FaultKind = "timeout"
	FaultNetworkError          FaultKind = "network_error"
)

// Attempt records one failed try during fallback traversal.
type Attempt struct {
	Backend string `json:"backend"`
	Fault   *Fault `json:"fault"`
}

// Fault is a structured provider error. Recoverable faults may be retried
// or failed over; provider_not_found never is. After fallback exhaustion
// Attempts holds every (backend, fault) pair that was tried.
type Fault struct {
	Kind        FaultKind `json:"kind"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	Attempts    []Attempt `json:"attempts,omitempty"`
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFault builds a fault with recoverability derived from its kind.
func NewFault(kind FaultKind, message string) *Fault {
	return &Fault{
		Kind:        kind,
		Message:     message,
		Recoverable: kind != FaultProviderNotFound,
	}
}

// Classify maps a raw backend error onto a fault kind by inspecting the
// error message, defaulting to provider_error.
func Classify(err error) *Fault {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "timeout"):
		return NewFault(FaultTimeout, msg)
	case strings.Contains(lower, "rate limit"):
		return NewFault(FaultRateLimitExceeded, msg)
	case strings.Contains(lower, "network"):
		return NewFault(FaultNetworkError, msg)
	default:
		return NewFault(FaultProviderError, msg)
	}
}
