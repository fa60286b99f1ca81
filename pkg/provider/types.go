package provider

import (
	"context"
	"time"
)

// Request is a single generation request aimed at a named backend.
type Request struct {
	Backend     string           `json:"backend"`
	Prompt      string           `json:"prompt"`
	Mode        string           `json:"mode,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Context     *TemplateContext `json:"context,omitempty"`
}

// TemplateContext carries persona and template enrichment rendered into the
// prompt ahead of the raw text.
type TemplateContext struct {
	PersonaID       string             `json:"persona_id,omitempty"`
	PersonaTone     string             `json:"persona_tone,omitempty"`
	PersonaAudience string             `json:"persona_audience,omitempty"`
	TemplateID      string             `json:"template_id,omitempty"`
	Points          []PointInstruction `json:"points,omitempty"`
}

// PointInstruction is one template point rendered into the prompt prefix.
type PointInstruction struct {
	ID           string `json:"id"`
	Instructions string `json:"instructions"`
	Priority     int    `json:"priority"`
}

// Usage holds token counts reported by a backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed generation.
type Response struct {
	Content      string `json:"content"`
	Usage        *Usage `json:"usage,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Chunk is one streamed fragment. A non-nil Err terminates the stream.
type Chunk struct {
	Content string `json:"content"`
	Err     error  `json:"-"`
}

// Backend is a registered text-generation provider. Key identifies it in
// the hub registry, Model is the model handle requests run against, and
// IsConfigured reports whether credentials are present.
type Backend interface {
	Key() string
	Model() string
	IsConfigured() bool
	Execute(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// FallbackPolicy configures the hub's retry and failover traversal.
type FallbackPolicy struct {
	// Backends are tried in order after the requested backend fails;
	// duplicates of already-tried keys are skipped.
	Backends []string `json:"backends"`

	// MaxRetries is the number of retries per backend beyond the first
	// attempt.
	MaxRetries int `json:"max_retries"`

	// RetryDelay is slept between attempts against the same backend.
	RetryDelay time.Duration `json:"retry_delay"`
}
