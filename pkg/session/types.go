package session

import (
	"context"
	"time"

	"github.com/inkwell-ai/inkwell/pkg/iteration"
	"github.com/inkwell-ai/inkwell/pkg/persona"
	"github.com/inkwell-ai/inkwell/pkg/provider"
	"github.com/inkwell-ai/inkwell/pkg/template"
)

// Session is the aggregate the orchestrator owns: identity, mode, optional
// persona/template references, the step execution trail, the latest output
// per step kind, and the iteration state.
type Session struct {
	ID         string                            `json:"id"`
	Mode       iteration.Mode                    `json:"mode"`
	Backend    string                            `json:"backend,omitempty"`
	PersonaID  string                            `json:"persona_id,omitempty"`
	TemplateID string                            `json:"template_id,omitempty"`
	OutlineID  string                            `json:"outline_id,omitempty"`
	Steps      []StepRecord                      `json:"steps"`
	Outputs    map[iteration.StepKind]StepOutput `json:"outputs"`
	State      iteration.State                   `json:"state"`
	CreatedAt  time.Time                         `json:"created_at"`
	UpdatedAt  time.Time                         `json:"updated_at"`
}

// StepRecord is one persisted step execution. Records are created once per
// accepted resume call and never mutated afterward.
type StepRecord struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Kind      iteration.StepKind     `json:"kind"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Output    StepOutput             `json:"output"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
}

// StepOutput is an error-as-value union: either generated content with
// usage, or the fault that the backend call produced. Callers must check
// Failed to detect a swallowed backend failure.
type StepOutput struct {
	Content      string          `json:"content,omitempty"`
	Usage        *provider.Usage `json:"usage,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
}

// Failed reports whether the step's backend call produced a fault.
func (o StepOutput) Failed() bool {
	return o.ErrorCode != ""
}

// OutlineCycleInput starts an outline cycle from an idea.
type OutlineCycleInput struct {
	Idea         string `json:"idea"`
	HistoryDepth int    `json:"history_depth"`
	Backend      string `json:"backend,omitempty"`
	PersonaID    string `json:"persona_id,omitempty"`
	TemplateID   string `json:"template_id,omitempty"`
}

// DraftCycleInput starts a draft cycle from an approved outline.
type DraftCycleInput struct {
	OutlineID  string `json:"outline_id"`
	Backend    string `json:"backend,omitempty"`
	PersonaID  string `json:"persona_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// CycleSummary is the initially empty shell returned when a cycle starts.
type CycleSummary struct {
	SessionID        string             `json:"session_id"`
	Mode             iteration.Mode     `json:"mode"`
	NextRequiredStep iteration.StepKind `json:"next_required_step"`
	Content          string             `json:"content,omitempty"`
}

// PointEvaluation is the compliance-evaluation placeholder returned by
// ApplyTemplatePoint.
type PointEvaluation struct {
	SessionID    string    `json:"session_id"`
	PointID      string    `json:"point_id"`
	Status       string    `json:"status"`
	Instructions string    `json:"instructions,omitempty"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// Executor runs a single generation request. *provider.Hub satisfies it.
type Executor interface {
	Execute(ctx context.Context, req provider.Request) (*provider.Response, *provider.Fault)
}

// FallbackExecutor is the fallback-aware entry point. When the configured
// executor also implements it, the orchestrator prefers it.
type FallbackExecutor interface {
	ExecuteWithFallback(ctx context.Context, req provider.Request) (*provider.Response, *provider.Fault)
}

// TemplateStore supplies template context for request enrichment.
type TemplateStore interface {
	LoadTemplate(id string) (*template.Template, error)
}

// PersonaStore supplies persona context for request enrichment.
type PersonaStore interface {
	GetPersona(id string) (*persona.Persona, error)
}

// Storage persists session snapshots. It returns the path (or key) the
// snapshot was written to.
type Storage interface {
	SaveSession(s *Session) (string, error)
}
