// Package session implements the orchestrator that owns generation session
// lifecycle: it creates sessions, advances them through the iteration state
// machine, enriches backend requests with persona and template context,
// delegates execution to the provider hub, and persists snapshots.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"github.com/inkwell-ai/inkwell/internal/metrics"
	"github.com/inkwell-ai/inkwell/pkg/iteration"
	"github.com/inkwell-ai/inkwell/pkg/provider"
)

// Options configures an Orchestrator. Executor, Templates, Personas,
// Storage, and Metrics are all optional collaborators; a nil collaborator
// disables the corresponding enrichment or side effect.
type Options struct {
	Executor       Executor
	Templates      TemplateStore
	Personas       PersonaStore
	Storage        Storage
	Metrics        *metrics.Metrics
	DefaultBackend string
}

// Orchestrator drives sessions through the step state machine. Mutation of
// one session is serialized behind a per-session lock; calls for distinct
// sessions proceed concurrently.
type Orchestrator struct {
	executor       Executor
	templates      TemplateStore
	personas       PersonaStore
	storage        Storage
	metrics        *metrics.Metrics
	defaultBackend string

	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		executor:       opts.Executor,
		templates:      opts.Templates,
		personas:       opts.Personas,
		storage:        opts.Storage,
		metrics:        opts.Metrics,
		defaultBackend: opts.DefaultBackend,
		sessions:       make(map[string]*Session),
		locks:          make(map[string]*sync.Mutex),
	}
}

// StartOutlineCycle validates the input and creates a new outline session.
// Validation failures create no session.
func (o *Orchestrator) StartOutlineCycle(ctx context.Context, input OutlineCycleInput) (*CycleSummary, error) {
	if strings.TrimSpace(input.Idea) == "" {
		return nil, validationFault("idea is required")
	}
	if input.HistoryDepth < 0 {
		return nil, validationFault("history depth cannot be negative")
	}

	sess := o.createSession(iteration.ModeOutline, input.Backend, input.PersonaID, input.TemplateID, "")
	log.Info().Str("session_id", sess.ID).Str("mode", string(sess.Mode)).Msg("Outline cycle started")

	return &CycleSummary{
		SessionID:        sess.ID,
		Mode:             sess.Mode,
		NextRequiredStep: sess.State.NextRequiredStep,
	}, nil
}

// StartDraftCycle validates the input and creates a new draft session.
func (o *Orchestrator) StartDraftCycle(ctx context.Context, input DraftCycleInput) (*CycleSummary, error) {
	if strings.TrimSpace(input.OutlineID) == "" {
		return nil, validationFault("outline id is required")
	}

	sess := o.createSession(iteration.ModeDraft, input.Backend, input.PersonaID, input.TemplateID, input.OutlineID)
	log.Info().Str("session_id", sess.ID).Str("outline_id", input.OutlineID).Msg("Draft cycle started")

	return &CycleSummary{
		SessionID:        sess.ID,
		Mode:             sess.Mode,
		NextRequiredStep: sess.State.NextRequiredStep,
	}, nil
}

// ResumeSession advances a session by one step. State-machine violations
// surface as recoverable invalid_state faults and leave the stored session
// untouched. Backend failures never abort the transition; they are recorded
// in the step's output instead.
func (o *Orchestrator) ResumeSession(ctx context.Context, sessionID string, step iteration.Step) (*Session, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := o.lookup(sessionID)
	if !ok {
		return nil, invalidStateFault(fmt.Sprintf("session %q not found", sessionID), false, nil)
	}

	transition := iteration.HandleStep(sess.State, step)
	if len(transition.Violations) > 0 {
		violation := transition.Violations[0]
		if o.metrics != nil {
			o.metrics.StepViolationsTotal.WithLabelValues(string(violation.Code)).Inc()
		}
		detail := map[string]interface{}{"code": string(violation.Code)}
		for k, v := range violation.Detail {
			detail[k] = v
		}
		return nil, invalidStateFault(violation.Message, true, detail)
	}

	start := time.Now()
	output := o.executeStep(ctx, sess, step)
	elapsed := time.Since(start)

	record := StepRecord{
		ID:        newStepID(),
		SessionID: sess.ID,
		Kind:      step.Kind,
		Payload:   step.Payload,
		Output:    output,
		Timestamp: start,
		Duration:  elapsed,
	}

	sess.Steps = append(sess.Steps, record)
	sess.Outputs[step.Kind] = output
	sess.State = transition.State
	sess.UpdatedAt = time.Now()

	o.observeStep(step.Kind, output, elapsed)
	if sess.State.Status == iteration.StatusCompleted && o.metrics != nil {
		o.metrics.SessionsActive.Dec()
	}

	o.persist(sess)

	log.Debug().
		Str("session_id", sess.ID).
		Str("step", string(step.Kind)).
		Str("next", string(sess.State.NextRequiredStep)).
		Bool("step_failed", output.Failed()).
		Msg("Session advanced")

	return sess, nil
}

// GetSession returns a session by id.
func (o *Orchestrator) GetSession(sessionID string) (*Session, error) {
	sess, ok := o.lookup(sessionID)
	if !ok {
		return nil, invalidStateFault(fmt.Sprintf("session %q not found", sessionID), false, nil)
	}
	return sess, nil
}

// Restore registers a previously persisted session with the orchestrator so
// it can be resumed. An already registered session is left untouched.
func (o *Orchestrator) Restore(sess *Session) error {
	if sess == nil || sess.ID == "" {
		return validationFault("session with an id is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.sessions[sess.ID]; ok {
		return nil
	}
	o.sessions[sess.ID] = sess
	return nil
}

// ApplyTemplatePoint returns a point-compliance evaluation placeholder for
// a session and template point. Real evaluation is a backend concern.
func (o *Orchestrator) ApplyTemplatePoint(sessionID, pointID string) (*PointEvaluation, error) {
	sess, ok := o.lookup(sessionID)
	if !ok {
		return nil, invalidStateFault(fmt.Sprintf("session %q not found", sessionID), false, nil)
	}

	eval := &PointEvaluation{
		SessionID:   sess.ID,
		PointID:     pointID,
		Status:      "pending",
		EvaluatedAt: time.Now(),
	}

	if sess.TemplateID != "" && o.templates != nil {
		tpl, err := o.templates.LoadTemplate(sess.TemplateID)
		if err == nil {
			for _, point := range tpl.Points {
				if point.ID == pointID {
					eval.Instructions = point.Instructions
					break
				}
			}
		}
	}

	return eval, nil
}

// createSession allocates a session, registers it, and persists the empty
// snapshot.
func (o *Orchestrator) createSession(mode iteration.Mode, backend, personaID, templateID, outlineID string) *Session {
	now := time.Now()
	sess := &Session{
		ID:         uuid.New().String(),
		Mode:       mode,
		Backend:    backend,
		PersonaID:  personaID,
		TemplateID: templateID,
		OutlineID:  outlineID,
		Steps:      []StepRecord{},
		Outputs:    make(map[iteration.StepKind]StepOutput),
		State:      iteration.Initialize(mode),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	o.mu.Lock()
	o.sessions[sess.ID] = sess
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.SessionsTotal.Inc()
		o.metrics.SessionsActive.Inc()
	}

	o.persist(sess)
	return sess
}

// executeStep runs the backend call for generation steps. Faults are folded
// into the output value rather than returned.
func (o *Orchestrator) executeStep(ctx context.Context, sess *Session, step iteration.Step) StepOutput {
	if o.executor == nil || !isBackendStep(step.Kind) {
		return StepOutput{}
	}

	req := o.buildRequest(sess, step)

	var (
		resp  *provider.Response
		fault *provider.Fault
	)
	if fb, ok := o.executor.(FallbackExecutor); ok {
		resp, fault = fb.ExecuteWithFallback(ctx, req)
	} else {
		resp, fault = o.executor.Execute(ctx, req)
	}

	if fault != nil {
		log.Warn().
			Str("session_id", sess.ID).
			Str("step", string(step.Kind)).
			Str("fault", string(fault.Kind)).
			Msg("Backend call failed, recording fault in step output")
		return StepOutput{
			ErrorMessage: fault.Message,
			ErrorCode:    string(fault.Kind),
		}
	}

	return StepOutput{
		Content:      resp.Content,
		Usage:        resp.Usage,
		FinishReason: resp.FinishReason,
	}
}

// buildRequest assembles the provider request, pulling persona and template
// context from collaborators when the session references them. Collaborator
// lookup failures degrade to an unenriched request.
func (o *Orchestrator) buildRequest(sess *Session, step iteration.Step) provider.Request {
	backend := sess.Backend
	if backend == "" {
		backend = o.defaultBackend
	}

	req := provider.Request{
		Backend: backend,
		Prompt:  promptFromPayload(step.Payload),
		Mode:    string(sess.Mode),
	}
	if temp, ok := step.Payload["temperature"].(float64); ok {
		req.Temperature = temp
	}

	if sess.PersonaID == "" && sess.TemplateID == "" {
		return req
	}

	tc := &provider.TemplateContext{}
	if sess.PersonaID != "" {
		tc.PersonaID = sess.PersonaID
		if o.personas != nil {
			p, err := o.personas.GetPersona(sess.PersonaID)
			if err != nil {
				log.Warn().Str("persona_id", sess.PersonaID).Err(err).Msg("Persona lookup failed")
			} else {
				tc.PersonaTone = p.Tone
				tc.PersonaAudience = p.Audience
			}
		}
	}
	if sess.TemplateID != "" {
		tc.TemplateID = sess.TemplateID
		if o.templates != nil {
			tpl, err := o.templates.LoadTemplate(sess.TemplateID)
			if err != nil {
				log.Warn().Str("template_id", sess.TemplateID).Err(err).Msg("Template lookup failed")
			} else {
				for _, point := range tpl.Points {
					tc.Points = append(tc.Points, provider.PointInstruction{
						ID:           point.ID,
						Instructions: point.Instructions,
						Priority:     point.Priority,
					})
				}
			}
		}
	}
	req.Context = tc

	return req
}

// persist saves a snapshot through the storage collaborator. Persistence
// failures are logged, not returned; the in-memory session remains the
// source of truth for this process.
func (o *Orchestrator) persist(sess *Session) {
	if o.storage == nil {
		return
	}
	path, err := o.storage.SaveSession(sess)
	if err != nil {
		log.Error().Str("session_id", sess.ID).Err(err).Msg("Failed to persist session snapshot")
		return
	}
	log.Debug().Str("session_id", sess.ID).Str("path", path).Msg("Session snapshot saved")
}

func (o *Orchestrator) observeStep(kind iteration.StepKind, output StepOutput, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	status := "success"
	if output.Failed() {
		status = "failed"
	}
	o.metrics.StepsTotal.WithLabelValues(string(kind), status).Inc()
	o.metrics.StepDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (o *Orchestrator) lookup(sessionID string) (*Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	sess, ok := o.sessions[sessionID]
	return sess, ok
}

// sessionLock gets or creates the mutation lock for a session id.
func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	if lock, exists := o.locks[sessionID]; exists {
		return lock
	}
	lock := &sync.Mutex{}
	o.locks[sessionID] = lock
	return lock
}

func isBackendStep(kind iteration.StepKind) bool {
	switch kind {
	case iteration.StepGenerate, iteration.StepCritique, iteration.StepReflection, iteration.StepQuestion:
		return true
	default:
		return false
	}
}

func promptFromPayload(payload map[string]interface{}) string {
	if payload == nil {
		return ""
	}
	if prompt, ok := payload["prompt"].(string); ok {
		return prompt
	}
	return ""
}

func newStepID() string {
	id, err := gonanoid.New()
	if err != nil {
		return uuid.New().String()
	}
	return id
}
