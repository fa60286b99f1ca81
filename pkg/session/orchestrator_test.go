package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/inkwell/pkg/iteration"
	"github.com/inkwell-ai/inkwell/pkg/persona"
	"github.com/inkwell-ai/inkwell/pkg/provider"
	"github.com/inkwell-ai/inkwell/pkg/template"
)

type stubExecutor struct {
	resp    *provider.Response
	fault   *provider.Fault
	lastReq provider.Request
	calls   int
}

func (s *stubExecutor) Execute(_ context.Context, req provider.Request) (*provider.Response, *provider.Fault) {
	s.calls++
	s.lastReq = req
	return s.resp, s.fault
}

type stubFallbackExecutor struct {
	stubExecutor
	fallbackCalls int
}

func (s *stubFallbackExecutor) ExecuteWithFallback(_ context.Context, req provider.Request) (*provider.Response, *provider.Fault) {
	s.fallbackCalls++
	s.lastReq = req
	return s.resp, s.fault
}

type stubTemplates struct {
	tpl *template.Template
	err error
}

func (s *stubTemplates) LoadTemplate(string) (*template.Template, error) {
	return s.tpl, s.err
}

type stubPersonas struct {
	p   *persona.Persona
	err error
}

func (s *stubPersonas) GetPersona(string) (*persona.Persona, error) {
	return s.p, s.err
}

type stubStorage struct {
	saves int
	err   error
}

func (s *stubStorage) SaveSession(*Session) (string, error) {
	s.saves++
	return "/tmp/fake.json", s.err
}

func okResponse() *provider.Response {
	return &provider.Response{
		Content:      "generated",
		Usage:        &provider.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
		FinishReason: "stop",
	}
}

func TestStartOutlineCycle_Validation(t *testing.T) {
	o := NewOrchestrator(Options{})

	_, err := o.StartOutlineCycle(context.Background(), OutlineCycleInput{Idea: "  "})
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultValidation, fault.Code)
	assert.False(t, fault.Recoverable)

	_, err = o.StartOutlineCycle(context.Background(), OutlineCycleInput{Idea: "topic", HistoryDepth: -1})
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultValidation, fault.Code)
}

func TestStartDraftCycle_Validation(t *testing.T) {
	o := NewOrchestrator(Options{})

	_, err := o.StartDraftCycle(context.Background(), DraftCycleInput{})
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultValidation, fault.Code)
	assert.False(t, fault.Recoverable)
}

func TestStartOutlineCycle_CreatesAndPersistsSession(t *testing.T) {
	storage := &stubStorage{}
	o := NewOrchestrator(Options{Storage: storage})

	summary, err := o.StartOutlineCycle(context.Background(), OutlineCycleInput{Idea: "launch post"})
	require.NoError(t, err)
	assert.NotEmpty(t, summary.SessionID)
	assert.Equal(t, iteration.ModeOutline, summary.Mode)
	assert.Equal(t, iteration.StepGenerate, summary.NextRequiredStep)
	assert.Empty(t, summary.Content)
	assert.Equal(t, 1, storage.saves)

	sess, err := o.GetSession(summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.State.Cycle)
	assert.Empty(t, sess.Steps)
}

func TestResumeSession_UnknownSession(t *testing.T) {
	storage := &stubStorage{}
	o := NewOrchestrator(Options{Storage: storage})

	_, err := o.ResumeSession(context.Background(), "missing", iteration.Step{Kind: iteration.StepGenerate})
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultInvalidState, fault.Code)
	assert.False(t, fault.Recoverable)
	assert.Zero(t, storage.saves)
}

func TestResumeSession_ViolationLeavesSessionUntouched(t *testing.T) {
	storage := &stubStorage{}
	o := NewOrchestrator(Options{Storage: storage})

	summary, err := o.StartOutlineCycle(context.Background(), OutlineCycleInput{Idea: "topic"})
	require.NoError(t, err)
	savesAfterStart := storage.saves

	_, err = o.ResumeSession(context.Background(), summary.SessionID, iteration.Step{Kind: iteration.StepCritique})
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultInvalidState, fault.Code)
	assert.True(t, fault.Recoverable)
	assert.Equal(t, "unexpected-step", fault.Detail["code"])
	assert.Equal(t, "generate", fault.Detail["expected"])

	sess, err := o.GetSession(summary.SessionID)
	require.NoError(t, err)
	assert.Empty(t, sess.Steps)
	assert.Equal(t, iteration.StepGenerate, sess.State.NextRequiredStep)
	assert.Equal(t, savesAfterStart, storage.saves)
}

func TestResumeSession_ExecutesEnrichedRequest(t *testing.T) {
	executor := &stubExecutor{resp: okResponse()}
	templates := &stubTemplates{tpl: &template.Template{
		ID:   "brief",
		Name: "Brief",
		Points: []template.Point{
			{ID: "p-1", Instructions: "state the goal", Priority: 1},
		},
	}}
	personas := &stubPersonas{p: &persona.Persona{ID: "strategist", Tone: "direct", Audience: "executives"}}
	o := NewOrchestrator(Options{
		Executor:       executor,
		Templates:      templates,
		Personas:       personas,
		DefaultBackend: "anthropic",
	})

	summary, err := o.StartOutlineCycle(context.Background(), OutlineCycleInput{
		Idea:       "topic",
		PersonaID:  "strategist",
		TemplateID: "brief",
	})
	require.NoError(t, err)

	sess, err := o.ResumeSession(context.Background(), summary.SessionID, iteration.Step{
		Kind:    iteration.StepGenerate,
		Payload: map[string]interface{}{"prompt": "write the outline"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, executor.calls)
	assert.Equal(t, "anthropic", executor.lastReq.Backend)
	assert.Equal(t, "write the outline", executor.lastReq.Prompt)
	assert.Equal(t, "outline", executor.lastReq.Mode)
	require.NotNil(t, executor.lastReq.Context)
	assert.Equal(t, "strategist", executor.lastReq.Context.PersonaID)
	assert.Equal(t, "direct", executor.lastReq.Context.PersonaTone)
	assert.Equal(t, "brief", executor.lastReq.Context.TemplateID)
	require.Len(t, executor.lastReq.Context.Points, 1)

	require.Len(t, sess.Steps, 1)
	assert.Equal(t, "generated", sess.Steps[0].Output.Content)
	assert.Equal(t, "generated", sess.Outputs[iteration.StepGenerate].Content)
	assert.Equal(t, iteration.StepCritique, sess.State.NextRequiredStep)
}

func TestResumeSession_PrefersFallbackAwareExecutor(t *testing.T) {
	executor := &stubFallbackExecutor{stubExecutor: stubExecutor{resp: okResponse()}}
	o := NewOrchestrator(Options{Executor: executor, DefaultBackend: "openai"})

	summary, err := o.StartOutlineCycle(context.Background(), OutlineCycleInput{Idea: "topic"})
	require.NoError(t, err)

	_, err = o.ResumeSession(context.Background(), summary.SessionID, iteration.Step{Kind: iteration.StepGenerate})
	require.NoError(t, err)
	assert.Equal(t, 1, executor.fallbackCalls)
	assert.Equal(t, 0, executor.calls)
}

func TestResumeSession_BackendFailureIsSwallowed(t *testing.T) {
	executor := &stubExecutor{fault: provider.NewFault(provider.FaultRateLimitExceeded, "too many requests")}
	o := NewOrchestrator(Options{Executor: executor, DefaultBackend: "openai"})

	summary, err := o.StartOutlineCycle(context.Background(), OutlineCycleInput{Idea: "topic"})
	require.NoError(t, err)

	sess, err := o.ResumeSession(context.Background(), summary.SessionID, iteration.Step{Kind: iteration.StepGenerate})
	require.NoError(t, err)

	require.Len(t, sess.Steps, 1)
	output := sess.Steps[0].Output
	assert.True(t, output.Failed())
	assert.Equal(t, "too many requests", output.ErrorMessage)
	assert.Equal(t, "rate_limit_exceeded", output.ErrorCode)
	// The transition still advances despite the backend fault.
	assert.Equal(t, iteration.StepCritique, sess.State.NextRequiredStep)
}

func TestResumeSession_NonBackendStepSkipsExecutor(t *testing.T) {
	executor := &stubExecutor{resp: okResponse()}
	o := NewOrchestrator(Options{Executor: executor, DefaultBackend: "openai"})

	summary, err := o.StartDraftCycle(context.Background(), DraftCycleInput{OutlineID: "outline-1"})
	require.NoError(t, err)

	for _, kind := range []iteration.StepKind{iteration.StepGenerate, iteration.StepCritique, iteration.StepReflection} {
		_, err = o.ResumeSession(context.Background(), summary.SessionID, iteration.Step{Kind: kind})
		require.NoError(t, err)
	}
	callsBeforeRegenerate := executor.calls

	sess, err := o.ResumeSession(context.Background(), summary.SessionID, iteration.Step{Kind: iteration.StepRegenerate})
	require.NoError(t, err)
	assert.Equal(t, callsBeforeRegenerate, executor.calls)
	assert.Equal(t, 2, sess.State.Cycle)
	assert.True(t, sess.State.CanApprove)
	// Regenerate still records a step with an empty output.
	assert.False(t, sess.Outputs[iteration.StepRegenerate].Failed())
}

func TestResumeSession_FullCycleCompletes(t *testing.T) {
	executor := &stubExecutor{resp: okResponse()}
	storage := &stubStorage{}
	o := NewOrchestrator(Options{Executor: executor, Storage: storage, DefaultBackend: "openai"})

	summary, err := o.StartOutlineCycle(context.Background(), OutlineCycleInput{Idea: "topic"})
	require.NoError(t, err)

	sequence := []iteration.StepKind{
		iteration.StepGenerate, iteration.StepCritique, iteration.StepReflection,
		iteration.StepQuestion, iteration.StepRegenerate, iteration.StepApproval,
	}
	var sess *Session
	for _, kind := range sequence {
		sess, err = o.ResumeSession(context.Background(), summary.SessionID, iteration.Step{Kind: kind})
		require.NoError(t, err, "step %s", kind)
	}

	assert.Equal(t, iteration.StatusCompleted, sess.State.Status)
	assert.Len(t, sess.Steps, len(sequence))
	// One save at start plus one per accepted step.
	assert.Equal(t, 1+len(sequence), storage.saves)

	_, err = o.ResumeSession(context.Background(), summary.SessionID, iteration.Step{Kind: iteration.StepGenerate})
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "already-completed", fault.Detail["code"])
}

func TestResumeSession_PersistenceFailureDoesNotAbort(t *testing.T) {
	storage := &stubStorage{err: errors.New("disk full")}
	o := NewOrchestrator(Options{Storage: storage})

	summary, err := o.StartOutlineCycle(context.Background(), OutlineCycleInput{Idea: "topic"})
	require.NoError(t, err)

	sess, err := o.ResumeSession(context.Background(), summary.SessionID, iteration.Step{Kind: iteration.StepGenerate})
	require.NoError(t, err)
	require.Len(t, sess.Steps, 1)
}

func TestRestore(t *testing.T) {
	o := NewOrchestrator(Options{})

	require.Error(t, o.Restore(nil))
	require.Error(t, o.Restore(&Session{}))

	sess := &Session{
		ID:      "restored-1",
		Mode:    iteration.ModeOutline,
		Outputs: make(map[iteration.StepKind]StepOutput),
		State:   iteration.Initialize(iteration.ModeOutline),
	}
	require.NoError(t, o.Restore(sess))

	got, err := o.GetSession("restored-1")
	require.NoError(t, err)
	assert.Same(t, sess, got)

	// Restoring over a live session must not replace it.
	require.NoError(t, o.Restore(&Session{ID: "restored-1"}))
	got, err = o.GetSession("restored-1")
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestApplyTemplatePoint(t *testing.T) {
	templates := &stubTemplates{tpl: &template.Template{
		ID:   "brief",
		Name: "Brief",
		Points: []template.Point{
			{ID: "p-1", Instructions: "state the goal", Priority: 1},
		},
	}}
	o := NewOrchestrator(Options{Templates: templates})

	_, err := o.ApplyTemplatePoint("missing", "p-1")
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultInvalidState, fault.Code)

	summary, err := o.StartOutlineCycle(context.Background(), OutlineCycleInput{Idea: "topic", TemplateID: "brief"})
	require.NoError(t, err)

	eval, err := o.ApplyTemplatePoint(summary.SessionID, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", eval.Status)
	assert.Equal(t, "state the goal", eval.Instructions)
}
