package iteration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	for _, mode := range []Mode{ModeOutline, ModeDraft} {
		state := Initialize(mode)
		assert.Equal(t, mode, state.Mode)
		assert.Equal(t, StatusActive, state.Status)
		assert.Equal(t, 1, state.Cycle)
		assert.Empty(t, state.History)
		assert.Equal(t, StepGenerate, state.NextRequiredStep)
		assert.False(t, state.CanApprove)
	}
}

func TestHandleStep_UnexpectedStepLeavesStateUntouched(t *testing.T) {
	state := Initialize(ModeOutline)

	tr := HandleStep(state, Step{Kind: StepCritique})
	require.Len(t, tr.Violations, 1)
	assert.Equal(t, ViolationUnexpectedStep, tr.Violations[0].Code)
	assert.Equal(t, "generate", tr.Violations[0].Detail["expected"])
	assert.Equal(t, "critique", tr.Violations[0].Detail["received"])
	assert.Equal(t, state, tr.State)
}

func TestHandleStep_FullOutlineSequenceCompletes(t *testing.T) {
	sequence := []StepKind{
		StepGenerate, StepCritique, StepReflection, StepQuestion, StepRegenerate, StepApproval,
	}

	state := Initialize(ModeOutline)
	for _, kind := range sequence {
		tr := HandleStep(state, Step{Kind: kind})
		require.Empty(t, tr.Violations, "step %s", kind)
		state = tr.State
	}

	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, StepCompleted, state.NextRequiredStep)
	require.Len(t, state.History, len(sequence))
	for i, kind := range sequence {
		assert.Equal(t, kind, state.History[i].Kind)
		assert.Equal(t, i+1, state.History[i].Sequence)
	}
}

func TestHandleStep_DraftModeNeverRequiresQuestion(t *testing.T) {
	state := Initialize(ModeDraft)
	for _, kind := range []StepKind{StepGenerate, StepCritique, StepReflection} {
		tr := HandleStep(state, Step{Kind: kind})
		require.Empty(t, tr.Violations)
		state = tr.State
	}

	// After reflection a draft cycle goes straight to regenerate.
	assert.Equal(t, StepRegenerate, state.NextRequiredStep)

	tr := HandleStep(state, Step{Kind: StepQuestion})
	require.Len(t, tr.Violations, 1)
	assert.Equal(t, ViolationUnexpectedStep, tr.Violations[0].Code)
	assert.Equal(t, state, tr.State)
}

func TestHandleStep_ApprovalBeforeRegenerateRejected(t *testing.T) {
	state := Initialize(ModeDraft)
	tr := HandleStep(state, Step{Kind: StepApproval})
	require.Len(t, tr.Violations, 1)
	assert.Equal(t, ViolationApprovalNotAllowed, tr.Violations[0].Code)
	assert.Equal(t, state, tr.State)
}

func TestHandleStep_RegenerateBumpsCycleAndUnlocksApproval(t *testing.T) {
	state := Initialize(ModeDraft)
	for _, kind := range []StepKind{StepGenerate, StepCritique, StepReflection} {
		state = HandleStep(state, Step{Kind: kind}).State
	}

	tr := HandleStep(state, Step{Kind: StepRegenerate})
	require.Empty(t, tr.Violations)
	assert.Equal(t, 2, tr.State.Cycle)
	assert.True(t, tr.State.CanApprove)
	// The regenerate entry is recorded under the new cycle.
	assert.Equal(t, 2, tr.State.History[len(tr.State.History)-1].Cycle)
	assert.Equal(t, StepCritique, tr.State.NextRequiredStep)

	// Any accepted non-approval step relocks approval without touching cycle.
	tr = HandleStep(tr.State, Step{Kind: StepCritique})
	require.Empty(t, tr.Violations)
	assert.Equal(t, 2, tr.State.Cycle)
	assert.False(t, tr.State.CanApprove)
}

func TestHandleStep_ApprovalRecordsPriorCycle(t *testing.T) {
	state := Initialize(ModeDraft)
	for _, kind := range []StepKind{StepGenerate, StepCritique, StepReflection, StepRegenerate} {
		state = HandleStep(state, Step{Kind: kind}).State
	}
	require.Equal(t, 2, state.Cycle)

	tr := HandleStep(state, Step{Kind: StepApproval})
	require.Empty(t, tr.Violations)
	entry := tr.State.History[len(tr.State.History)-1]
	assert.Equal(t, StepApproval, entry.Kind)
	// Approval closes the cycle that the regenerate increment opened.
	assert.Equal(t, 1, entry.Cycle)
}

func TestHandleStep_CompletedStateRejectsEverything(t *testing.T) {
	state := Initialize(ModeDraft)
	for _, kind := range []StepKind{StepGenerate, StepCritique, StepReflection, StepRegenerate, StepApproval} {
		state = HandleStep(state, Step{Kind: kind}).State
	}
	require.Equal(t, StatusCompleted, state.Status)

	for _, kind := range []StepKind{StepGenerate, StepCritique, StepReflection, StepQuestion, StepRegenerate, StepApproval} {
		tr := HandleStep(state, Step{Kind: kind})
		require.Len(t, tr.Violations, 1, "step %s", kind)
		assert.Equal(t, ViolationAlreadyCompleted, tr.Violations[0].Code)
		assert.Equal(t, state, tr.State)
	}
}

func TestHandleStep_HistoryIsCopyOnWrite(t *testing.T) {
	state := Initialize(ModeOutline)
	first := HandleStep(state, Step{Kind: StepGenerate}).State
	second := HandleStep(first, Step{Kind: StepCritique}).State

	// Appending to the later state must not reach back into the earlier one.
	require.Len(t, first.History, 1)
	require.Len(t, second.History, 2)
	assert.Equal(t, StepGenerate, first.History[0].Kind)
}

func TestStepOrder(t *testing.T) {
	assert.Equal(t,
		[]StepKind{StepGenerate, StepCritique, StepReflection, StepQuestion, StepRegenerate},
		StepOrder(ModeOutline))
	assert.Equal(t,
		[]StepKind{StepGenerate, StepCritique, StepReflection, StepRegenerate},
		StepOrder(ModeDraft))
}
