// Package iteration implements the step-ordering state machine for
// generation cycles. It is pure: no I/O, no clocks, no retries. Every
// function returns new values and never mutates its inputs.
package iteration

import "fmt"

var (
	outlineOrder = []StepKind{StepGenerate, StepCritique, StepReflection, StepQuestion, StepRegenerate}

	// Draft cycles skip the question step entirely.
	draftOrder = []StepKind{StepGenerate, StepCritique, StepReflection, StepRegenerate}
)

// StepOrder returns the ordered step sequence for a mode.
func StepOrder(mode Mode) []StepKind {
	var order []StepKind
	if mode == ModeDraft {
		order = draftOrder
	} else {
		order = outlineOrder
	}
	out := make([]StepKind, len(order))
	copy(out, order)
	return out
}

// Initialize returns the starting state for a mode: cycle 1, empty history,
// first step of the mode's sequence required, approval locked.
func Initialize(mode Mode) State {
	return State{
		Mode:             mode,
		Status:           StatusActive,
		Cycle:            1,
		History:          []HistoryEntry{},
		NextRequiredStep: StepGenerate,
		CanApprove:       false,
	}
}

// HandleStep applies one step to a state and returns the transition. On any
// violation the returned State is the input state unchanged, so callers can
// detect a no-op by value equality.
func HandleStep(state State, step Step) Transition {
	if state.Status == StatusCompleted {
		return rejected(state, Violation{
			Code:    ViolationAlreadyCompleted,
			Message: "iteration is already completed",
		})
	}

	if step.Kind == StepApproval {
		return handleApproval(state)
	}

	if step.Kind != state.NextRequiredStep {
		return rejected(state, Violation{
			Code:    ViolationUnexpectedStep,
			Message: fmt.Sprintf("expected step %q, received %q", state.NextRequiredStep, step.Kind),
			Detail: map[string]interface{}{
				"expected": string(state.NextRequiredStep),
				"received": string(step.Kind),
			},
		})
	}

	return accept(state, step.Kind)
}

// handleApproval closes the cycle. The recorded cycle is the one before the
// regenerate-step increment that unlocked approval, clamped to 1.
func handleApproval(state State) Transition {
	if !state.CanApprove {
		return rejected(state, Violation{
			Code:    ViolationApprovalNotAllowed,
			Message: "approval requires a preceding regenerate step",
		})
	}

	recordedCycle := state.Cycle - 1
	if recordedCycle < 1 {
		recordedCycle = 1
	}

	next := state
	next.History = appendEntry(state.History, StepApproval, recordedCycle)
	next.Status = StatusCompleted
	next.NextRequiredStep = StepCompleted
	next.CanApprove = false

	return Transition{State: next, NextRequiredStep: StepCompleted}
}

// accept records a matching non-approval step and advances the sequence.
func accept(state State, kind StepKind) Transition {
	next := state

	// Regenerate bumps the cycle before its history entry is recorded.
	if kind == StepRegenerate {
		next.Cycle = state.Cycle + 1
	}

	next.History = appendEntry(state.History, kind, next.Cycle)
	next.CanApprove = kind == StepRegenerate
	next.NextRequiredStep = advance(state.Mode, kind)

	return Transition{State: next, NextRequiredStep: next.NextRequiredStep}
}

// advance returns the step after kind in the mode's sequence, wrapping to
// critique after the final (regenerate) entry so a fresh cycle re-critiques
// the regenerated document rather than generating from scratch.
func advance(mode Mode, kind StepKind) StepKind {
	order := outlineOrder
	if mode == ModeDraft {
		order = draftOrder
	}
	for i, k := range order {
		if k != kind {
			continue
		}
		if i == len(order)-1 {
			return StepCritique
		}
		return order[i+1]
	}
	return StepCritique
}

// appendEntry copies the history before appending so earlier State values
// held by callers keep their original history.
func appendEntry(history []HistoryEntry, kind StepKind, cycle int) []HistoryEntry {
	out := make([]HistoryEntry, len(history), len(history)+1)
	copy(out, history)
	return append(out, HistoryEntry{
		Sequence: len(history) + 1,
		Kind:     kind,
		Cycle:    cycle,
	})
}

func rejected(state State, v Violation) Transition {
	return Transition{
		State:            state,
		NextRequiredStep: state.NextRequiredStep,
		Violations:       []Violation{v},
	}
}
