package iteration

// Mode selects which step sequence a generation cycle follows.
type Mode string

const (
	ModeOutline Mode = "outline"
	ModeDraft   Mode = "draft"
)

// Status represents the lifecycle state of an iteration.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// StepKind identifies one unit of the generation cycle.
type StepKind string

const (
	StepGenerate   StepKind = "generate"
	StepCritique   StepKind = "critique"
	StepReflection StepKind = "reflection"
	StepQuestion   StepKind = "question"
	StepRegenerate StepKind = "regenerate"
	StepApproval   StepKind = "approval"

	// StepCompleted is the sentinel next-step value once a cycle is approved.
	StepCompleted StepKind = "completed"
)

// Step is an incoming step with an opaque payload. The payload is carried
// through untouched; the state machine only inspects Kind.
type Step struct {
	Kind    StepKind               `json:"kind"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// HistoryEntry records one accepted step. Entries are immutable once
// appended and keep the cycle they were recorded under.
type HistoryEntry struct {
	Sequence int      `json:"sequence"`
	Kind     StepKind `json:"kind"`
	Cycle    int      `json:"cycle"`
}

// State is the immutable value threaded through HandleStep. Callers may
// hold earlier State values; history is never mutated in place.
type State struct {
	Mode             Mode           `json:"mode"`
	Status           Status         `json:"status"`
	Cycle            int            `json:"cycle"`
	History          []HistoryEntry `json:"history"`
	NextRequiredStep StepKind       `json:"next_required_step"`
	CanApprove       bool           `json:"can_approve"`
}

// ViolationCode classifies why a step was rejected.
type ViolationCode string

const (
	ViolationAlreadyCompleted   ViolationCode = "already-completed"
	ViolationApprovalNotAllowed ViolationCode = "approval-not-allowed"
	ViolationUnexpectedStep     ViolationCode = "unexpected-step"
)

// Violation describes a rejected step. Detail carries structured context
// such as the expected and received step kinds.
type Violation struct {
	Code    ViolationCode          `json:"code"`
	Message string                 `json:"message"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}

// Transition is the result of HandleStep. When Violations is non-empty the
// State is the input state unchanged.
type Transition struct {
	State            State       `json:"state"`
	NextRequiredStep StepKind    `json:"next_required_step"`
	Violations       []Violation `json:"violations,omitempty"`
}
