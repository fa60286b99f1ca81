package session

import "fmt"

// FaultCode classifies an orchestration failure. This taxonomy is kept
// strictly separate from provider fault kinds.
type FaultCode string

const (
	FaultValidation   FaultCode = "validation_error"
	FaultInvalidState FaultCode = "invalid_state"
)

// Fault is a structured orchestration error. Validation and unknown-session
// faults are non-recoverable; state-machine violations are recoverable
// because the caller can retry with a corrected step.
type Fault struct {
	Code        FaultCode              `json:"code"`
	Message     string                 `json:"message"`
	Recoverable bool                   `json:"recoverable"`
	Detail      map[string]interface{} `json:"detail,omitempty"`
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func validationFault(message string) *Fault {
	return &Fault{
		Code:        FaultValidation,
		Message:     message,
		Recoverable: false,
	}
}

func invalidStateFault(message string, recoverable bool, detail map[string]interface{}) *Fault {
	return &Fault{
		Code:        FaultInvalidState,
		Message:     message,
		Recoverable: recoverable,
		Detail:      detail,
	}
}
