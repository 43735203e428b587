package gate

import (
	"errors"
	"fmt"
)

// Kind classifies gate errors so callers can map them to API responses
// without string matching.
type Kind string

const (
	// KindUnknownDetector is returned when no gate is registered under the
	// requested name.
	KindUnknownDetector Kind = "unknown_detector"

	// KindDuplicateName is returned when registering a gate under a name
	// that is already taken.
	KindDuplicateName Kind = "duplicate_name"

	// KindNotFound is returned when resolving an approval id that is not in
	// the pending set. This is an expected outcome, not a fault: the loser
	// of a concurrent resolution race observes it.
	KindNotFound Kind = "not_found"

	// KindDurability is returned when the audit log cannot durably record a
	// governance decision. The decision is not treated as having happened.
	KindDurability Kind = "durability"

	// KindCompute is returned when the detector's Compute fails.
	KindCompute Kind = "compute"

	// KindExecution is returned when the detector's Execute fails. The
	// failure is terminal for the record and is captured in the audit entry.
	KindExecution Kind = "execution"

	// KindInvalid is returned for invalid caller input (bad mode, non-positive
	// shadow duration).
	KindInvalid Kind = "invalid"
)

// Error is the structured error returned by all gate and registry operations.
type Error struct {
	Kind       Kind
	Detector   string
	ApprovalID string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Detector != "" {
		msg = fmt.Sprintf("%s [detector=%s]", msg, e.Detector)
	}
	if e.ApprovalID != "" {
		msg = fmt.Sprintf("%s [approval_id=%s]", msg, e.ApprovalID)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the error's kind, or an empty kind for non-gate errors.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

// IsKind reports whether err is a gate error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func errUnknownDetector(name string) *Error {
	return &Error{Kind: KindUnknownDetector, Detector: name, Message: "no detector registered under this name"}
}

func errDuplicateName(name string) *Error {
	return &Error{Kind: KindDuplicateName, Detector: name, Message: "a detector is already registered under this name"}
}

func errNotFound(detector, id string) *Error {
	return &Error{Kind: KindNotFound, Detector: detector, ApprovalID: id, Message: "approval is not pending"}
}

func errDurability(detector string, cause error) *Error {
	return &Error{Kind: KindDurability, Detector: detector, Message: "audit append did not complete; decision not recorded", Cause: cause}
}
