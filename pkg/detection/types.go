package detection

import (
	"context"
	"fmt"
	"time"
)

// Tier classifies the severity of a detection. Tiers are not totally ordered
// for action purposes: each tier maps independently to a governance rule.
// Info-tier detections execute immediately when the gate is live; Warn and
// Block tier detections require an approval before their action may run.
type Tier string

const (
	// TierInfo is informational. Actions execute without approval.
	TierInfo Tier = "info"
	// TierWarn indicates a suspicious finding. Actions require approval.
	TierWarn Tier = "warn"
	// TierBlock indicates a finding severe enough to block. Actions require approval.
	TierBlock Tier = "block"
)

// ParseTier converts a string to a Tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierInfo, TierWarn, TierBlock:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown detection tier %q", s)
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool {
	return t == TierInfo || t == TierWarn || t == TierBlock
}

// RequiresApproval reports whether detections of this tier must be approved
// before their action may execute.
func (t Tier) RequiresApproval() bool {
	return t == TierWarn || t == TierBlock
}

// Mode is the operating mode of a single detector's policy gate.
type Mode string

const (
	// ModeLive allows actions to execute, subject to tier rules.
	ModeLive Mode = "live"
	// ModeShadow computes and audits detections but never executes actions.
	ModeShadow Mode = "shadow"
	// ModeDisabled suppresses the detector entirely; no approvals, no actions,
	// no audit entries.
	ModeDisabled Mode = "disabled"
)

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLive, ModeShadow, ModeDisabled:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown operating mode %q", s)
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m == ModeLive || m == ModeShadow || m == ModeDisabled
}

// Record describes one detection event. It is produced by a Detector and
// becomes immutable once handed to a gate, except for the two controlled
// mutations (Approved, ActionTaken) performed inside the approval-resolution
// path under the gate's lock.
//
// Invariant: ActionTaken is non-nil if and only if the record's action was
// actually executed.
type Record struct {
	// Detector is the name of the detector that produced this record.
	Detector string `json:"detector"`

	// Tier is the severity classification.
	Tier Tier `json:"tier"`

	// Confidence is the detector's confidence in the finding, 0.0-1.0 inclusive.
	Confidence float64 `json:"confidence"`

	// Details carries free-form diagnostic context.
	Details map[string]any `json:"details,omitempty"`

	// CreatedAt is when the detector produced the record.
	CreatedAt time.Time `json:"created_at"`

	// Shadow is stamped by the gate at evaluation time: true when the record
	// was evaluated while the gate's shadow window was active.
	Shadow bool `json:"shadow"`

	// Approved is set by the approval workflow, never by the detector.
	Approved bool `json:"approved"`

	// ActionTaken describes the executed action, nil when no action ran.
	ActionTaken *string `json:"action_taken,omitempty"`
}

// NewRecord creates a detection record with the creation timestamp set to now.
// Confidence must be within [0.0, 1.0] and the tier must be valid.
func NewRecord(detector string, tier Tier, confidence float64, details map[string]any) (*Record, error) {
	if detector == "" {
		return nil, fmt.Errorf("detector name cannot be empty")
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("unknown detection tier %q", tier)
	}
	if confidence < 0.0 || confidence > 1.0 {
		return nil, fmt.Errorf("confidence %v out of range [0.0, 1.0]", confidence)
	}
	return &Record{
		Detector:   detector,
		Tier:       tier,
		Confidence: confidence,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Executed reports whether the record's action was actually executed.
func (r *Record) Executed() bool {
	return r.ActionTaken != nil
}

// Clone returns a copy of the record with a shallow-copied details map, so
// callers cannot mutate gate-owned state through the returned record.
func (r *Record) Clone() *Record {
	cp := *r
	if r.Details != nil {
		cp.Details = make(map[string]any, len(r.Details))
		for k, v := range r.Details {
			cp.Details[k] = v
		}
	}
	if r.ActionTaken != nil {
		action := *r.ActionTaken
		cp.ActionTaken = &action
	}
	return &cp
}

// PendingApproval is a queued, unresolved governance decision for a
// risky-tier detection. It is created exactly when a Warn/Block record
// arrives at a live, non-shadowed gate without prior approval, and removed
// by exactly one terminal resolution.
type PendingApproval struct {
	// ID uniquely identifies the pending approval.
	ID string `json:"id"`

	// Record is the detection awaiting review.
	Record *Record `json:"record"`

	// RequestedAt is when the approval was queued.
	RequestedAt time.Time `json:"requested_at"`

	// Approved, ReviewedAt, Reviewer and Notes are populated by resolution.
	Approved   bool       `json:"approved"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	Reviewer   string     `json:"reviewer,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// Detector is the pluggable detection unit. Implementations compute findings
// and perform the corresponding real-world action, but only when the owning
// gate authorizes execution.
type Detector interface {
	// Name returns the detector's unique name.
	Name() string

	// Compute inspects the input and returns a detection record, or nil when
	// nothing was detected. Compute must not execute side effects; a nil
	// record produces no gate evaluation and no audit entry.
	Compute(ctx context.Context, input any) (*Record, error)

	// Execute performs the real-world action for a record and returns a short
	// description of what was done. It is called only by the policy gate, and
	// only when the record is authorized to execute.
	Execute(ctx context.Context, record *Record) (string, error)
}
