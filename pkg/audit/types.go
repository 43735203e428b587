package audit

import (
	"context"
	"time"

	"sentinel-hq/warden/pkg/detection"
)

// Event identifies the kind of governance decision an entry records.
type Event string

const (
	// EventEvaluation is written once per gate evaluation of a non-disabled
	// detector, whatever the outcome (execute, queue or shadow-suppress).
	EventEvaluation Event = "evaluation"
	// EventApproval is written when a pending approval is approved and its
	// action executed.
	EventApproval Event = "approval"
	// EventRejection is written when a pending approval is rejected.
	EventRejection Event = "rejection"
)

// Entry mirrors one governance decision. Entries are immutable once appended.
type Entry struct {
	// ID uniquely identifies the entry. Assigned by the gate (UUID v4).
	ID string `json:"id"`

	// Seq is the append-order sequence number, assigned by the storage
	// backend on append. Zero until the entry has been stored.
	Seq int64 `json:"seq,omitempty"`

	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`

	// Event is the decision kind.
	Event Event `json:"event"`

	// Detector is the name of the detector the decision belongs to.
	Detector string `json:"detector"`

	// Tier, Confidence and Details are copied from the detection record.
	Tier       detection.Tier `json:"tier"`
	Confidence float64        `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`

	// Shadow records whether the gate's shadow window was active.
	Shadow bool `json:"shadow"`

	// Approved records the record's approval flag at decision time.
	Approved bool `json:"approved"`

	// ActionTaken describes the executed action; nil when no action ran.
	ActionTaken *string `json:"action_taken,omitempty"`

	// Mode is the gate's operating mode at decision time.
	Mode detection.Mode `json:"mode"`

	// Reviewer metadata, present on approval/rejection entries only.
	ApprovalID string     `json:"approval_id,omitempty"`
	Reviewer   string     `json:"reviewer,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// Filter selects entries from the log. Zero-valued fields match everything.
type Filter struct {
	// Detector restricts entries to a single detector.
	Detector string

	// Event restricts entries to a single event kind.
	Event Event

	// Tier restricts entries to a single tier.
	Tier detection.Tier

	// Since and Until bound the entry timestamp (inclusive).
	Since *time.Time
	Until *time.Time

	// ExecutedOnly selects entries with a non-nil ActionTaken.
	ExecutedOnly bool

	// Limit and Offset paginate the result. Limit <= 0 means no limit.
	Limit  int
	Offset int
}

// Log is the append-only sink of governance decisions.
//
// Implementations must be safe for concurrent appenders. Append order across
// detectors is unspecified, but entries appended by a single gate are scanned
// back in the order the gate appended them. Append must not return nil until
// the entry is durable enough to survive a process crash.
type Log interface {
	// Append durably stores an entry and assigns its sequence number.
	Append(ctx context.Context, entry *Entry) error

	// Scan returns entries matching the filter, ordered by append order.
	Scan(ctx context.Context, filter *Filter) ([]*Entry, error)

	// ScanStream streams matching entries in append order for large result
	// sets. Both channels are closed when the scan completes; callers must
	// drain the error channel.
	ScanStream(ctx context.Context, filter *Filter) (<-chan *Entry, <-chan error, error)

	// Count returns the number of entries matching the filter.
	Count(ctx context.Context, filter *Filter) (int64, error)

	// Ping reports whether the log can currently accept appends. Gates probe
	// the log before executing an action so that a dead sink never produces
	// an unaudited execution.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
