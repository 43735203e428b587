package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentinel-hq/warden/pkg/audit"
	"sentinel-hq/warden/pkg/detection"
)

// Outcome labels the result of a gate decision, used for observability.
type Outcome string

const (
	// OutcomeExecuted means the action ran during evaluation.
	OutcomeExecuted Outcome = "executed"
	// OutcomeQueued means a pending approval was created.
	OutcomeQueued Outcome = "queued"
	// OutcomeShadowed means the shadow window suppressed the action.
	OutcomeShadowed Outcome = "shadowed"
	// OutcomeSuppressed means the gate was disabled.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeApproved means a pending approval was approved and executed.
	OutcomeApproved Outcome = "approved"
	// OutcomeRejected means a pending approval was rejected.
	OutcomeRejected Outcome = "rejected"
)

// Observer receives gate decisions, e.g. to increment live counters.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveDecision(detector string, tier detection.Tier, outcome Outcome)
}

// Config contains gate construction parameters.
type Config struct {
	// AppendTimeout bounds each audit append so a slow sink surfaces as a
	// retryable durability error instead of hanging the caller.
	// Default: 5 seconds.
	AppendTimeout time.Duration

	// Observer receives decision outcomes. Optional.
	Observer Observer

	// Clock overrides the time source. Used by tests; defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the default gate configuration.
func DefaultConfig() *Config {
	return &Config{AppendTimeout: 5 * time.Second}
}

// Gate is the per-detector policy state machine. It owns the detector's
// pending approval set and shadow-window state; the audit log is shared
// across gates.
//
// All methods are safe for concurrent use. State transitions, evaluations
// and resolutions are serialized under the gate's lock, so audit entries for
// a single gate are appended in the order its state machine applied them.
type Gate struct {
	name     string
	detector detection.Detector
	log      audit.Log
	logger   *slog.Logger
	observer Observer

	appendTimeout time.Duration
	now           func() time.Time

	mu          sync.Mutex
	mode        detection.Mode
	shadowUntil time.Time
	pending     map[string]*detection.PendingApproval
}

// New creates a gate for the given detector. The gate starts in live mode.
func New(detector detection.Detector, log audit.Log, config *Config) *Gate {
	if config == nil {
		config = DefaultConfig()
	}

	appendTimeout := config.AppendTimeout
	if appendTimeout <= 0 {
		appendTimeout = 5 * time.Second
	}

	now := config.Clock
	if now == nil {
		now = time.Now
	}

	return &Gate{
		name:          detector.Name(),
		detector:      detector,
		log:           log,
		logger:        slog.Default().With("component", "gate", "detector", detector.Name()),
		observer:      config.Observer,
		appendTimeout: appendTimeout,
		now:           now,
		mode:          detection.ModeLive,
		pending:       make(map[string]*detection.PendingApproval),
	}
}

// Name returns the detector name this gate governs.
func (g *Gate) Name() string {
	return g.name
}

// Mode returns the stored operating mode. Note that a stored shadow mode may
// no longer be active; see ShadowActive.
func (g *Gate) Mode() detection.Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// ShadowActive reports whether the shadow window is currently in effect.
// The predicate is time-derived: a gate in shadow mode whose window has
// expired reports false while still storing the shadow mode.
func (g *Gate) ShadowActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shadowActiveLocked(g.now())
}

// ShadowUntil returns the end of the shadow window, zero when never shadowed.
func (g *Gate) ShadowUntil() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shadowUntil
}

// EnableShadow puts the gate in shadow mode for the given window. Calling it
// while already in shadow resets the window end to now+duration.
func (g *Gate) EnableShadow(duration time.Duration) error {
	if duration <= 0 {
		return &Error{Kind: KindInvalid, Detector: g.name, Message: "shadow duration must be positive"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.mode = detection.ModeShadow
	g.shadowUntil = g.now().Add(duration)

	g.logger.Info("shadow mode enabled", "window_end", g.shadowUntil)
	return nil
}

// DisableShadow returns the gate to live mode. It applies even before the
// window ends and is a no-op when the gate is not in shadow mode.
func (g *Gate) DisableShadow() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode != detection.ModeShadow {
		return
	}
	g.mode = detection.ModeLive
	g.shadowUntil = time.Time{}

	g.logger.Info("shadow mode disabled")
}

// SetMode sets the gate to live or disabled. Shadow mode carries a window and
// is entered through EnableShadow.
func (g *Gate) SetMode(mode detection.Mode) error {
	if mode == detection.ModeShadow {
		return &Error{Kind: KindInvalid, Detector: g.name, Message: "shadow mode requires a window; use EnableShadow"}
	}
	if !mode.Valid() {
		return &Error{Kind: KindInvalid, Detector: g.name, Message: fmt.Sprintf("unknown operating mode %q", mode)}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.mode = mode
	g.shadowUntil = time.Time{}

	g.logger.Info("operating mode changed", "mode", mode)
	return nil
}

// Evaluate runs the detector against the input and applies the governance
// decision to the resulting record.
//
// A nil record from the detector means nothing was detected: Evaluate returns
// (nil, nil) with no audit entry, distinguishing "nothing detected" from
// "detected but suppressed".
//
// For a detected record, exactly one audit entry is appended unless the gate
// is disabled. Info-tier records execute immediately in live mode; warn and
// block records are queued for approval; records evaluated while the shadow
// window is active never execute and never queue.
func (g *Gate) Evaluate(ctx context.Context, input any) (*detection.Record, error) {
	record, err := g.detector.Compute(ctx, input)
	if err != nil {
		return nil, &Error{Kind: KindCompute, Detector: g.name, Message: "detector compute failed", Cause: err}
	}
	if record == nil {
		return nil, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	shadowActive := g.shadowActiveLocked(now)
	record.Shadow = shadowActive

	switch {
	case g.mode == detection.ModeDisabled:
		// Suppressed entirely: no action, no approval, no audit entry. The
		// suppression is still visible in the structured log.
		g.logger.Debug("detection suppressed",
			"tier", record.Tier,
			"confidence", record.Confidence,
		)
		g.observe(record.Tier, OutcomeSuppressed)
		return record.Clone(), nil

	case shadowActive:
		entry := g.newEntryLocked(record, audit.EventEvaluation, now)
		if err := g.append(ctx, entry); err != nil {
			return nil, err
		}
		g.logger.Info("detection shadowed",
			"tier", record.Tier,
			"confidence", record.Confidence,
		)
		g.observe(record.Tier, OutcomeShadowed)
		return record.Clone(), nil

	case record.Tier.RequiresApproval() && !record.Approved:
		approval := &detection.PendingApproval{
			ID:          uuid.NewString(),
			Record:      record,
			RequestedAt: now,
		}

		entry := g.newEntryLocked(record, audit.EventEvaluation, now)
		entry.ApprovalID = approval.ID
		if err := g.append(ctx, entry); err != nil {
			return nil, err
		}

		g.pending[approval.ID] = approval
		g.logger.Info("detection queued for approval",
			"tier", record.Tier,
			"approval_id", approval.ID,
		)
		g.observe(record.Tier, OutcomeQueued)
		return record.Clone(), nil

	default:
		return g.executeLocked(ctx, record, audit.EventEvaluation, nil, now)
	}
}

// ListPending returns the gate's pending approvals ordered by request time.
func (g *Gate) ListPending() []*detection.PendingApproval {
	g.mu.Lock()
	defer g.mu.Unlock()

	approvals := make([]*detection.PendingApproval, 0, len(g.pending))
	for _, approval := range g.pending {
		cp := *approval
		cp.Record = approval.Record.Clone()
		approvals = append(approvals, &cp)
	}

	sort.Slice(approvals, func(i, j int) bool {
		if approvals[i].RequestedAt.Equal(approvals[j].RequestedAt) {
			return approvals[i].ID < approvals[j].ID
		}
		return approvals[i].RequestedAt.Before(approvals[j].RequestedAt)
	})

	return approvals
}

// PendingCount returns the number of unresolved approvals.
func (g *Gate) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// ResolveApproval applies the terminal decision for a pending approval.
//
// On approval the record is marked approved, the action executes, and an
// approval entry is appended. On rejection a rejection entry is appended and
// the action never executes for that record again. Either way the approval
// leaves the pending set; resolving the same id again, including from a
// concurrent caller, yields a not-found error.
func (g *Gate) ResolveApproval(ctx context.Context, id string, approved bool, reviewer, notes string) (*detection.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	approval, ok := g.pending[id]
	if !ok {
		return nil, errNotFound(g.name, id)
	}

	now := g.now()
	reviewedAt := now
	approval.Approved = approved
	approval.ReviewedAt = &reviewedAt
	approval.Reviewer = reviewer
	approval.Notes = notes

	if !approved {
		entry := g.newEntryLocked(approval.Record, audit.EventRejection, now)
		entry.ApprovalID = id
		entry.Reviewer = reviewer
		entry.Notes = notes
		entry.ReviewedAt = &reviewedAt
		if err := g.append(ctx, entry); err != nil {
			// Not durably recorded: the rejection has not happened and the
			// approval stays pending.
			approval.Approved = false
			approval.ReviewedAt = nil
			approval.Reviewer = ""
			approval.Notes = ""
			return nil, err
		}

		delete(g.pending, id)
		g.logger.Info("approval rejected",
			"approval_id", id,
			"reviewer", reviewer,
		)
		g.observe(approval.Record.Tier, OutcomeRejected)
		return approval.Record.Clone(), nil
	}

	approval.Record.Approved = true
	record, err := g.executeLocked(ctx, approval.Record, audit.EventApproval, approval, now)
	if err != nil && IsKind(err, KindDurability) && !approval.Record.Executed() {
		// The sink refused before anything ran: the approval decision has not
		// happened. Leave it pending and undo the approval marks.
		approval.Record.Approved = false
		approval.Approved = false
		approval.ReviewedAt = nil
		approval.Reviewer = ""
		approval.Notes = ""
		return nil, err
	}

	// Executed (successfully or not): the resolution is terminal.
	delete(g.pending, id)
	if err == nil {
		g.logger.Info("approval granted",
			"approval_id", id,
			"reviewer", reviewer,
		)
		g.observe(approval.Record.Tier, OutcomeApproved)
	}
	return record, err
}

// Metrics reconstructs the gate's summary by replaying the audit log.
// Counts survive restarts because the log, not the gate, is authoritative.
func (g *Gate) Metrics(ctx context.Context) (*audit.Summary, error) {
	summary, err := audit.Replay(ctx, g.log, g.name)
	if err != nil {
		return nil, errDurability(g.name, err)
	}
	summary.ShadowActive = g.ShadowActive()
	return summary, nil
}

// executeLocked runs the detector action and appends the corresponding audit
// entry. Callers must hold g.mu.
//
// The log is probed before the action runs so that a dead sink never yields
// an unaudited execution. An execution failure is captured verbatim in the
// entry's action description and surfaced to the caller; it is terminal for
// the record and never retried.
func (g *Gate) executeLocked(ctx context.Context, record *detection.Record, event audit.Event, approval *detection.PendingApproval, now time.Time) (*detection.Record, error) {
	if err := g.pingLog(ctx); err != nil {
		return nil, err
	}

	description, execErr := g.detector.Execute(ctx, record)
	if execErr != nil {
		description = fmt.Sprintf("execution failed: %v", execErr)
	}
	record.ActionTaken = &description

	entry := g.newEntryLocked(record, event, now)
	if approval != nil {
		entry.ApprovalID = approval.ID
		entry.Reviewer = approval.Reviewer
		entry.Notes = approval.Notes
		entry.ReviewedAt = approval.ReviewedAt
	}
	if err := g.append(ctx, entry); err != nil {
		g.logger.Error("action executed but audit append failed",
			"action", description,
			"error", err,
		)
		return record.Clone(), err
	}

	if execErr != nil {
		g.observe(record.Tier, OutcomeExecuted)
		return record.Clone(), &Error{
			Kind:     KindExecution,
			Detector: g.name,
			Message:  "action execution failed",
			Cause:    execErr,
		}
	}

	g.logger.Info("action executed",
		"tier", record.Tier,
		"action", description,
	)
	g.observe(record.Tier, OutcomeExecuted)
	return record.Clone(), nil
}

// newEntryLocked builds the audit entry for a decision. Callers must hold g.mu.
func (g *Gate) newEntryLocked(record *detection.Record, event audit.Event, now time.Time) *audit.Entry {
	entry := &audit.Entry{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Event:      event,
		Detector:   g.name,
		Tier:       record.Tier,
		Confidence: record.Confidence,
		Details:    record.Details,
		Shadow:     record.Shadow,
		Approved:   record.Approved,
		Mode:       g.mode,
	}
	if record.ActionTaken != nil {
		action := *record.ActionTaken
		entry.ActionTaken = &action
	}
	return entry
}

// append writes one entry with the configured timeout.
func (g *Gate) append(ctx context.Context, entry *audit.Entry) error {
	appendCtx, cancel := context.WithTimeout(ctx, g.appendTimeout)
	defer cancel()

	if err := g.log.Append(appendCtx, entry); err != nil {
		return errDurability(g.name, err)
	}
	return nil
}

// pingLog probes the audit sink before an action is allowed to run.
func (g *Gate) pingLog(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, g.appendTimeout)
	defer cancel()

	if err := g.log.Ping(pingCtx); err != nil {
		return errDurability(g.name, err)
	}
	return nil
}

// shadowActiveLocked computes the derived shadow predicate. Callers must hold g.mu.
func (g *Gate) shadowActiveLocked(now time.Time) bool {
	return g.mode == detection.ModeShadow && now.Before(g.shadowUntil)
}

func (g *Gate) observe(tier detection.Tier, outcome Outcome) {
	if g.observer != nil {
		g.observer.ObserveDecision(g.name, tier, outcome)
	}
}
