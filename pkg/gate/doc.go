// Package gate implements the policy gate that governs detector actions.
//
// Each detector is wrapped by one Gate, a small per-detector state machine
// with three operating modes:
//
//   - live: info-tier detections execute immediately; warn/block detections
//     are queued as pending approvals and execute only after a reviewer
//     approves them.
//   - shadow: detections are evaluated and audited but actions never execute
//     and no approvals are queued. Shadow runs for a bounded window; when the
//     window expires the gate behaves as live again while still reporting the
//     stored shadow mode until the next transition.
//   - disabled: detections are suppressed entirely.
//
// Every evaluation of a non-disabled gate appends exactly one entry to the
// audit log, as does every approval or rejection. The audit append is part of
// the governance decision: a decision that cannot be durably recorded is
// reported as a durability error and is not treated as having happened.
//
// The Registry aggregates gates by detector name and offers bulk operations
// (shadow-all, metrics aggregation) plus name-based dispatch for the
// operations API. Construct one Registry per process and pass it explicitly;
// there is no package-level instance.
package gate
