// Package detection defines the core value types of the policy-gate engine:
// detection tiers, per-detector operating modes, the immutable Detection Record
// produced by detectors, pending approvals awaiting review, and the Detector
// capability interface.
//
// A Detector computes findings; it never executes actions on its own. Action
// execution is owned by the gate package, which decides per record whether the
// action runs immediately, waits for approval, or is suppressed.
package detection
