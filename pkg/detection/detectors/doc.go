// Package detectors contains built-in detector implementations.
//
// Threshold is the reference detector: a mean/stddev z-score scorer over a
// sliding window of numeric samples. Func adapts a pair of closures into a
// Detector for wiring ad-hoc detection logic without a named type.
//
// The governance layer treats every detector as opaque; nothing in this
// package is special to the gate.
package detectors
