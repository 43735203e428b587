package detectors

import (
	"context"

	"sentinel-hq/warden/pkg/detection"
)

// ComputeFunc computes a detection record from an input, or nil when nothing
// was detected.
type ComputeFunc func(ctx context.Context, input any) (*detection.Record, error)

// Func adapts a compute/action closure pair into a detection.Detector.
type Func struct {
	name    string
	compute ComputeFunc
	action  ActionFunc
}

// NewFunc creates a detector from closures. A nil action records a no-op
// description when executed.
func NewFunc(name string, compute ComputeFunc, action ActionFunc) *Func {
	return &Func{name: name, compute: compute, action: action}
}

// Name returns the detector name.
func (f *Func) Name() string {
	return f.name
}

// Compute invokes the compute closure.
func (f *Func) Compute(ctx context.Context, input any) (*detection.Record, error) {
	return f.compute(ctx, input)
}

// Execute invokes the action closure.
func (f *Func) Execute(ctx context.Context, record *detection.Record) (string, error) {
	if f.action != nil {
		return f.action(ctx, record)
	}
	return "no action configured", nil
}
