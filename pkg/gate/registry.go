package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"sentinel-hq/warden/pkg/audit"
	"sentinel-hq/warden/pkg/detection"
)

// Registry holds the name-keyed set of policy gates and dispatches the
// operations API to them. Construct one per process and inject it; the
// package keeps no global instance.
type Registry struct {
	mu     sync.RWMutex
	gates  map[string]*Gate
	logger *slog.Logger
}

// DetectorMetrics is one detector's slot in an aggregated metrics result.
// A gate whose log is temporarily unavailable is reported as unavailable
// instead of aborting the whole aggregation.
type DetectorMetrics struct {
	Summary     *audit.Summary `json:"summary,omitempty"`
	Unavailable bool           `json:"unavailable,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		gates:  make(map[string]*Gate),
		logger: slog.Default().With("component", "gate.registry"),
	}
}

// Register adds a gate under its detector name.
func (r *Registry) Register(g *Gate) error {
	if g == nil {
		return &Error{Kind: KindInvalid, Message: "gate cannot be nil"}
	}
	if g.Name() == "" {
		return &Error{Kind: KindInvalid, Message: "detector name cannot be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.gates[g.Name()]; ok {
		return errDuplicateName(g.Name())
	}
	r.gates[g.Name()] = g

	r.logger.Info("detector registered", "detector", g.Name())
	return nil
}

// Get returns the gate registered under name.
func (r *Registry) Get(name string) (*Gate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gates[name]
	if !ok {
		return nil, errUnknownDetector(name)
	}
	return g, nil
}

// Names returns the sorted names of all registered detectors.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.gates))
	for name := range r.gates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered gates.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.gates)
}

// Evaluate dispatches an evaluation to the named detector's gate.
func (r *Registry) Evaluate(ctx context.Context, name string, input any) (*detection.Record, error) {
	g, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return g.Evaluate(ctx, input)
}

// EnableShadow puts the named gate in shadow mode for the given window.
func (r *Registry) EnableShadow(name string, duration time.Duration) error {
	g, err := r.Get(name)
	if err != nil {
		return err
	}
	return g.EnableShadow(duration)
}

// DisableShadow returns the named gate to live mode.
func (r *Registry) DisableShadow(name string) error {
	g, err := r.Get(name)
	if err != nil {
		return err
	}
	g.DisableShadow()
	return nil
}

// SetMode sets the named gate's operating mode (live or disabled).
func (r *Registry) SetMode(name string, mode detection.Mode) error {
	g, err := r.Get(name)
	if err != nil {
		return err
	}
	return g.SetMode(mode)
}

// ListPending returns the named gate's pending approvals in request order.
func (r *Registry) ListPending(name string) ([]*detection.PendingApproval, error) {
	g, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return g.ListPending(), nil
}

// ResolveApproval resolves one pending approval on the named gate.
func (r *Registry) ResolveApproval(ctx context.Context, name, id string, approved bool, reviewer, notes string) (*detection.Record, error) {
	g, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return g.ResolveApproval(ctx, id, approved, reviewer, notes)
}

// Metrics returns the named gate's summary, replayed from the audit log.
func (r *Registry) Metrics(ctx context.Context, name string) (*audit.Summary, error) {
	g, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return g.Metrics(ctx)
}

// EnableShadowAll puts every registered gate in shadow mode for the given
// window. The operation is best-effort: one failing gate does not prevent
// the others from being updated, and all failures are joined in the returned
// error.
func (r *Registry) EnableShadowAll(duration time.Duration) error {
	r.mu.RLock()
	gates := make([]*Gate, 0, len(r.gates))
	for _, g := range r.gates {
		gates = append(gates, g)
	}
	r.mu.RUnlock()

	var errs []error
	for _, g := range gates {
		if err := g.EnableShadow(duration); err != nil {
			errs = append(errs, fmt.Errorf("detector %q: %w", g.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// AggregateMetrics replays the audit log for every registered gate. A gate
// whose metrics cannot be computed is reported as unavailable; the remaining
// gates are unaffected.
func (r *Registry) AggregateMetrics(ctx context.Context) map[string]DetectorMetrics {
	r.mu.RLock()
	gates := make([]*Gate, 0, len(r.gates))
	for _, g := range r.gates {
		gates = append(gates, g)
	}
	r.mu.RUnlock()

	results := make(map[string]DetectorMetrics, len(gates))
	for _, g := range gates {
		summary, err := g.Metrics(ctx)
		if err != nil {
			r.logger.Warn("metrics unavailable",
				"detector", g.Name(),
				"error", err,
			)
			results[g.Name()] = DetectorMetrics{Unavailable: true, Error: err.Error()}
			continue
		}
		results[g.Name()] = DetectorMetrics{Summary: summary}
	}
	return results
}
