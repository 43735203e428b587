package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"sentinel-hq/warden/pkg/gate"
)

// Refresher periodically replays the audit log into the audit-derived gauges
// so the scrape surface stays restart-safe. It runs on a cron schedule
// (e.g. "*/5 * * * *" for every five minutes).
type Refresher struct {
	registry *gate.Registry
	metrics  *GateMetrics
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewRefresher creates a refresher for the given registry and metrics.
func NewRefresher(registry *gate.Registry, metrics *GateMetrics, schedule string) *Refresher {
	return &Refresher{
		registry: registry,
		metrics:  metrics,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "metrics.refresher"),
	}
}

// Start begins scheduled refreshing. An empty schedule disables the
// refresher; a single immediate refresh still runs so gauges are populated
// after startup.
func (r *Refresher) Start(ctx context.Context) error {
	r.Refresh(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.schedule == "" {
		r.logger.Info("refresh schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.schedule, err)
	}

	if _, err := r.cron.AddFunc(r.schedule, func() {
		r.Refresh(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule metrics refresh: %w", err)
	}

	r.cron.Start()
	r.running = true

	r.logger.Info("metrics refresher started", "schedule", r.schedule)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// Refresh replays the audit log once and updates the gauges. Gates whose
// metrics are unavailable are skipped; their gauges keep the last value.
func (r *Refresher) Refresh(ctx context.Context) {
	results := r.registry.AggregateMetrics(ctx)
	for name, result := range results {
		if result.Unavailable {
			r.logger.Warn("skipping unavailable detector metrics", "detector", name)
			continue
		}
		r.metrics.ApplySummary(name, result.Summary.ByTier, result.Summary.Executed)
	}

	for _, name := range r.registry.Names() {
		if g, err := r.registry.Get(name); err == nil {
			r.metrics.SetPending(name, g.PendingCount())
		}
	}
}

// Stop stops the scheduler and waits for a running refresh to complete.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false

	r.logger.Info("metrics refresher stopped")
}
