package audit

import (
	"context"
	"testing"
	"time"

	"sentinel-hq/warden/pkg/detection"
)

// stubLog serves a fixed entry slice, filtered by detector name.
type stubLog struct {
	entries []*Entry
}

func newStubLog(entries ...*Entry) *stubLog {
	return &stubLog{entries: entries}
}

func (l *stubLog) filtered(filter *Filter) []*Entry {
	var out []*Entry
	for _, e := range l.entries {
		if filter != nil && filter.Detector != "" && e.Detector != filter.Detector {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (l *stubLog) Append(ctx context.Context, entry *Entry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *stubLog) Scan(ctx context.Context, filter *Filter) ([]*Entry, error) {
	return l.filtered(filter), nil
}

func (l *stubLog) ScanStream(ctx context.Context, filter *Filter) (<-chan *Entry, <-chan error, error) {
	matched := l.filtered(filter)
	entriesCh := make(chan *Entry, len(matched))
	errCh := make(chan error, 1)
	for _, e := range matched {
		entriesCh <- e
	}
	close(entriesCh)
	close(errCh)
	return entriesCh, errCh, nil
}

func (l *stubLog) Count(ctx context.Context, filter *Filter) (int64, error) {
	return int64(len(l.filtered(filter))), nil
}

func (l *stubLog) Ping(ctx context.Context) error { return nil }
func (l *stubLog) Close() error                   { return nil }

func entryFor(detector string, event Event, tier detection.Tier, shadow bool, action string) *Entry {
	e := &Entry{
		ID:        detector + "-" + string(event) + "-" + string(tier),
		Timestamp: time.Now(),
		Event:     event,
		Detector:  detector,
		Tier:      tier,
		Shadow:    shadow,
		Mode:      detection.ModeLive,
	}
	if action != "" {
		e.ActionTaken = &action
	}
	return e
}

// TestSummary_Observe verifies the fold of entries into summary counts.
func TestSummary_Observe(t *testing.T) {
	s := NewSummary("cpu-anomaly")

	s.Observe(entryFor("cpu-anomaly", EventEvaluation, detection.TierInfo, false, "handled"))
	s.Observe(entryFor("cpu-anomaly", EventEvaluation, detection.TierBlock, false, ""))
	s.Observe(entryFor("cpu-anomaly", EventEvaluation, detection.TierBlock, true, ""))
	s.Observe(entryFor("cpu-anomaly", EventApproval, detection.TierBlock, false, "handled"))
	s.Observe(entryFor("cpu-anomaly", EventRejection, detection.TierBlock, false, ""))

	if s.Total != 3 {
		t.Errorf("Expected 3 evaluations, got %d", s.Total)
	}
	if s.ByTier[detection.TierInfo] != 1 {
		t.Errorf("Expected 1 info evaluation, got %d", s.ByTier[detection.TierInfo])
	}
	if s.ByTier[detection.TierBlock] != 2 {
		t.Errorf("Expected 2 block evaluations, got %d", s.ByTier[detection.TierBlock])
	}
	if s.Shadowed != 1 {
		t.Errorf("Expected 1 shadowed evaluation, got %d", s.Shadowed)
	}
	if s.Executed != 2 {
		t.Errorf("Expected 2 executions, got %d", s.Executed)
	}
	if s.Approvals != 1 {
		t.Errorf("Expected 1 approval, got %d", s.Approvals)
	}
	if s.Rejections != 1 {
		t.Errorf("Expected 1 rejection, got %d", s.Rejections)
	}
}

// TestReplay verifies reconstruction from a streaming scan, filtered to one
// detector.
func TestReplay(t *testing.T) {
	log := newStubLog(
		entryFor("cpu-anomaly", EventEvaluation, detection.TierInfo, false, "handled"),
		entryFor("cpu-anomaly", EventEvaluation, detection.TierWarn, false, ""),
		entryFor("other", EventEvaluation, detection.TierBlock, false, ""),
		entryFor("cpu-anomaly", EventRejection, detection.TierWarn, false, ""),
	)

	summary, err := Replay(context.Background(), log, "cpu-anomaly")
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if summary.Detector != "cpu-anomaly" {
		t.Errorf("Expected detector cpu-anomaly, got %q", summary.Detector)
	}
	if summary.Total != 2 {
		t.Errorf("Expected 2 evaluations, got %d", summary.Total)
	}
	if summary.Rejections != 1 {
		t.Errorf("Expected 1 rejection, got %d", summary.Rejections)
	}
	if summary.Executed != 1 {
		t.Errorf("Expected 1 execution, got %d", summary.Executed)
	}
}
