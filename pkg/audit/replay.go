package audit

import (
	"context"

	"sentinel-hq/warden/pkg/detection"
)

// Summary holds per-detector counts reconstructed from the audit log.
// Because it is derived from a fresh scan, it is correct even after a process
// restart in which in-memory counters were lost.
type Summary struct {
	// Detector is the detector the summary belongs to; empty for a scan
	// across all detectors.
	Detector string `json:"detector,omitempty"`

	// Total is the number of evaluation entries.
	Total int64 `json:"total"`

	// ByTier counts evaluation entries per tier.
	ByTier map[detection.Tier]int64 `json:"by_tier"`

	// Executed counts entries of any event kind with a non-nil action.
	Executed int64 `json:"executed"`

	// Shadowed counts evaluation entries made while the shadow window was active.
	Shadowed int64 `json:"shadowed"`

	// Approvals and Rejections count resolution entries.
	Approvals  int64 `json:"approvals"`
	Rejections int64 `json:"rejections"`

	// ShadowActive is the gate's live shadow predicate at summary time. It is
	// stamped by the gate, not derived from the log.
	ShadowActive bool `json:"shadow_active"`
}

// NewSummary returns an empty summary for the given detector.
func NewSummary(detector string) *Summary {
	return &Summary{
		Detector: detector,
		ByTier:   make(map[detection.Tier]int64),
	}
}

// Observe folds one entry into the summary.
func (s *Summary) Observe(entry *Entry) {
	switch entry.Event {
	case EventEvaluation:
		s.Total++
		s.ByTier[entry.Tier]++
		if entry.Shadow {
			s.Shadowed++
		}
	case EventApproval:
		s.Approvals++
	case EventRejection:
		s.Rejections++
	}
	if entry.ActionTaken != nil {
		s.Executed++
	}
}

// Replay scans the log and reconstructs the summary for one detector.
// An empty detector name replays the whole log.
func Replay(ctx context.Context, log Log, detector string) (*Summary, error) {
	entries, errCh, err := log.ScanStream(ctx, &Filter{Detector: detector})
	if err != nil {
		return nil, err
	}

	summary := NewSummary(detector)
	for entry := range entries {
		summary.Observe(entry)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	return summary, nil
}
