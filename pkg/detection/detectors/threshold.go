package detectors

import (
	"context"
	"fmt"
	"math"
	"sync"

	"sentinel-hq/warden/pkg/detection"
)

// ThresholdConfig contains configuration for the threshold detector.
type ThresholdConfig struct {
	// WindowSize is the number of recent samples kept as the baseline.
	// Default: 100
	WindowSize int

	// MinSamples is the number of samples required before the detector
	// starts scoring; earlier samples only feed the baseline.
	// Default: 10
	MinSamples int

	// WarnZ and BlockZ are the absolute z-score thresholds for the warn and
	// block tiers. Scores below InfoZ are not detections at all.
	// Defaults: InfoZ 2.0, WarnZ 3.0, BlockZ 4.0
	InfoZ  float64
	WarnZ  float64
	BlockZ float64
}

// DefaultThresholdConfig returns the default threshold configuration.
func DefaultThresholdConfig() *ThresholdConfig {
	return &ThresholdConfig{
		WindowSize: 100,
		MinSamples: 10,
		InfoZ:      2.0,
		WarnZ:      3.0,
		BlockZ:     4.0,
	}
}

// ActionFunc performs the real-world action for a detection and returns a
// short description of what was done.
type ActionFunc func(ctx context.Context, record *detection.Record) (string, error)

// Threshold is a mean/stddev anomaly detector over a sliding window of
// float64 samples. A sample whose z-score against the window baseline
// exceeds the configured thresholds produces a detection record; the tier
// escalates with the score.
type Threshold struct {
	name   string
	config *ThresholdConfig
	action ActionFunc

	mu      sync.Mutex
	samples []float64
}

// NewThreshold creates a threshold detector. The action is invoked by the
// policy gate when a detection is authorized to execute; a nil action records
// a descriptive no-op.
func NewThreshold(name string, config *ThresholdConfig, action ActionFunc) *Threshold {
	if config == nil {
		config = DefaultThresholdConfig()
	}
	return &Threshold{
		name:   name,
		config: config,
		action: action,
	}
}

// Name returns the detector name.
func (t *Threshold) Name() string {
	return t.name
}

// Compute scores one numeric sample against the sliding baseline. It accepts
// float64, float32 and the signed integer types. A sample within thresholds
// returns (nil, nil): nothing detected.
func (t *Threshold) Compute(ctx context.Context, input any) (*detection.Record, error) {
	value, err := toFloat(input)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	mean, stddev, n := t.baselineLocked()
	t.pushLocked(value)
	t.mu.Unlock()

	if n < t.config.MinSamples || stddev == 0 {
		return nil, nil
	}

	z := math.Abs(value-mean) / stddev
	var tier detection.Tier
	switch {
	case z >= t.config.BlockZ:
		tier = detection.TierBlock
	case z >= t.config.WarnZ:
		tier = detection.TierWarn
	case z >= t.config.InfoZ:
		tier = detection.TierInfo
	default:
		return nil, nil
	}

	confidence := math.Min(z/(t.config.BlockZ*2), 1.0)
	return detection.NewRecord(t.name, tier, confidence, map[string]any{
		"value":  value,
		"mean":   mean,
		"stddev": stddev,
		"zscore": z,
	})
}

// Execute performs the configured action for an authorized detection.
func (t *Threshold) Execute(ctx context.Context, record *detection.Record) (string, error) {
	if t.action != nil {
		return t.action(ctx, record)
	}
	return fmt.Sprintf("flagged %s-tier anomaly (value=%v)", record.Tier, record.Details["value"]), nil
}

// baselineLocked computes mean and stddev of the current window.
func (t *Threshold) baselineLocked() (mean, stddev float64, n int) {
	n = len(t.samples)
	if n == 0 {
		return 0, 0, 0
	}

	var sum float64
	for _, v := range t.samples {
		sum += v
	}
	mean = sum / float64(n)

	var sq float64
	for _, v := range t.samples {
		d := v - mean
		sq += d * d
	}
	stddev = math.Sqrt(sq / float64(n))

	return mean, stddev, n
}

// pushLocked appends a sample, evicting the oldest past the window size.
func (t *Threshold) pushLocked(value float64) {
	t.samples = append(t.samples, value)
	if len(t.samples) > t.config.WindowSize {
		t.samples = t.samples[len(t.samples)-t.config.WindowSize:]
	}
}

func toFloat(input any) (float64, error) {
	switch v := input.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("threshold detector expects a numeric sample, got %T", input)
	}
}
