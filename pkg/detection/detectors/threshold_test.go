package detectors

import (
	"context"
	"testing"

	"sentinel-hq/warden/pkg/detection"
)

func feedBaseline(t *testing.T, d *Threshold, value float64, n int) {
	t.Helper()

	ctx := context.Background()
	for i := 0; i < n; i++ {
		record, err := d.Compute(ctx, value)
		if err != nil {
			t.Fatalf("Compute failed while feeding baseline: %v", err)
		}
		if record != nil {
			t.Fatalf("Unexpected detection while feeding baseline: %+v", record)
		}
	}
}

// TestThreshold_NoDetectionBeforeMinSamples verifies the detector stays quiet
// until the baseline has enough samples.
func TestThreshold_NoDetectionBeforeMinSamples(t *testing.T) {
	d := NewThreshold("cpu", &ThresholdConfig{WindowSize: 50, MinSamples: 10, InfoZ: 2, WarnZ: 3, BlockZ: 4}, nil)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		if record, _ := d.Compute(ctx, float64(i%2)); record != nil {
			t.Fatalf("Expected no detection with %d samples, got %+v", i, record)
		}
	}
}

// TestThreshold_ZeroVarianceBaseline verifies a constant baseline never
// divides by zero.
func TestThreshold_ZeroVarianceBaseline(t *testing.T) {
	d := NewThreshold("cpu", nil, nil)
	feedBaseline(t, d, 10.0, 20)

	record, err := d.Compute(context.Background(), 1000.0)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if record != nil {
		t.Errorf("Expected no detection on a zero-variance baseline, got %+v", record)
	}
}

// TestThreshold_TierEscalation verifies the z-score to tier mapping on a
// known baseline.
func TestThreshold_TierEscalation(t *testing.T) {
	// Alternating 9/11 gives mean 10, stddev 1, so a sample's z-score is its
	// distance from 10.
	newDetector := func(t *testing.T) *Threshold {
		d := NewThreshold("cpu", &ThresholdConfig{WindowSize: 100, MinSamples: 10, InfoZ: 2, WarnZ: 3, BlockZ: 4}, nil)
		ctx := context.Background()
		for i := 0; i < 20; i++ {
			v := 9.0
			if i%2 == 0 {
				v = 11.0
			}
			if _, err := d.Compute(ctx, v); err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
		}
		return d
	}

	cases := []struct {
		name   string
		sample float64
		tier   detection.Tier
	}{
		{"within baseline", 11.0, ""},
		{"info", 12.5, detection.TierInfo},
		{"warn", 13.5, detection.TierWarn},
		{"block", 15.0, detection.TierBlock},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDetector(t)
			record, err := d.Compute(context.Background(), tc.sample)
			if err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
			if tc.tier == "" {
				if record != nil {
					t.Fatalf("Expected no detection, got tier %s", record.Tier)
				}
				return
			}
			if record == nil {
				t.Fatal("Expected a detection, got nil")
			}
			if record.Tier != tc.tier {
				t.Errorf("Expected tier %s, got %s (z=%v)", tc.tier, record.Tier, record.Details["zscore"])
			}
			if record.Confidence <= 0 || record.Confidence > 1 {
				t.Errorf("Confidence out of range: %v", record.Confidence)
			}
			for _, key := range []string{"value", "mean", "stddev", "zscore"} {
				if _, ok := record.Details[key]; !ok {
					t.Errorf("Expected detail %q", key)
				}
			}
		})
	}
}

// TestThreshold_WindowEviction verifies the baseline follows the samples as
// the window slides.
func TestThreshold_WindowEviction(t *testing.T) {
	d := NewThreshold("cpu", &ThresholdConfig{WindowSize: 10, MinSamples: 5, InfoZ: 2, WarnZ: 3, BlockZ: 4}, nil)
	ctx := context.Background()

	// Fill the window twice over with a new level; the old level is evicted.
	for i := 0; i < 20; i++ {
		d.Compute(ctx, 100.0+float64(i%2))
	}

	record, err := d.Compute(ctx, 100.5)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if record != nil {
		t.Errorf("Expected no detection at the new level, got %+v", record)
	}
}

// TestThreshold_NonNumericInput verifies the input type error.
func TestThreshold_NonNumericInput(t *testing.T) {
	d := NewThreshold("cpu", nil, nil)

	if _, err := d.Compute(context.Background(), "not a number"); err == nil {
		t.Error("Expected an error for non-numeric input")
	}

	// Integer types are accepted.
	for _, input := range []any{int(5), int32(5), int64(5), float32(5)} {
		if _, err := d.Compute(context.Background(), input); err != nil {
			t.Errorf("Compute(%T) failed: %v", input, err)
		}
	}
}

// TestThreshold_ExecuteDefaultAction verifies the descriptive no-op when no
// action is configured.
func TestThreshold_ExecuteDefaultAction(t *testing.T) {
	d := NewThreshold("cpu", nil, nil)
	record, err := detection.NewRecord("cpu", detection.TierInfo, 0.5, map[string]any{"value": 42.0})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}

	desc, err := d.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if desc == "" {
		t.Error("Expected a non-empty action description")
	}
}

// TestThreshold_CustomAction verifies the configured action is invoked.
func TestThreshold_CustomAction(t *testing.T) {
	called := false
	d := NewThreshold("cpu", nil, func(ctx context.Context, record *detection.Record) (string, error) {
		called = true
		return "custom action ran", nil
	})

	record, _ := detection.NewRecord("cpu", detection.TierInfo, 0.5, nil)
	desc, err := d.Execute(context.Background(), record)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !called {
		t.Error("Expected the custom action to be called")
	}
	if desc != "custom action ran" {
		t.Errorf("Expected the custom description, got %q", desc)
	}
}
