package detection

import (
	"testing"
)

// TestParseTier covers valid and unknown tier strings.
func TestParseTier(t *testing.T) {
	for _, s := range []string{"info", "warn", "block"} {
		tier, err := ParseTier(s)
		if err != nil {
			t.Errorf("ParseTier(%q) failed: %v", s, err)
		}
		if string(tier) != s {
			t.Errorf("ParseTier(%q) = %q", s, tier)
		}
	}

	if _, err := ParseTier("critical"); err == nil {
		t.Error("Expected an error for an unknown tier")
	}
	if _, err := ParseTier(""); err == nil {
		t.Error("Expected an error for an empty tier")
	}
}

// TestTier_RequiresApproval verifies the tier-to-governance mapping.
func TestTier_RequiresApproval(t *testing.T) {
	if TierInfo.RequiresApproval() {
		t.Error("Info tier must not require approval")
	}
	if !TierWarn.RequiresApproval() {
		t.Error("Warn tier must require approval")
	}
	if !TierBlock.RequiresApproval() {
		t.Error("Block tier must require approval")
	}
}

// TestParseMode covers valid and unknown mode strings.
func TestParseMode(t *testing.T) {
	for _, s := range []string{"live", "shadow", "disabled"} {
		mode, err := ParseMode(s)
		if err != nil {
			t.Errorf("ParseMode(%q) failed: %v", s, err)
		}
		if string(mode) != s {
			t.Errorf("ParseMode(%q) = %q", s, mode)
		}
	}

	if _, err := ParseMode("paused"); err == nil {
		t.Error("Expected an error for an unknown mode")
	}
}

// TestNewRecord_Validation verifies the record constructor's input checks.
func TestNewRecord_Validation(t *testing.T) {
	record, err := NewRecord("cpu-anomaly", TierWarn, 0.5, map[string]any{"z": 3.1})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if record.Detector != "cpu-anomaly" || record.Tier != TierWarn {
		t.Error("Record fields not populated")
	}
	if record.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
	if record.Executed() {
		t.Error("A new record must not be marked executed")
	}

	cases := []struct {
		name       string
		detector   string
		tier       Tier
		confidence float64
	}{
		{"empty detector", "", TierInfo, 0.5},
		{"invalid tier", "d", Tier("critical"), 0.5},
		{"confidence below range", "d", TierInfo, -0.1},
		{"confidence above range", "d", TierInfo, 1.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRecord(tc.detector, tc.tier, tc.confidence, nil); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}

	// Boundary confidences are valid.
	for _, c := range []float64{0.0, 1.0} {
		if _, err := NewRecord("d", TierInfo, c, nil); err != nil {
			t.Errorf("NewRecord with confidence %v failed: %v", c, err)
		}
	}
}

// TestRecord_Clone verifies the clone is independent of the original.
func TestRecord_Clone(t *testing.T) {
	action := "handled"
	record, err := NewRecord("d", TierInfo, 0.5, map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	record.ActionTaken = &action

	clone := record.Clone()
	clone.Details["k"] = "mutated"
	*clone.ActionTaken = "mutated"

	if record.Details["k"] != "v" {
		t.Error("Clone shares the details map with the original")
	}
	if *record.ActionTaken != "handled" {
		t.Error("Clone shares the action pointer with the original")
	}
}
