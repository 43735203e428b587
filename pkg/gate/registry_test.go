package gate

import (
	"context"
	"testing"
	"time"

	"sentinel-hq/warden/pkg/audit/storage"
	"sentinel-hq/warden/pkg/detection"
)

func newTestRegistry(t *testing.T, names ...string) (*Registry, *storage.MemoryLog) {
	t.Helper()

	log := storage.NewMemoryLog()
	registry := NewRegistry()
	for _, name := range names {
		g := New(newTierDetector(name, detection.TierInfo), log, nil)
		if err := registry.Register(g); err != nil {
			t.Fatalf("Register %q failed: %v", name, err)
		}
	}
	return registry, log
}

// TestRegistry_DuplicateName verifies that a second registration under the
// same name is rejected.
func TestRegistry_DuplicateName(t *testing.T) {
	registry, log := newTestRegistry(t, "cpu-anomaly")

	dup := New(newTierDetector("cpu-anomaly", detection.TierWarn), log, nil)
	err := registry.Register(dup)
	if !IsKind(err, KindDuplicateName) {
		t.Errorf("Expected duplicate-name error, got %v", err)
	}
	if registry.Count() != 1 {
		t.Errorf("Expected 1 registered gate, got %d", registry.Count())
	}
}

// TestRegistry_UnknownDetector verifies dispatch to an unregistered name.
func TestRegistry_UnknownDetector(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if _, err := registry.Evaluate(context.Background(), "ghost", 1.0); !IsKind(err, KindUnknownDetector) {
		t.Errorf("Expected unknown-detector error from Evaluate, got %v", err)
	}
	if err := registry.EnableShadow("ghost", time.Hour); !IsKind(err, KindUnknownDetector) {
		t.Errorf("Expected unknown-detector error from EnableShadow, got %v", err)
	}
	if _, err := registry.ResolveApproval(context.Background(), "ghost", "id", true, "", ""); !IsKind(err, KindUnknownDetector) {
		t.Errorf("Expected unknown-detector error from ResolveApproval, got %v", err)
	}
}

// TestRegistry_Names verifies sorted name listing.
func TestRegistry_Names(t *testing.T) {
	registry, _ := newTestRegistry(t, "zeta", "alpha", "mid")

	names := registry.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d names, got %d", len(want), len(names))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Expected name %q at index %d, got %q", name, i, names[i])
		}
	}
}

// TestRegistry_EnableShadowAll verifies the fleet-wide shadow switch.
func TestRegistry_EnableShadowAll(t *testing.T) {
	registry, _ := newTestRegistry(t, "a", "b", "c")

	if err := registry.EnableShadowAll(time.Hour); err != nil {
		t.Fatalf("EnableShadowAll failed: %v", err)
	}
	for _, name := range registry.Names() {
		g, err := registry.Get(name)
		if err != nil {
			t.Fatalf("Get %q failed: %v", name, err)
		}
		if !g.ShadowActive() {
			t.Errorf("Expected %q to be shadowed", name)
		}
	}
}

// TestRegistry_EnableShadowAllBestEffort verifies that an invalid duration
// fails every gate individually while leaving the registry usable.
func TestRegistry_EnableShadowAllBestEffort(t *testing.T) {
	registry, _ := newTestRegistry(t, "a", "b")

	err := registry.EnableShadowAll(0)
	if err == nil {
		t.Fatal("Expected an error for a zero duration")
	}

	// The gates were not shadowed and still work.
	for _, name := range registry.Names() {
		g, _ := registry.Get(name)
		if g.ShadowActive() {
			t.Errorf("Expected %q not shadowed", name)
		}
	}
}

// TestRegistry_AggregateMetricsDegrades verifies that one gate with a dead log
// is reported unavailable without hiding the healthy gates.
func TestRegistry_AggregateMetricsDegrades(t *testing.T) {
	registry, _ := newTestRegistry(t, "healthy")

	broken := New(newTierDetector("broken", detection.TierInfo), failingLog{}, nil)
	if err := registry.Register(broken); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ctx := context.Background()
	if _, err := registry.Evaluate(ctx, "healthy", 1.0); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	results := registry.AggregateMetrics(ctx)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	healthy := results["healthy"]
	if healthy.Unavailable {
		t.Errorf("Expected healthy detector to be available: %s", healthy.Error)
	}
	if healthy.Summary == nil || healthy.Summary.Total != 1 {
		t.Errorf("Expected 1 evaluation for healthy detector, got %+v", healthy.Summary)
	}

	unavailable := results["broken"]
	if !unavailable.Unavailable {
		t.Error("Expected broken detector to be reported unavailable")
	}
	if unavailable.Error == "" {
		t.Error("Expected an error message for the unavailable detector")
	}
}
