package storage

import (
	"context"
	"errors"
	"testing"

	"sentinel-hq/warden/pkg/audit"
	"sentinel-hq/warden/pkg/detection"
)

// TestMemoryLog_AppendAndScan tests the in-memory append/scan round-trip.
func TestMemoryLog_AppendAndScan(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		e := testEntry(id, "det", audit.EventEvaluation, detection.TierInfo)
		if err := log.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if e.Seq == 0 {
			t.Error("Expected a sequence number on append")
		}
	}

	entries, err := log.Scan(ctx, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Seq <= entries[i-1].Seq {
			t.Errorf("Sequence numbers out of order at index %d", i)
		}
	}
}

// TestMemoryLog_StoredEntriesAreImmutable verifies that mutating an appended
// entry does not change the stored copy.
func TestMemoryLog_StoredEntriesAreImmutable(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	e := testEntry("a", "det", audit.EventEvaluation, detection.TierInfo)
	if err := log.Append(ctx, e); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	e.Detector = "mutated"

	entries, err := log.Scan(ctx, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if entries[0].Detector != "det" {
		t.Errorf("Expected stored detector %q, got %q", "det", entries[0].Detector)
	}
}

// TestMemoryLog_FilterAndPagination verifies filter matching with limit and
// offset.
func TestMemoryLog_FilterAndPagination(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := log.Append(ctx, testEntry(id, "det", audit.EventEvaluation, detection.TierInfo)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := log.Append(ctx, testEntry("x", "other", audit.EventRejection, detection.TierBlock)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	page, err := log.Scan(ctx, &audit.Filter{Detector: "det", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "b" || page[1].ID != "c" {
		t.Errorf("Expected page [b c], got %d entries", len(page))
	}

	count, err := log.Count(ctx, &audit.Filter{Detector: "det"})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 4 {
		t.Errorf("Expected count 4, got %d", count)
	}
}

// TestMemoryLog_ClosedFails verifies every operation fails after Close.
func TestMemoryLog_ClosedFails(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := log.Append(ctx, testEntry("a", "det", audit.EventEvaluation, detection.TierInfo)); err == nil {
		t.Error("Expected append to fail after close")
	}
	if _, err := log.Scan(ctx, nil); err == nil {
		t.Error("Expected scan to fail after close")
	}
	if err := log.Ping(ctx); err == nil {
		t.Error("Expected ping to fail after close")
	}

	var serr *audit.StorageError
	if err := log.Ping(ctx); !errors.As(err, &serr) {
		t.Errorf("Expected a storage error, got %v", err)
	}
}
