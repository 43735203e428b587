package storage

import (
	"context"
	"sync"

	"sentinel-hq/warden/pkg/audit"
)

// MemoryLog implements the audit.Log interface using an in-memory slice.
// This implementation is intended for testing only; it offers no durability.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []*audit.Entry
	nextSeq int64
	closed  bool
}

// NewMemoryLog creates a new in-memory audit log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{nextSeq: 1}
}

// Append stores an entry and assigns its sequence number.
func (l *MemoryLog) Append(ctx context.Context, entry *audit.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return audit.NewStorageError("memory", "append", errClosed)
	}

	// Copy to keep stored entries immutable from the caller's perspective.
	cp := *entry
	cp.Seq = l.nextSeq
	l.nextSeq++
	l.entries = append(l.entries, &cp)
	entry.Seq = cp.Seq

	return nil
}

// Scan returns entries matching the filter, ordered by append order.
func (l *MemoryLog) Scan(ctx context.Context, filter *audit.Filter) ([]*audit.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, audit.NewStorageError("memory", "scan", errClosed)
	}

	var results []*audit.Entry
	matched := 0
	for _, entry := range l.entries {
		if !matches(entry, filter) {
			continue
		}
		matched++
		if filter != nil && matched <= filter.Offset {
			continue
		}
		cp := *entry
		results = append(results, &cp)
		if filter != nil && filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}

	return results, nil
}

// ScanStream streams matching entries in append order.
func (l *MemoryLog) ScanStream(ctx context.Context, filter *audit.Filter) (<-chan *audit.Entry, <-chan error, error) {
	entries, err := l.Scan(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	entriesCh := make(chan *audit.Entry, len(entries))
	errCh := make(chan error, 1)

	go func() {
		defer close(entriesCh)
		defer close(errCh)

		for _, entry := range entries {
			select {
			case entriesCh <- entry:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return entriesCh, errCh, nil
}

// Count returns the number of entries matching the filter.
func (l *MemoryLog) Count(ctx context.Context, filter *audit.Filter) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, audit.NewStorageError("memory", "count", errClosed)
	}

	var count int64
	for _, entry := range l.entries {
		if matches(entry, filter) {
			count++
		}
	}
	return count, nil
}

// Ping reports whether the log accepts appends.
func (l *MemoryLog) Ping(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return audit.NewStorageError("memory", "ping", errClosed)
	}
	return nil
}

// Close marks the log closed; subsequent operations fail.
func (l *MemoryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	return nil
}

// matches reports whether an entry passes the filter, ignoring pagination.
func matches(entry *audit.Entry, filter *audit.Filter) bool {
	if filter == nil {
		return true
	}
	if filter.Detector != "" && entry.Detector != filter.Detector {
		return false
	}
	if filter.Event != "" && entry.Event != filter.Event {
		return false
	}
	if filter.Tier != "" && entry.Tier != filter.Tier {
		return false
	}
	if filter.Since != nil && entry.Timestamp.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && entry.Timestamp.After(*filter.Until) {
		return false
	}
	if filter.ExecutedOnly && entry.ActionTaken == nil {
		return false
	}
	return true
}
