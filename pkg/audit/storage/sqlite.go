package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sentinel-hq/warden/pkg/audit"
	"sentinel-hq/warden/pkg/detection"
)

// SQLiteConfig contains configuration for the SQLite audit log backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// SynchronousFull forces an fsync on every commit. An acknowledged append
	// must survive a process crash, so this defaults to true; disable only
	// for tests.
	SynchronousFull bool
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:            "data/audit.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		WALMode:         true,
		BusyTimeout:     5 * time.Second,
		SynchronousFull: true,
	}
}

// SQLiteLog implements the audit.Log interface using SQLite.
type SQLiteLog struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteLog creates a new SQLite audit log backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteLog(config *SQLiteConfig) (*SQLiteLog, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	l := &SQLiteLog{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit log initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"synchronous_full", config.SynchronousFull,
	)

	return l, nil
}

// initialize sets up the database schema and durability pragmas.
func (l *SQLiteLog) initialize() error {
	if l.config.WALMode {
		if _, err := l.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if l.config.SynchronousFull {
		if _, err := l.db.Exec("PRAGMA synchronous=FULL;"); err != nil {
			return audit.NewStorageError("sqlite", "set_synchronous", err)
		}
	}

	busyTimeoutMs := l.config.BusyTimeout.Milliseconds()
	if _, err := l.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := l.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := l.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := l.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Append durably stores an entry and assigns its sequence number.
func (l *SQLiteLog) Append(ctx context.Context, entry *audit.Entry) error {
	var details any
	if entry.Details != nil {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return audit.NewStorageError("sqlite", "append", fmt.Errorf("marshal details: %w", err))
		}
		details = string(data)
	}

	var actionTaken any
	if entry.ActionTaken != nil {
		actionTaken = *entry.ActionTaken
	}

	var reviewedAt any
	if entry.ReviewedAt != nil {
		reviewedAt = *entry.ReviewedAt
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_entries (
			id, timestamp, event, detector, tier, confidence, details,
			shadow, approved, action_taken, mode,
			approval_id, reviewer, notes, reviewed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp, string(entry.Event), entry.Detector,
		string(entry.Tier), entry.Confidence, details,
		entry.Shadow, entry.Approved, actionTaken, string(entry.Mode),
		entry.ApprovalID, entry.Reviewer, entry.Notes, reviewedAt,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	entry.Seq = seq

	return nil
}

// Scan returns entries matching the filter, ordered by append order.
func (l *SQLiteLog) Scan(ctx context.Context, filter *audit.Filter) ([]*audit.Entry, error) {
	query, args := buildScanQuery(filter)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "scan", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "scan", err)
	}

	return entries, nil
}

// ScanStream streams matching entries in append order.
func (l *SQLiteLog) ScanStream(ctx context.Context, filter *audit.Filter) (<-chan *audit.Entry, <-chan error, error) {
	query, args := buildScanQuery(filter)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, audit.NewStorageError("sqlite", "scan_stream", err)
	}

	entriesCh := make(chan *audit.Entry, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(entriesCh)
		defer close(errCh)
		defer rows.Close()

		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				errCh <- audit.NewStorageError("sqlite", "scan_stream", err)
				return
			}

			select {
			case entriesCh <- entry:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- audit.NewStorageError("sqlite", "scan_stream", err)
		}
	}()

	return entriesCh, errCh, nil
}

// Count returns the number of entries matching the filter.
func (l *SQLiteLog) Count(ctx context.Context, filter *audit.Filter) (int64, error) {
	where, args := buildWhereClause(filter)

	query := "SELECT COUNT(*) FROM audit_entries" + where
	var count int64
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// Ping reports whether the log can currently accept appends.
func (l *SQLiteLog) Ping(ctx context.Context) error {
	if err := l.db.PingContext(ctx); err != nil {
		return audit.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *SQLiteLog) Close() error {
	if err := l.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	return nil
}

// buildScanQuery builds the SELECT statement for Scan/ScanStream.
func buildScanQuery(filter *audit.Filter) (string, []any) {
	where, args := buildWhereClause(filter)

	query := `
		SELECT seq, id, timestamp, event, detector, tier, confidence, details,
		       shadow, approved, action_taken, mode,
		       approval_id, reviewer, notes, reviewed_at
		FROM audit_entries` + where + " ORDER BY seq ASC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	} else if filter != nil && filter.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET; -1 means unlimited.
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	return query, args
}

// buildWhereClause builds the WHERE clause shared by scan and count queries.
func buildWhereClause(filter *audit.Filter) (string, []any) {
	if filter == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if filter.Detector != "" {
		conditions = append(conditions, "detector = ?")
		args = append(args, filter.Detector)
	}
	if filter.Event != "" {
		conditions = append(conditions, "event = ?")
		args = append(args, string(filter.Event))
	}
	if filter.Tier != "" {
		conditions = append(conditions, "tier = ?")
		args = append(args, string(filter.Tier))
	}
	if filter.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *filter.Until)
	}
	if filter.ExecutedOnly {
		conditions = append(conditions, "action_taken IS NOT NULL")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// scanEntry reads one row into an audit entry.
func scanEntry(rows *sql.Rows) (*audit.Entry, error) {
	var (
		entry       audit.Entry
		event       string
		tier        string
		mode        string
		details     sql.NullString
		actionTaken sql.NullString
		reviewedAt  sql.NullTime
	)

	err := rows.Scan(
		&entry.Seq, &entry.ID, &entry.Timestamp, &event, &entry.Detector,
		&tier, &entry.Confidence, &details,
		&entry.Shadow, &entry.Approved, &actionTaken, &mode,
		&entry.ApprovalID, &entry.Reviewer, &entry.Notes, &reviewedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Event = audit.Event(event)
	entry.Tier = detection.Tier(tier)
	entry.Mode = detection.Mode(mode)

	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
			return nil, fmt.Errorf("unmarshal details: %w", err)
		}
	}
	if actionTaken.Valid {
		action := actionTaken.String
		entry.ActionTaken = &action
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		entry.ReviewedAt = &t
	}

	return &entry, nil
}
