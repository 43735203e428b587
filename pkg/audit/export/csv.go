package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"sentinel-hq/warden/pkg/audit"
)

// csvHeader is the column layout of the CSV export.
var csvHeader = []string{
	"seq", "id", "timestamp", "event", "detector", "tier", "confidence",
	"shadow", "approved", "action_taken", "mode",
	"approval_id", "reviewer", "notes", "reviewed_at", "details",
}

// CSVExporter exports audit entries as CSV rows, one entry per row.
// The free-form details map is serialized as a JSON string column.
type CSVExporter struct{}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Export writes entries to the provided writer in CSV format.
func (e *CSVExporter) Export(ctx context.Context, entries []*audit.Entry, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("csv export failed: %w", err)
	}

	for _, entry := range entries {
		row, err := entryRow(entry)
		if err != nil {
			return fmt.Errorf("csv export failed for entry %s: %w", entry.ID, err)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv export failed: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv export write failed: %w", err)
	}
	return nil
}

func entryRow(entry *audit.Entry) ([]string, error) {
	actionTaken := ""
	if entry.ActionTaken != nil {
		actionTaken = *entry.ActionTaken
	}

	reviewedAt := ""
	if entry.ReviewedAt != nil {
		reviewedAt = entry.ReviewedAt.Format(time.RFC3339Nano)
	}

	details := ""
	if entry.Details != nil {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return nil, err
		}
		details = string(data)
	}

	return []string{
		strconv.FormatInt(entry.Seq, 10),
		entry.ID,
		entry.Timestamp.Format(time.RFC3339Nano),
		string(entry.Event),
		entry.Detector,
		string(entry.Tier),
		strconv.FormatFloat(entry.Confidence, 'f', -1, 64),
		strconv.FormatBool(entry.Shadow),
		strconv.FormatBool(entry.Approved),
		actionTaken,
		string(entry.Mode),
		entry.ApprovalID,
		entry.Reviewer,
		entry.Notes,
		reviewedAt,
		details,
	}, nil
}
