// Package export writes scanned audit entries to external formats for
// compliance reviews. JSON preserves the full entry structure; CSV flattens
// entries for spreadsheet tooling.
package export
