// Package storage provides the audit log storage backends.
//
// Two implementations of audit.Log are available:
//
//   - SQLiteLog: the production backend. Append-only table with WAL mode and
//     synchronous=FULL so an acknowledged append survives a process crash.
//   - MemoryLog: an in-memory backend for tests.
//
// Both backends preserve append order: Scan and ScanStream always return
// entries ordered by their assigned sequence number.
package storage
