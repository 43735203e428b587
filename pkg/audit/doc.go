// Package audit defines the append-only audit log that records every
// governance decision made by the policy gates.
//
// The log is the durable source of truth for the engine: an entry is written
// for every evaluation of a non-disabled detector and for every approval or
// rejection of a pending approval. Entries are never mutated or deleted, are
// keyed implicitly by append order, and are self-describing so a partial log
// can still be parsed after a crash.
//
// Because the log is authoritative, per-detector metrics are reconstructed by
// replaying it (see Replay) rather than kept in a separate live counter store.
// A process restart therefore never loses counts.
//
// Storage backends implement the Log interface; see the storage subpackage
// for the SQLite and in-memory implementations.
package audit
