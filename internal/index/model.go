package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// RecordPointer is the in-memory directory entry for one live key: just
// enough to seek straight to its value on disk without scanning anything.
// Every byte here is replicated once per live key, so the struct is kept as
// small as the segment id space allows.
type RecordPointer struct {
	// FileID identifies the segment (data file) holding this record.
	FileID uint32

	// ValuePos is the byte offset within that segment's data file where the
	// value begins.
	ValuePos uint64

	// ValueSize is the length of the value in bytes. Zero marks a
	// tombstone, though live directory entries are never tombstones —
	// Delete removes the key from the map rather than storing one.
	ValueSize uint32

	// Timestamp is the Unix-seconds write time recorded with the entry.
	// Merge copies it unchanged into the rewritten data and hint records.
	Timestamp uint32

	// Key is kept alongside the map key it duplicates, so an iteration over
	// the directory (merge, diagnostics) doesn't need a second pass to
	// recover each key's bytes.
	Key string
}

// Index is the in-memory key directory (the Bitcask "keydir"): a hash map
// from key to RecordPointer, guarded by its own RWMutex so it stays safe to
// use even outside of the engine's own locking, and closed independently of
// any single segment's lifetime.
type Index struct {
	log     *zap.SugaredLogger
	entries map[string]RecordPointer
	mu      sync.RWMutex
	closed  atomic.Bool
}

// Config configures a new Index.
type Config struct {
	Logger *zap.SugaredLogger
}
