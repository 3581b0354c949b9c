// Package index is the in-memory key directory: a hash map from key to
// RecordPointer that lets Get resolve a key to an exact disk location
// without scanning any segment file. It is rebuilt from hint (or, failing
// that, data) files at startup and mutated in lockstep with every Put and
// Delete the engine performs.
package index

import (
	stdErrors "errors"

	"github.com/iamNilotpal/kegdb/pkg/errors"
)

var ErrIndexClosed = stdErrors.New("operation failed: cannot access closed index")

// New creates an empty Index ready for concurrent use.
func New(config *Config) (*Index, error) {
	if config == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "index configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	return &Index{
		log:     config.Logger,
		entries: make(map[string]RecordPointer, 2048),
	}, nil
}

// Get returns the directory entry for key, if present.
func (idx *Index) Get(key string) (RecordPointer, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rp, ok := idx.entries[key]
	return rp, ok
}

// Set records (or overwrites) the directory entry for key. Callers apply
// this both on the live write path and during startup replay.
func (idx *Index) Set(key string, rp RecordPointer) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[key] = rp
}

// Delete removes key's directory entry, if any. Idempotent: deleting an
// absent key is not an error.
func (idx *Index) Delete(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, key)
}

// Len returns the number of live keys currently tracked.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Snapshot returns a copy of every live directory entry, used by merge to
// decide what to rewrite without holding the index lock for the duration of
// the rewrite.
func (idx *Index) Snapshot() []RecordPointer {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]RecordPointer, 0, len(idx.entries))
	for _, rp := range idx.entries {
		out = append(out, rp)
	}
	return out
}

// Close releases the index's memory. The Index is unusable afterward.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return ErrIndexClosed
	}

	idx.log.Infow("closing index")

	idx.mu.Lock()
	defer idx.mu.Unlock()

	clear(idx.entries)
	idx.entries = nil

	return nil
}
