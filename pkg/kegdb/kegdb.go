// Package kegdb is the library entry point for embedding the storage
// engine directly, without the TCP front end: a thin facade over
// internal/engine that a Go program can import and call in-process.
package kegdb

import (
	"context"
	"time"

	"github.com/iamNilotpal/kegdb/internal/engine"
	"github.com/iamNilotpal/kegdb/pkg/logger"
	"github.com/iamNilotpal/kegdb/pkg/options"
)

// Instance is a single kegdb database, backed by one data directory.
type Instance struct {
	engine  *engine.Engine
	options *options.Options
}

// Open creates and initializes a new Instance. service names the logger's
// "service" field; opts override the default configuration.
func Open(service string, opts ...options.OptionFunc) (*Instance, error) {
	log, err := logger.New(service, logger.LevelInfo)
	if err != nil {
		return nil, err
	}

	resolved := options.Apply(opts...)

	eng, err := engine.New(&engine.Config{Options: &resolved, Logger: log})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &resolved}, nil
}

// Set stores a key-value pair in the database. If the key already exists,
// its value is replaced. The write is appended to the active segment log
// before Set returns.
func (i *Instance) Set(ctx context.Context, key string, value []byte) error {
	return i.engine.Put(key, value)
}

// SetX stores a key-value pair along with a requested expiration. The
// expiry argument is accepted for interface symmetry with the Memcached
// surface this library backs, but is never enforced: TTL semantics are an
// explicit non-goal, so the entry behaves exactly like one written by Set.
func (i *Instance) SetX(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	return i.engine.Put(key, value)
}

// Get retrieves the value associated with key. Returns engine.ErrKeyNotFound
// when no live entry exists.
func (i *Instance) Get(ctx context.Context, key string) ([]byte, error) {
	return i.engine.Get(key)
}

// Delete removes a key-value pair from the database. Deleting an absent key
// is not an error.
func (i *Instance) Delete(ctx context.Context, key string) error {
	_, err := i.engine.Delete(key)
	return err
}

// Merge runs an offline compaction pass over sealed segments, rewriting
// them into a denser set containing only live records. Not required for
// correctness and never invoked automatically; callers schedule it
// themselves if at all.
func (i *Instance) Merge(ctx context.Context) error {
	return i.engine.Merge()
}

// Close gracefully shuts the Instance down, flushing and closing every
// segment handle and releasing the data directory lock.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close()
}
