// Package options provides data structures and functions for configuring
// kegdb. It defines the parameters that control the engine's storage
// behavior, durability, and the TCP front end's listen address, as
// functional options plus a JSONC config file loader.
package options

import (
	"strings"
	"time"
)

// segmentOptions controls how data segments are sized. Segment files live
// directly under Options.DataDir, named "<id>.data"/"<id>.hint" — there is
// no configurable subdirectory or filename prefix, since the on-disk layout
// is part of the storage format rather than an operator-tunable choice.
type segmentOptions struct {
	// Size is the byte threshold at which the active segment is sealed and
	// a new one opened. Checked against the active data file's size after
	// each append, so it is a soft bound: a single record is never split
	// across segments.
	//
	//  - Default: 100MiB
	//  - Minimum: 64 bytes
	//  - Maximum: 4GiB
	Size uint64 `json:"fileSizeLimit"`
}

// Options is the full configuration surface for an Engine and, optionally,
// the TCP server fronting it.
type Options struct {
	// DataDir is the directory holding segment files and the engine's
	// directory lock file.
	//
	// Default: "/var/lib/kegdb"
	DataDir string `json:"dataDir"`

	// Addr is the TCP listen address for the Memcached-ASCII server.
	// Unused when the engine is embedded as a library via pkg/kegdb without
	// a front end.
	//
	// Default: ":12340"
	Addr string `json:"addr"`

	// SyncOnWrite forces an fsync after every append when true. When false
	// (the default), durability relies on the OS page cache flush timing,
	// trading some crash-window exposure for write throughput.
	SyncOnWrite bool `json:"syncOnWrite"`

	// CompactInterval is informational only: cmd/kegdb-server logs it at
	// startup, but no background goroutine invokes Merge automatically.
	// Automatic compaction scheduling is not implemented.
	//
	// Default: 5h
	CompactInterval time.Duration `json:"compactInterval"`

	// SegmentOptions configures segment file sizing.
	SegmentOptions *segmentOptions `json:"segmentOptions"`
}

// OptionFunc mutates an Options value.
type OptionFunc func(*Options)

// WithDefaultOptions resets every field to its default value, discarding
// prior option applications. Intended as the first OptionFunc in a list.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		defaults := NewDefaultOptions()
		*o = defaults
	}
}

// WithDataDir sets the base directory for segment and lock files.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithAddr sets the TCP listen address for the server front end.
func WithAddr(addr string) OptionFunc {
	return func(o *Options) {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			o.Addr = addr
		}
	}
}

// WithSyncOnWrite toggles the fsync-per-append durability policy.
func WithSyncOnWrite(sync bool) OptionFunc {
	return func(o *Options) {
		o.SyncOnWrite = sync
	}
}

// WithCompactInterval sets the informational compaction interval logged at
// startup.
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > 0 {
			o.CompactInterval = interval
		}
	}
}

// WithSegmentSize sets the byte threshold for segment rollover. Values
// outside [MinSegmentSize, MaxSegmentSize] are ignored, leaving the current
// value (default or previously set) in place.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSegmentSize && size <= MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}

// Apply runs defaults followed by every OptionFunc in order and returns the
// resulting Options.
func Apply(opts ...OptionFunc) Options {
	o := NewDefaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
