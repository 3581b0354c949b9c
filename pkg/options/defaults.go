package options

import "time"

const (
	// DefaultDataDir is the base directory kegdb stores its data under when
	// no directory is specified.
	DefaultDataDir = "/var/lib/kegdb"

	// DefaultAddr is the TCP listen address for the Memcached-ASCII server.
	DefaultAddr = ":12340"

	// DefaultCompactInterval is the informational interval logged at
	// startup; see Options.CompactInterval.
	DefaultCompactInterval = time.Hour * 5

	// MinSegmentSize is the smallest allowed segment rollover threshold.
	// 64 matches spec.md's own literal rollover scenario
	// (file_size_limit = 64, three 32-byte puts under one key) and keeps that
	// scenario reachable through the public options API rather than only
	// through a test-only backdoor. Each such put appends a 44-byte record,
	// so the three puts roll over once and leave two data files.
	MinSegmentSize uint64 = 64

	// MaxSegmentSize is the largest allowed segment rollover threshold.
	MaxSegmentSize uint64 = 4 * 1024 * 1024 * 1024

	// DefaultSegmentSize matches original_source's BitcaskOptions::default
	// file_size_limit of 100MiB.
	DefaultSegmentSize uint64 = 100 * 1024 * 1024
)

// NewDefaultOptions returns a fresh Options value with every field at its
// default. Each call allocates its own SegmentOptions so callers never
// share mutable state.
func NewDefaultOptions() Options {
	return Options{
		DataDir:         DefaultDataDir,
		Addr:            DefaultAddr,
		SyncOnWrite:     false,
		CompactInterval: DefaultCompactInterval,
		SegmentOptions: &segmentOptions{
			Size: DefaultSegmentSize,
		},
	}
}
