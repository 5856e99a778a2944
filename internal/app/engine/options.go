package engine

import "time"

// Options represents configuration options for the Engine.
type Options struct {
	// SnapshotInterval is how often the snapshot job wakes up.
	SnapshotInterval time.Duration
	// SnapshotOffsetDelta is the minimum number of applied order stream
	// records between two stored snapshots.
	SnapshotOffsetDelta int64
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		SnapshotInterval:    30 * time.Second,
		SnapshotOffsetDelta: 1000,
	}
}
