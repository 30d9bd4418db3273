package list

import "time"

// MetricsCollector receives operation telemetry. Implementations must be
// safe for concurrent use and should be effectively free when unused — the
// default NoOpMetricsCollector costs nothing on the hot path.
//
// mvcclist/otelmetrics provides an OpenTelemetry-backed implementation in
// its own module, kept separate so core users never pull in the OTEL
// dependency graph transitively.
type MetricsCollector interface {
	// RecordInsert records one InsertHead/InsertTail/InsertAfter call.
	RecordInsert(kind string, dur time.Duration, ok bool)

	// RecordRemove records one RemoveHead/Remove call.
	RecordRemove(kind string, dur time.Duration, found bool)

	// RecordReclaim records the outcome of one reclaimer pass.
	RecordReclaim(unlinked, freed, deferred int)

	// RecordCommit records one transaction commit.
	RecordCommit(dur time.Duration, ops int)

	// RecordHazardOccupancy reports current hazard-slot usage.
	RecordHazardOccupancy(used, capacity int)
}

// NoOpMetricsCollector discards everything. Used as the default so callers
// that don't care about metrics pay nothing for them.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordInsert(string, time.Duration, bool)    {}
func (NoOpMetricsCollector) RecordRemove(string, time.Duration, bool)    {}
func (NoOpMetricsCollector) RecordReclaim(int, int, int)                 {}
func (NoOpMetricsCollector) RecordCommit(time.Duration, int)             {}
func (NoOpMetricsCollector) RecordHazardOccupancy(used, capacity int)    {}

// Stats is a point-in-time snapshot of list-level counters. Additive
// convenience, not part of spec §6's operation table.
type Stats struct {
	Size            int
	CommitCounter   uint64
	HazardUsed      int
	HazardCapacity  int
}

// TimeProvider supplies wall-clock time for log and metric timestamps only
// — visibility decisions in this package are always made from the version
// clock, never from wall time. Matches agilira-balios's TimeProvider shape.
type TimeProvider interface {
	Now() int64
}
