package list

import (
	"log/slog"
	"os"
	"time"

	"github.com/agilira/go-timecache"
)

// config holds the normalized, effective configuration for a List.
// Functional-option shape mirrors the teacher's mvcc.config/mvcc.Option.
type config[E comparable] struct {
	logger          *slog.Logger
	timeProvider    TimeProvider
	metrics         MetricsCollector
	reclaimInterval time.Duration
	freeFunc        func(E)
}

func defaultConfig[E comparable]() config[E] {
	return config[E]{
		logger:          slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		timeProvider:    systemTimeProvider{},
		metrics:         NoOpMetricsCollector{},
		reclaimInterval: 2 * time.Second,
	}
}

// systemTimeProvider is the default TimeProvider, using go-timecache the
// same way agilira-balios/config.go's systemTimeProvider does: a cached
// clock read instead of a fresh time.Now() syscall on every log line.
type systemTimeProvider struct{}

func (systemTimeProvider) Now() int64 { return timecache.CachedTimeNano() }

// Option configures a List at construction time.
type Option[E comparable] func(*config[E])

// WithLogger sets the structured logger used for reclaimer summaries and
// hazard-exhaustion warnings.
func WithLogger[E comparable](l *slog.Logger) Option[E] {
	return func(c *config[E]) { c.logger = l }
}

// WithTimeProvider overrides the wall-clock source used for log/metric
// timestamps. Never consulted for visibility decisions.
func WithTimeProvider[E comparable](tp TimeProvider) Option[E] {
	return func(c *config[E]) { c.timeProvider = tp }
}

// WithMetricsCollector installs a MetricsCollector; the default is a no-op.
func WithMetricsCollector[E comparable](m MetricsCollector) Option[E] {
	return func(c *config[E]) { c.metrics = m }
}

// WithReclaimInterval sets how often the background reclaim loop runs.
// Reclamation also happens opportunistically from Txn.Commit per spec §4.4
// step 6; this interval only covers the idle-list case.
func WithReclaimInterval[E comparable](d time.Duration) Option[E] {
	return func(c *config[E]) { c.reclaimInterval = d }
}

// WithFreeFunc installs free_cb (spec §3): invoked exactly once per element
// when the node containing it is reclaimed.
func WithFreeFunc[E comparable](fn func(E)) Option[E] {
	return func(c *config[E]) { c.freeFunc = fn }
}
