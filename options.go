package fallen8

import (
	"log/slog"
	"time"

	"github.com/cosh/fallen-8-core-sub000/resource"
	"github.com/cosh/fallen-8-core-sub000/store"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	controller       *resource.Controller
	clock            func() time.Time
	interceptor      store.Interceptor
	maintenance      retryPolicy
}

// retryPolicy bounds how index maintenance retries guard collisions.
type retryPolicy struct {
	attempts int
	backoff  time.Duration
	max      time.Duration
}

var defaultRetryPolicy = retryPolicy{
	attempts: 20,
	backoff:  50 * time.Microsecond,
	max:      10 * time.Millisecond,
}

// Option configures a Fallen8 instance.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &fallen8.BasicMetricsCollector{}
//	f8 := fallen8.New(fallen8.WithMetricsCollector(metrics))
//	// ... use f8 ...
//	stats := metrics.GetStats()
//	fmt.Printf("Scans: %d, Avg latency: %dns\n", stats.ScanCount, stats.ScanAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := fallen8.NewJSONLogger(slog.LevelInfo)
//	f8 := fallen8.New(fallen8.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController bounds scan parallelism, transaction throughput
// and savegame IO.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithClock overrides the time source for creation dates and modification
// deltas.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithInterceptor installs a write interceptor on the element store. An
// interceptor error aborts the mutation it was asked about.
func WithInterceptor(fn store.Interceptor) Option {
	return func(o *options) {
		o.interceptor = fn
	}
}

// WithMaintenanceRetries sets how often index maintenance retries an index
// that reports a collision, and the initial backoff between attempts. The
// backoff doubles per attempt.
func WithMaintenanceRetries(attempts int, backoff time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.maintenance.attempts = attempts
		}
		if backoff > 0 {
			o.maintenance.backoff = backoff
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		maintenance:      defaultRetryPolicy,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
