// Package resource holds the concurrency primitives of the engine: the
// fail-fast Guard that protects indices and registries, and the Controller
// that budgets scan parallelism, transaction throughput and savegame IO.
package resource

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxScanWorkers bounds the number of goroutines a single graph scan may
	// use. If 0, defaults to GOMAXPROCS.
	MaxScanWorkers int64

	// TransactionsPerSecond throttles the transaction pipeline worker.
	// If 0, unlimited.
	TransactionsPerSecond float64

	// TransactionBurst is the burst size of the transaction limiter.
	// If 0, defaults to 1.
	TransactionBurst int

	// IOLimitBytesPerSec is the maximum savegame throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages shared engine resources.
//
// A nil *Controller is valid and imposes no limits beyond the default scan
// worker count.
type Controller struct {
	cfg Config

	scanSem   *semaphore.Weighted
	txLimiter *rate.Limiter // nil if unlimited
	ioLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxScanWorkers <= 0 {
		cfg.MaxScanWorkers = int64(runtime.GOMAXPROCS(0))
	}
	if cfg.TransactionBurst <= 0 {
		cfg.TransactionBurst = 1
	}

	c := &Controller{
		cfg:     cfg,
		scanSem: semaphore.NewWeighted(cfg.MaxScanWorkers),
	}

	if cfg.TransactionsPerSecond > 0 {
		c.txLimiter = rate.NewLimiter(rate.Limit(cfg.TransactionsPerSecond), cfg.TransactionBurst)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// ScanWorkers returns the configured scan parallelism.
func (c *Controller) ScanWorkers() int {
	if c == nil {
		return runtime.GOMAXPROCS(0)
	}
	return int(c.cfg.MaxScanWorkers)
}

// TryAcquireScanWorker reserves a scan worker slot without blocking. It
// reports false when every slot is taken.
func (c *Controller) TryAcquireScanWorker() bool {
	if c == nil {
		return true
	}
	return c.scanSem.TryAcquire(1)
}

// AcquireScanWorker reserves a scan worker slot, blocking until one is free
// or ctx is canceled.
func (c *Controller) AcquireScanWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.scanSem.Acquire(ctx, 1)
}

// ReleaseScanWorker releases a scan worker slot.
func (c *Controller) ReleaseScanWorker() {
	if c == nil {
		return
	}
	c.scanSem.Release(1)
}

// WaitTransaction blocks until the transaction limiter admits one more
// transaction.
func (c *Controller) WaitTransaction(ctx context.Context) error {
	if c == nil || c.txLimiter == nil {
		return nil
	}
	return c.txLimiter.Wait(ctx)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	// WaitN rejects requests larger than the burst; split them.
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
