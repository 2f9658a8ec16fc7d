package fallen8

import (
	"sync/atomic"
	"time"

	"github.com/cosh/fallen-8-core-sub000/txn"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordTransaction is called by the pipeline worker after every
	// transaction. state is txn.Finished or txn.RolledBack.
	RecordTransaction(state txn.State, duration time.Duration)

	// RecordScan is called after each graph or index scan. kind names the
	// scan ("graph", "index", "range", "fulltext", "spatial").
	RecordScan(kind string, results int, duration time.Duration, err error)

	// RecordShortestPath is called after each path search.
	RecordShortestPath(paths int, duration time.Duration)

	// RecordTrim is called after each successful trim with the number of
	// dropped tombstones.
	RecordTrim(removed int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTransaction(txn.State, time.Duration)   {}
func (NoopMetricsCollector) RecordScan(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordShortestPath(int, time.Duration)        {}
func (NoopMetricsCollector) RecordTrim(int, time.Duration)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TransactionsFinished   atomic.Int64
	TransactionsRolledBack atomic.Int64
	TransactionTotalNanos  atomic.Int64
	ScanCount              atomic.Int64
	ScanErrors             atomic.Int64
	ScanResults            atomic.Int64
	ScanTotalNanos         atomic.Int64
	PathSearchCount        atomic.Int64
	PathsFound             atomic.Int64
	PathTotalNanos         atomic.Int64
	TrimCount              atomic.Int64
	TrimRemoved            atomic.Int64
}

// RecordTransaction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTransaction(state txn.State, duration time.Duration) {
	if state == txn.Finished {
		b.TransactionsFinished.Add(1)
	} else {
		b.TransactionsRolledBack.Add(1)
	}
	b.TransactionTotalNanos.Add(duration.Nanoseconds())
}

// RecordScan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScan(kind string, results int, duration time.Duration, err error) {
	b.ScanCount.Add(1)
	b.ScanResults.Add(int64(results))
	b.ScanTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ScanErrors.Add(1)
	}
}

// RecordShortestPath implements MetricsCollector.
func (b *BasicMetricsCollector) RecordShortestPath(paths int, duration time.Duration) {
	b.PathSearchCount.Add(1)
	b.PathsFound.Add(int64(paths))
	b.PathTotalNanos.Add(duration.Nanoseconds())
}

// RecordTrim implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrim(removed int, duration time.Duration) {
	b.TrimCount.Add(1)
	b.TrimRemoved.Add(int64(removed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	finished := b.TransactionsFinished.Load()
	rolledBack := b.TransactionsRolledBack.Load()
	return BasicMetricsStats{
		TransactionsFinished:   finished,
		TransactionsRolledBack: rolledBack,
		TransactionAvgNanos:    avg(b.TransactionTotalNanos.Load(), finished+rolledBack),
		ScanCount:              b.ScanCount.Load(),
		ScanErrors:             b.ScanErrors.Load(),
		ScanResults:            b.ScanResults.Load(),
		ScanAvgNanos:           avg(b.ScanTotalNanos.Load(), b.ScanCount.Load()),
		PathSearchCount:        b.PathSearchCount.Load(),
		PathsFound:             b.PathsFound.Load(),
		PathAvgNanos:           avg(b.PathTotalNanos.Load(), b.PathSearchCount.Load()),
		TrimCount:              b.TrimCount.Load(),
		TrimRemoved:            b.TrimRemoved.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TransactionsFinished   int64
	TransactionsRolledBack int64
	TransactionAvgNanos    int64
	ScanCount              int64
	ScanErrors             int64
	ScanResults            int64
	ScanAvgNanos           int64
	PathSearchCount        int64
	PathsFound             int64
	PathAvgNanos           int64
	TrimCount              int64
	TrimRemoved            int64
}
