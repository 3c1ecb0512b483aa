package hnswbench

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// PrometheusCollector for a ready-made Prometheus integration.
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	// duration is the total time taken, err is nil if successful.
	RecordInsert(duration time.Duration, err error)

	// RecordBatchInsert is called after each batch insert operation.
	// count is the number of vectors in the batch, failed is the number
	// that were not inserted.
	RecordBatchInsert(count, failed int, duration time.Duration)

	// RecordSearch is called after each search operation.
	// k is the number of neighbors requested.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordUpdate is called after each update operation.
	RecordUpdate(duration time.Duration, err error)
}

// sizeRecorder is implemented by collectors that track the live index size.
type sizeRecorder interface {
	RecordSize(size int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)         {}
func (NoopMetricsCollector) RecordBatchInsert(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)         {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)         {}

// OpCounters tracks calls, failures and cumulative latency of one operation.
type OpCounters struct {
	Count      atomic.Int64
	Errors     atomic.Int64
	TotalNanos atomic.Int64
}

func (c *OpCounters) record(duration time.Duration, err error) {
	c.Count.Add(1)
	c.TotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		c.Errors.Add(1)
	}
}

func (c *OpCounters) snapshot() OpStats {
	s := OpStats{
		Count:  c.Count.Load(),
		Errors: c.Errors.Load(),
	}
	if s.Count > 0 {
		s.AvgNanos = c.TotalNanos.Load() / s.Count
	}
	return s
}

// OpStats is a snapshot of OpCounters.
type OpStats struct {
	Count    int64
	Errors   int64
	AvgNanos int64
}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for benchmarks and debugging without external dependencies.
type BasicMetricsCollector struct {
	Insert OpCounters
	Search OpCounters
	Delete OpCounters
	Update OpCounters

	BatchInsertCount  atomic.Int64
	BatchInsertItems  atomic.Int64
	BatchInsertFailed atomic.Int64

	Size atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.Insert.record(duration, err)
}

// RecordBatchInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchInsert(count, failed int, _ time.Duration) {
	b.BatchInsertCount.Add(1)
	b.BatchInsertItems.Add(int64(count))
	b.BatchInsertFailed.Add(int64(failed))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ int, duration time.Duration, err error) {
	b.Search.record(duration, err)
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.Delete.record(duration, err)
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	b.Update.record(duration, err)
}

// RecordSize stores the live index size.
func (b *BasicMetricsCollector) RecordSize(size int) {
	b.Size.Store(int64(size))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		Insert:            b.Insert.snapshot(),
		Search:            b.Search.snapshot(),
		Delete:            b.Delete.snapshot(),
		Update:            b.Update.snapshot(),
		BatchInsertCount:  b.BatchInsertCount.Load(),
		BatchInsertItems:  b.BatchInsertItems.Load(),
		BatchInsertFailed: b.BatchInsertFailed.Load(),
		Size:              b.Size.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Insert            OpStats
	Search            OpStats
	Delete            OpStats
	Update            OpStats
	BatchInsertCount  int64
	BatchInsertItems  int64
	BatchInsertFailed int64
	Size              int64
}
