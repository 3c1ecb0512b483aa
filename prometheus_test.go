package hnswbench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hnswbench/testutil"
)

func histogramCount(t *testing.T, c *PrometheusCollector, op, status string) uint64 {
	t.Helper()

	m := &dto.Metric{}
	obs, err := c.opLatency.GetMetricWithLabelValues(op, status)
	require.NoError(t, err)
	require.NoError(t, obs.(prometheus.Metric).Write(m))
	return m.GetHistogram().GetSampleCount()
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg, "hnswbench")
	require.NoError(t, err)

	c.RecordInsert(time.Millisecond, nil)
	c.RecordInsert(time.Millisecond, errors.New("boom"))
	c.RecordSearch(10, time.Microsecond, nil)
	c.RecordBatchInsert(10, 2, time.Second)
	c.RecordSize(42)

	assert.Equal(t, uint64(1), histogramCount(t, c, "insert", "success"))
	assert.Equal(t, uint64(1), histogramCount(t, c, "insert", "error"))
	assert.Equal(t, uint64(1), histogramCount(t, c, "search", "success"))
	assert.Equal(t, uint64(1), histogramCount(t, c, "batch_insert", "error"))
	assert.Equal(t, 8.0, promtestutil.ToFloat64(c.batchItems.WithLabelValues("inserted")))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(c.batchItems.WithLabelValues("failed")))
	assert.Equal(t, 42.0, promtestutil.ToFloat64(c.size))

	// Registering the same names twice fails.
	_, err = NewPrometheusCollector(reg, "hnswbench")
	assert.Error(t, err)
}

func TestPrometheusCollector_WiredIntoIndex(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg, "bench")
	require.NoError(t, err)

	idx := newIndex(t, 4, MetricEuclidean, func(o *Options) { o.MetricsCollector = c })

	vectors := testutil.NewRNG(3).UniformVectors(50, 4)
	_, err = idx.BatchInsert(ctx, vectors)
	require.NoError(t, err)
	for _, q := range vectors[:5] {
		_, err := idx.Search(ctx, q, 3, 16)
		require.NoError(t, err)
	}
	require.NoError(t, idx.Delete(ctx, 0))

	assert.Equal(t, 49.0, promtestutil.ToFloat64(c.size))
	assert.Equal(t, uint64(5), histogramCount(t, c, "search", "success"))
	assert.Equal(t, uint64(1), histogramCount(t, c, "delete", "success"))
	assert.Equal(t, 50.0, promtestutil.ToFloat64(c.batchItems.WithLabelValues("inserted")))

	n, err := promtestutil.GatherAndCount(reg, "bench_operation_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
