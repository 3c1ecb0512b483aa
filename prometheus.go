package hnswbench

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector is a MetricsCollector that exports to Prometheus.
type PrometheusCollector struct {
	opLatency  *prometheus.HistogramVec
	batchItems *prometheus.CounterVec
	size       prometheus.Gauge
}

// NewPrometheusCollector creates the collector's metrics under namespace and
// registers them with reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of index operations",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"op", "status"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_insert_vectors_total",
			Help:      "Vectors submitted through batch inserts",
		}, []string{"status"}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_size",
			Help:      "Number of live vectors in the index",
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.batchItems, c.size} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordInsert implements MetricsCollector.
func (c *PrometheusCollector) RecordInsert(d time.Duration, err error) {
	c.opLatency.WithLabelValues("insert", status(err)).Observe(d.Seconds())
}

// RecordBatchInsert implements MetricsCollector.
func (c *PrometheusCollector) RecordBatchInsert(count, failed int, d time.Duration) {
	st := "success"
	if failed > 0 {
		st = "error"
	}
	c.opLatency.WithLabelValues("batch_insert", st).Observe(d.Seconds())
	c.batchItems.WithLabelValues("inserted").Add(float64(count - failed))
	c.batchItems.WithLabelValues("failed").Add(float64(failed))
}

// RecordSearch implements MetricsCollector.
func (c *PrometheusCollector) RecordSearch(_ int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("search", status(err)).Observe(d.Seconds())
}

// RecordDelete implements MetricsCollector.
func (c *PrometheusCollector) RecordDelete(d time.Duration, err error) {
	c.opLatency.WithLabelValues("delete", status(err)).Observe(d.Seconds())
}

// RecordUpdate implements MetricsCollector.
func (c *PrometheusCollector) RecordUpdate(d time.Duration, err error) {
	c.opLatency.WithLabelValues("update", status(err)).Observe(d.Seconds())
}

// RecordSize sets the index size gauge.
func (c *PrometheusCollector) RecordSize(size int) {
	c.size.Set(float64(size))
}
