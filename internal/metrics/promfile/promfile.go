// Package promfile implements a Prometheus backend for the metrics package
// that writes the collected metrics to a node_exporter textfile and,
// optionally, pushes them to a Pushgateway.
package promfile

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/vegasq/medframe/internal/metrics"
)

// Backend collects pipeline metrics in a private registry.
type Backend struct {
	path       string
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	rowCounter   *prometheus.CounterVec
}

// Option configures a Backend.
type Option func(*Backend)

// WithPushgateway additionally pushes the registry to the Pushgateway at url
// on every Flush, grouped under job.
func WithPushgateway(url, job string) Option {
	return func(b *Backend) {
		b.gatewayURL = url
		if job != "" {
			b.jobName = job
		}
	}
}

// NewBackend returns a backend whose Flush writes the textfile at path.
func NewBackend(path string, opts ...Option) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("promfile: textfile path is required")
	}

	b := &Backend{
		path:    path,
		jobName: "medframe",
		reg:     prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.StepTotal,
				Help: "Pipeline step executions, partitioned by step and status.",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metrics.StepDurationSeconds,
				Help:    "Duration of pipeline steps in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"step", "status"},
		),
		rowCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RowsTotal,
				Help: "Row counts per kind (loaded, duplicates, outliers, imputed, ...).",
			},
			[]string{"kind"},
		),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, c := range []prometheus.Collector{b.stepCounter, b.stepDuration, b.rowCounter} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("promfile: register collector: %w", err)
		}
	}
	return b, nil
}

// Registry exposes the underlying registry, mainly for tests.
func (b *Backend) Registry() *prometheus.Registry { return b.reg }

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush writes the textfile and pushes to the Pushgateway when one is set.
func (b *Backend) Flush() error {
	var errs []error
	if err := prometheus.WriteToTextfile(b.path, b.reg); err != nil {
		errs = append(errs, fmt.Errorf("promfile: write %s: %w", b.path, err))
	}
	if b.gatewayURL != "" {
		if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
			errs = append(errs, fmt.Errorf("promfile: push: %w", err))
		}
	}
	return errors.Join(errs...)
}
