// Package metrics records run metrics in a Prometheus registry that is
// written out as a node-exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"navcheck/internal/domain"
)

const namespace = "navcheck"

const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
)

// Collector holds the metrics of one run
type Collector struct {
	registry *prometheus.Registry

	casesTotal   *prometheus.CounterVec
	caseDuration *prometheus.HistogramVec
	scopes       *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector creates a Collector with its own registry
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		casesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cases_total",
				Help:      "Navigation cases run, by outcome and failure kind",
			},
			[]string{"outcome", "kind"},
		),
		caseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "case_duration_seconds",
				Help:      "Duration of one navigation case, acquisition to release",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		scopes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "browser_scopes",
				Help:      "Browser, context and page scopes of the run",
			},
			[]string{"state"}, // acquired, released
		),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveResults records every case result
func (c *Collector) ObserveResults(results []domain.CaseResult) {
	for _, r := range results {
		outcome := OutcomePassed
		kind := ""
		if !r.Success {
			outcome = OutcomeFailed
			kind = string(domain.KindOf(r.Error))
			if kind == "" {
				kind = "error"
			}
		}
		c.casesTotal.WithLabelValues(outcome, kind).Inc()
		c.caseDuration.WithLabelValues(outcome).Observe(r.Duration.Seconds())
	}
}

// SetScopes records the scope counters of the run
func (c *Collector) SetScopes(acquired, released int64) {
	c.scopes.WithLabelValues("acquired").Set(float64(acquired))
	c.scopes.WithLabelValues("released").Set(float64(released))
}

// WriteTextfile writes the registry to path atomically
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	c.logger.Debug("metrics written", zap.String("path", path))
	return nil
}
