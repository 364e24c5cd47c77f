// Package metrics records import and snapshot activity with Prometheus
// collectors. The CLI exits after each command, so metrics are exported in
// the node_exporter textfile format instead of served over HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ecotermo/internal/asset"
	"ecotermo/internal/config"
)

// Recorder is the metrics surface used by the application layer.
type Recorder interface {
	ObserveImport(mode, outcome string, duration time.Duration)
	AddImportedRecords(newCount, updated, deleted int)
	IncSnapshotFailures()
	IncRestores(outcome string)
	SetAssets(records []asset.Record)
	Flush() error
}

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Provider holds the collectors on a private registry.
type Provider struct {
	registry     *prometheus.Registry
	textfilePath string

	importsTotal     *prometheus.CounterVec
	importDuration   *prometheus.HistogramVec
	importedRecords  *prometheus.CounterVec
	snapshotFailures prometheus.Counter
	restoresTotal    *prometheus.CounterVec
	assetsByStatus   *prometheus.GaugeVec
	foodSafetyRisk   prometheus.Gauge
}

// NewRecorder returns a Provider when metrics are enabled and a no-op
// recorder otherwise.
func NewRecorder(cfg config.MetricsConfig) Recorder {
	if !cfg.Enabled {
		return &noopRecorder{}
	}
	return NewProvider(cfg.TextfilePath)
}

// NewProvider registers every collector on a fresh registry. An empty
// textfilePath makes Flush a no-op.
func NewProvider(textfilePath string) *Provider {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Provider{
		registry:     reg,
		textfilePath: textfilePath,

		importsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotermo_imports_total",
			Help: "Total number of CSV imports by mode and outcome",
		}, []string{"mode", "outcome"}),

		importDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecotermo_import_duration_seconds",
			Help:    "CSV import duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),

		importedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotermo_import_records_total",
			Help: "Records written by imports, by kind (new, updated, deleted)",
		}, []string{"kind"}),

		snapshotFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ecotermo_snapshot_failures_total",
			Help: "Snapshots that could not be written before a replace-all import",
		}),

		restoresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotermo_restores_total",
			Help: "Snapshot restores by outcome",
		}, []string{"outcome"}),

		assetsByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ecotermo_assets",
			Help: "Current number of assets by status",
		}, []string{"status"}),

		foodSafetyRisk: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ecotermo_food_safety_critical_assets",
			Help: "Current number of assets flagged as a food safety critical risk",
		}),
	}
}

func (p *Provider) ObserveImport(mode, outcome string, duration time.Duration) {
	p.importsTotal.WithLabelValues(mode, outcome).Inc()
	p.importDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func (p *Provider) AddImportedRecords(newCount, updated, deleted int) {
	p.importedRecords.WithLabelValues("new").Add(float64(newCount))
	p.importedRecords.WithLabelValues("updated").Add(float64(updated))
	p.importedRecords.WithLabelValues("deleted").Add(float64(deleted))
}

func (p *Provider) IncSnapshotFailures() {
	p.snapshotFailures.Inc()
}

func (p *Provider) IncRestores(outcome string) {
	p.restoresTotal.WithLabelValues(outcome).Inc()
}

// SetAssets replaces the status gauges with counts from records.
func (p *Provider) SetAssets(records []asset.Record) {
	counts := map[asset.Status]int{
		asset.StatusOperational: 0,
		asset.StatusWarning:     0,
		asset.StatusAlert:       0,
		asset.StatusStopped:     0,
	}
	critical := 0
	for _, r := range records {
		counts[r.Status]++
		if r.FoodSafetyStatus == asset.FoodSafetyCriticalRisk {
			critical++
		}
	}
	for status, n := range counts {
		p.assetsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
	p.foodSafetyRisk.Set(float64(critical))
}

// Gatherer exposes the private registry.
func (p *Provider) Gatherer() prometheus.Gatherer {
	return p.registry
}

// Flush writes all metrics to the textfile path.
func (p *Provider) Flush() error {
	if p.textfilePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.textfilePath), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(p.textfilePath, p.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// noopRecorder is used when metrics are disabled.
type noopRecorder struct{}

func (n *noopRecorder) ObserveImport(_, _ string, _ time.Duration) {}
func (n *noopRecorder) AddImportedRecords(_, _, _ int)             {}
func (n *noopRecorder) IncSnapshotFailures()                       {}
func (n *noopRecorder) IncRestores(_ string)                       {}
func (n *noopRecorder) SetAssets(_ []asset.Record)                 {}
func (n *noopRecorder) Flush() error                               { return nil }
