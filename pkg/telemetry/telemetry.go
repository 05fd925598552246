package telemetry

import (
	"net/http"

	"github.com/nm-morais/go-accrual/pkg/detector"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "accrual"

// Registry holds the module's metrics, separate from the default
// prometheus registry so that hosts can mount it selectively.
var Registry = prometheus.NewRegistry()

// MetricsHandler exposes /metrics. Mount it with
// mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// DetectorCollector exports the live state of a single failure
// detector. Every scrape samples phi at scrape time, so the exported
// suspicion level keeps rising while heartbeats are missing.
type DetectorCollector struct {
	detector *detector.PhiAccrualDetector

	phi          *prometheus.Desc
	available    *prometheus.Desc
	monitoring   *prometheus.Desc
	sampleWindow *prometheus.Desc
	accepted     *prometheus.Desc
	discarded    *prometheus.Desc
}

// NewDetectorCollector creates a collector for the given detector. The
// peer label distinguishes detectors when several instances are
// registered.
func NewDetectorCollector(peer string, d *detector.PhiAccrualDetector) *DetectorCollector {
	labels := prometheus.Labels{"peer": peer}
	return &DetectorCollector{
		detector: d,
		phi: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "phi"),
			"Current suspicion level of the monitored heartbeat stream.",
			nil, labels,
		),
		available: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "available"),
			"Whether phi is under the configured threshold (1) or not (0).",
			nil, labels,
		),
		monitoring: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "monitoring"),
			"Whether at least one heartbeat has been recorded.",
			nil, labels,
		),
		sampleWindow: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sample_window_size"),
			"Number of inter-arrival intervals currently retained.",
			nil, labels,
		),
		accepted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "accepted_intervals_total"),
			"Heartbeat intervals folded into the running statistics.",
			nil, labels,
		),
		discarded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "discarded_intervals_total"),
			"Anomalous heartbeat intervals kept out of the statistics.",
			nil, labels,
		),
	}
}

// Describe satisfies prometheus.Collector.
func (c *DetectorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.phi
	ch <- c.available
	ch <- c.monitoring
	ch <- c.sampleWindow
	ch <- c.accepted
	ch <- c.discarded
}

// Collect satisfies prometheus.Collector.
func (c *DetectorCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.detector.Stats()

	ch <- prometheus.MustNewConstMetric(c.phi, prometheus.GaugeValue, c.detector.PhiNow())
	ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, boolToFloat(c.detector.IsAvailableNow()))
	ch <- prometheus.MustNewConstMetric(c.monitoring, prometheus.GaugeValue, boolToFloat(c.detector.IsMonitoring()))
	ch <- prometheus.MustNewConstMetric(c.sampleWindow, prometheus.GaugeValue, float64(stats.SampleWindowSize))
	ch <- prometheus.MustNewConstMetric(c.accepted, prometheus.CounterValue, float64(stats.AcceptedIntervals))
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(stats.DiscardedIntervals))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
