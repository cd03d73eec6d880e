package metrics

import (
	"net/http"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/eventlog"
	"github.com/doridoridoriand/regionwatch/internal/report"
	"github.com/doridoridoriand/regionwatch/internal/scheduler"
	"github.com/doridoridoriand/regionwatch/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "regionwatch"

// Source is the read side of the state store.
type Source interface {
	Snapshot() []state.EndpointSnapshot
	GroupStatuses() []state.GroupSnapshot
}

// Collector exposes monitor state as Prometheus metrics. Gauges are read
// from store snapshots at scrape time; counters are fed by observers.
type Collector struct {
	source     Source
	inProgress func() bool
	now        func() time.Time

	endpointStatus  *prometheus.Desc
	endpointLatency *prometheus.Desc
	endpointFails   *prometheus.Desc
	groupStatus     *prometheus.Desc
	cycleInProgress *prometheus.Desc
	incidents       *prometheus.Desc
	projected       *prometheus.Desc

	cycleDuration prometheus.Histogram
	cycleProbes   *prometheus.CounterVec
	logEntries    *prometheus.CounterVec
}

// NewCollector creates a collector reading from source. inProgress may be nil.
func NewCollector(source Source, inProgress func() bool) *Collector {
	if inProgress == nil {
		inProgress = func() bool { return false }
	}
	return &Collector{
		source:     source,
		inProgress: inProgress,
		now:        time.Now,

		endpointStatus: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "endpoint", "status"),
			"Current endpoint status (1 for the active status)",
			[]string{"address", "group", "status"}, nil,
		),
		endpointLatency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "endpoint", "latency_ms"),
			"Smoothed endpoint latency in milliseconds",
			[]string{"address", "group"}, nil,
		),
		endpointFails: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "endpoint", "consecutive_failures"),
			"Consecutive failed probes",
			[]string{"address", "group"}, nil,
		),
		groupStatus: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "group", "status"),
			"Aggregated group status (1 for the active status)",
			[]string{"group", "status"}, nil,
		),
		cycleInProgress: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "cycle_in_progress"),
			"Whether a poll cycle is running",
			nil, nil,
		),
		incidents: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "incidents_total"),
			"Incidents found in the retained history",
			nil, nil,
		),
		projected: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "projected_incidents_24h"),
			"Linear extrapolation of the incident rate to 24 hours",
			nil, nil,
		),

		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of poll cycles",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		cycleProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Probes run by poll cycles",
		}, []string{"result"}),
		logEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_entries_total",
			Help:      "Event log entries by severity",
		}, []string{"severity"}),
	}
}

// ObserveCycle records a completed cycle.
func (c *Collector) ObserveCycle(stats scheduler.CycleStats) {
	c.cycleDuration.Observe(stats.FinishedAt.Sub(stats.StartedAt).Seconds())
	c.cycleProbes.WithLabelValues("ok").Add(float64(stats.Probed - stats.Failed))
	c.cycleProbes.WithLabelValues("failed").Add(float64(stats.Failed))
}

// ObserveEntry counts one event log entry.
func (c *Collector) ObserveEntry(e eventlog.Entry) {
	c.logEntries.WithLabelValues(string(e.Severity)).Inc()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.endpointStatus
	ch <- c.endpointLatency
	ch <- c.endpointFails
	ch <- c.groupStatus
	ch <- c.cycleInProgress
	ch <- c.incidents
	ch <- c.projected
	c.cycleDuration.Describe(ch)
	c.cycleProbes.Describe(ch)
	c.logEntries.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshots := c.source.Snapshot()
	groups := c.source.GroupStatuses()

	for _, snap := range snapshots {
		for _, s := range state.AllStatuses() {
			ch <- prometheus.MustNewConstMetric(c.endpointStatus, prometheus.GaugeValue,
				boolValue(snap.Status == s), snap.Address, snap.Group, s.String())
		}
		if snap.LatencyMs != nil {
			ch <- prometheus.MustNewConstMetric(c.endpointLatency, prometheus.GaugeValue,
				float64(*snap.LatencyMs), snap.Address, snap.Group)
		}
		ch <- prometheus.MustNewConstMetric(c.endpointFails, prometheus.GaugeValue,
			float64(snap.ConsecutiveFailures), snap.Address, snap.Group)
	}

	for _, g := range groups {
		for _, s := range state.AllStatuses() {
			ch <- prometheus.MustNewConstMetric(c.groupStatus, prometheus.GaugeValue,
				boolValue(g.Status == s), g.Name, s.String())
		}
	}

	ch <- prometheus.MustNewConstMetric(c.cycleInProgress, prometheus.GaugeValue, boolValue(c.inProgress()))

	incidents := report.EndpointIncidents(snapshots)
	projection := report.Project(len(incidents), report.EarliestPoint(snapshots), c.now())
	ch <- prometheus.MustNewConstMetric(c.incidents, prometheus.GaugeValue, float64(projection.TotalIncidents))
	ch <- prometheus.MustNewConstMetric(c.projected, prometheus.GaugeValue, float64(projection.Projected24h))

	c.cycleDuration.Collect(ch)
	c.cycleProbes.Collect(ch)
	c.logEntries.Collect(ch)
}

// NewRegistry returns a registry holding c and the Go runtime collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
