// ============================================================================
// MLFQ Simulator Metrics - Prometheus instrumentation
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Expose per-scheme simulation counters for Prometheus scraping
//
// Metric families (all labelled by scheme):
//
//   1. Counters:
//      - mlfq_runs_total:               completed simulation runs
//      - mlfq_run_failures_total:       runs aborted by an error
//      - mlfq_ticks_total:              simulated ticks
//      - mlfq_idle_ticks_total:         ticks with no task executing
//      - mlfq_context_switches_total:   changes of the executing task
//      - mlfq_demotions_total:          quantum expiries that moved a task down
//      - mlfq_preemptions_total:        running tasks displaced before expiry
//      - mlfq_events_total{kind}:       scheduling events observed live
//
//   2. Histogram:
//      - mlfq_run_duration_seconds:     wall-clock time of one run
//
//   3. Gauges (last run):
//      - mlfq_avg_waiting_ticks
//      - mlfq_avg_turnaround_ticks
//
// Example queries:
//
//   # Share of simulated time spent idle
//   sum by (scheme) (mlfq_idle_ticks_total) / sum by (scheme) (mlfq_ticks_total)
//
//   # 95th percentile run duration
//   histogram_quantile(0.95, sum by (le) (rate(mlfq_run_duration_seconds_bucket[5m])))
//
// ============================================================================

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

const namespace = "mlfq"

// Collector holds the simulator's metric families.
type Collector struct {
	runs            *prometheus.CounterVec
	failures        *prometheus.CounterVec
	ticks           *prometheus.CounterVec
	idleTicks       *prometheus.CounterVec
	contextSwitches *prometheus.CounterVec
	demotions       *prometheus.CounterVec
	preemptions     *prometheus.CounterVec
	events          *prometheus.CounterVec

	runDuration *prometheus.HistogramVec

	avgWaiting    *prometheus.GaugeVec
	avgTurnaround *prometheus.GaugeVec
}

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, labels)
}

func gauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, []string{"scheme"})
}

// NewCollector creates the metric families and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		runs:            counter("runs_total", "Total number of completed simulation runs", "scheme"),
		failures:        counter("run_failures_total", "Total number of simulation runs aborted by an error", "scheme"),
		ticks:           counter("ticks_total", "Total number of simulated ticks", "scheme"),
		idleTicks:       counter("idle_ticks_total", "Total number of ticks with no task executing", "scheme"),
		contextSwitches: counter("context_switches_total", "Total number of changes of the executing task", "scheme"),
		demotions:       counter("demotions_total", "Total number of tier demotions", "scheme"),
		preemptions:     counter("preemptions_total", "Total number of preempted running tasks", "scheme"),
		events:          counter("events_total", "Total number of scheduling events observed", "scheme", "kind"),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of one simulation run in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"scheme"}),
		avgWaiting:    gauge("avg_waiting_ticks", "Average waiting time of the most recent run"),
		avgTurnaround: gauge("avg_turnaround_ticks", "Average turnaround time of the most recent run"),
	}

	reg.MustRegister(
		c.runs, c.failures, c.ticks, c.idleTicks, c.contextSwitches,
		c.demotions, c.preemptions, c.events, c.runDuration,
		c.avgWaiting, c.avgTurnaround,
	)

	return c
}

// RecordRun records a finished run and its averages.
func (c *Collector) RecordRun(result types.RunResult, avg types.Averages, elapsed time.Duration) {
	scheme := string(result.Scheme)

	c.runs.WithLabelValues(scheme).Inc()
	c.ticks.WithLabelValues(scheme).Add(float64(result.Stats.Ticks))
	c.idleTicks.WithLabelValues(scheme).Add(float64(result.Stats.IdleTicks))
	c.contextSwitches.WithLabelValues(scheme).Add(float64(result.Stats.ContextSwitches))
	c.demotions.WithLabelValues(scheme).Add(float64(result.Stats.Demotions))
	c.preemptions.WithLabelValues(scheme).Add(float64(result.Stats.Preemptions))
	c.runDuration.WithLabelValues(scheme).Observe(elapsed.Seconds())

	c.avgWaiting.WithLabelValues(scheme).Set(avg.Waiting)
	c.avgTurnaround.WithLabelValues(scheme).Set(avg.Turnaround)
}

// RecordFailure records a run that returned an error.
func (c *Collector) RecordFailure(scheme types.SchemeID) {
	c.failures.WithLabelValues(string(scheme)).Inc()
}

// Observe counts a live scheduling event.
func (c *Collector) Observe(scheme types.SchemeID, ev types.Event) {
	c.events.WithLabelValues(string(scheme), string(ev.Kind)).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing g at /metrics.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
