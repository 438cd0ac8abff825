package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "legistrack"

// phases are exported as a one-hot gauge.
var phases = []string{"INIT", "BACKFILL", "STEADY", "FAILED_FETCH"}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	cycleDuration    *prom.HistogramVec
	cycleOutcome     *prom.CounterVec
	mergeResults     *prom.CounterVec
	stageTransitions *prom.CounterVec
	trackedEntities  prom.Gauge
	phase            *prom.GaugeVec
	fetchDuration    *prom.HistogramVec
	fetchResults     *prom.CounterVec
	regulations      *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		cycleDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of poll and backfill cycles",
			Buckets:   []float64{0.5, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"mode"}),
		cycleOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_outcomes_total",
			Help:      "Cycle outcomes by mode and result",
		}, []string{"mode", "result"}),
		mergeResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "merge_records_total",
			Help:      "Observations merged, by outcome",
		}, []string{"mode", "outcome"}),
		stageTransitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Stage transitions observed",
		}, []string{"from", "to"}),
		trackedEntities: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_bills",
			Help:      "Bills in the collection",
		}),
		phase: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "tracker_phase",
			Help:      "Current tracker phase (1 for the active phase)",
		}, []string{"phase"}),
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch latency",
			Buckets:   prom.DefBuckets,
		}, []string{"source"}),
		fetchResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_results_total",
			Help:      "Upstream fetch results",
		}, []string{"source", "result"}),
		regulations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "regulations_total",
			Help:      "Gazette notices by dedup outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		pr.cycleDuration, pr.cycleOutcome, pr.mergeResults, pr.stageTransitions,
		pr.trackedEntities, pr.phase, pr.fetchDuration, pr.fetchResults, pr.regulations,
	)
	return pr
}

func (p *PrometheusRecorder) ObserveCycleDuration(mode string, d time.Duration) {
	if p == nil {
		return
	}
	p.cycleDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCycleOutcome(mode string, result ResultLabel) {
	if p == nil {
		return
	}
	p.cycleOutcome.WithLabelValues(mode, string(result)).Inc()
}

func (p *PrometheusRecorder) AddMergeResults(mode string, added, changed, unchanged, skipped int) {
	if p == nil {
		return
	}
	p.mergeResults.WithLabelValues(mode, "new").Add(float64(added))
	p.mergeResults.WithLabelValues(mode, "changed").Add(float64(changed))
	p.mergeResults.WithLabelValues(mode, "unchanged").Add(float64(unchanged))
	p.mergeResults.WithLabelValues(mode, "skipped").Add(float64(skipped))
}

func (p *PrometheusRecorder) IncStageTransition(from, to string) {
	if p == nil {
		return
	}
	p.stageTransitions.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) SetTrackedEntities(n int) {
	if p == nil {
		return
	}
	p.trackedEntities.Set(float64(n))
}

func (p *PrometheusRecorder) SetPhase(phase string) {
	if p == nil {
		return
	}
	for _, ph := range phases {
		v := 0.0
		if ph == phase {
			v = 1
		}
		p.phase.WithLabelValues(ph).Set(v)
	}
}

func (p *PrometheusRecorder) ObserveFetch(source string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	p.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
	result := ResultSuccess
	if !success {
		result = ResultFailed
	}
	p.fetchResults.WithLabelValues(source, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRegulations(outcome string) {
	if p == nil {
		return
	}
	p.regulations.WithLabelValues(outcome).Inc()
}
