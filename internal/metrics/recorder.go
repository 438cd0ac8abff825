package metrics

import "time"

// ResultLabel enumerates cycle result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for tracker cycles.
type Recorder interface {
	ObserveCycleDuration(mode string, d time.Duration)
	IncCycleOutcome(mode string, result ResultLabel)
	AddMergeResults(mode string, added, changed, unchanged, skipped int)
	IncStageTransition(from, to string)
	SetTrackedEntities(n int)
	SetPhase(phase string)
	ObserveFetch(source string, d time.Duration, success bool)
	IncRegulations(outcome string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCycleDuration(string, time.Duration) {}
func (NoopRecorder) IncCycleOutcome(string, ResultLabel)        {}
func (NoopRecorder) AddMergeResults(string, int, int, int, int) {}
func (NoopRecorder) IncStageTransition(string, string)          {}
func (NoopRecorder) SetTrackedEntities(int)                     {}
func (NoopRecorder) SetPhase(string)                            {}
func (NoopRecorder) ObserveFetch(string, time.Duration, bool)   {}
func (NoopRecorder) IncRegulations(string)                      {}
