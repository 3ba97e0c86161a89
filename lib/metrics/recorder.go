// Package metrics records build and render observations.
package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Result maps an error to its label.
func Result(err error) ResultLabel {
	if err != nil {
		return ResultFailed
	}
	return ResultSuccess
}

// Recorder defines observability hooks for builds and page renders.
type Recorder interface {
	ObserveRender(format string, d time.Duration, result ResultLabel)
	AddFragments(kind string, n int)
	ObserveBuild(d time.Duration, pages int, result ResultLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRender(string, time.Duration, ResultLabel) {}
func (NoopRecorder) AddFragments(string, int)                         {}
func (NoopRecorder) ObserveBuild(time.Duration, int, ResultLabel)     {}
