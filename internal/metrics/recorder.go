// Package metrics defines observability hooks for the build pipeline.
package metrics

import "time"

// Recorder receives build and processor metrics. Implementations may forward
// to Prometheus or elsewhere; injection is optional and defaults to the noop.
type Recorder interface {
	IncItemVisit(processor string)
	IncItemFailure(processor string)
	ObserveProcessorDuration(processor string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // success|failed
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncItemVisit(string)                            {}
func (NoopRecorder) IncItemFailure(string)                          {}
func (NoopRecorder) ObserveProcessorDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)             {}
func (NoopRecorder) IncBuildOutcome(string)                         {}
