package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder_AllMethods_NoPanic(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncItemVisit("render")
	r.IncItemFailure("render")
	r.ObserveProcessorDuration("render", time.Second)
	r.ObserveBuildDuration(time.Second)
	r.IncBuildOutcome("success")
}

func TestPrometheusRecorder_CountsVisitsPerProcessor(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncItemVisit("render")
	pr.IncItemVisit("render")
	pr.IncItemVisit("pdf")
	pr.IncItemFailure("pdf")
	pr.IncBuildOutcome("success")

	require.Equal(t, float64(2), testutil.ToFloat64(pr.itemVisits.WithLabelValues("render")))
	require.Equal(t, float64(1), testutil.ToFloat64(pr.itemVisits.WithLabelValues("pdf")))
	require.Equal(t, float64(1), testutil.ToFloat64(pr.itemFailures.WithLabelValues("pdf")))
	require.Equal(t, float64(1), testutil.ToFloat64(pr.buildOutcome.WithLabelValues("success")))
}

func TestPrometheusRecorder_Handler_NotNil(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	require.NotNil(t, pr.Handler())
}
