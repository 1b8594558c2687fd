package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsSplitsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "enrollment-expiry-reminder"

	m.ObserveRun(job, 250*time.Millisecond, nil)
	m.ObserveRun(job, time.Second, errors.New("smtp down"))
	m.ObserveRun(job, 100*time.Millisecond, nil)
	m.CycleSkipped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(job, outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, outcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues(job)), 0.0)

	count, err := testutil.GatherAndCount(reg, "academia_cron_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCronJobMetricsFailureLeavesLastSuccessUnset(t *testing.T) {
	m := NewCronJobMetrics(prometheus.NewRegistry())
	m.ObserveRun("", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", outcomeFailure)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastSuccess.WithLabelValues("unknown")))
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	var m *CronJobMetrics
	assert.NotPanics(t, func() {
		m.ObserveRun("job", time.Second, nil)
		m.CycleSkipped()
	})
	assert.Nil(t, NewCronJobMetrics(nil))
}
