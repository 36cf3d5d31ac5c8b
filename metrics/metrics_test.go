package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.UnitFinished("bulk", false, 0, 120)
	r.UnitFinished("tuple", false, 3, 300)
	r.UnitFinished("tuple", true, 1, 10)
	r.JobFinished("failed", 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.units.WithLabelValues("bulk", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.units.WithLabelValues("tuple", OutcomeFailure)))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.statements))
	assert.Equal(t, 430.0, testutil.ToFloat64(r.bytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobs.WithLabelValues("failed")))

	count, err := testutil.GatherAndCount(reg, "rdf_export_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)

	_, err = NewRecorder(reg)
	assert.Error(t, err)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.UnitFinished("bulk", false, 1, 1)
		r.JobFinished("completed", time.Second)
	})
}
