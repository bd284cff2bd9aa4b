package observ

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestPrometheusJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusJobMetrics(reg, "test")

	m.ObserveRun("auto_return", ResultSuccess, 3, 20*time.Millisecond)
	m.ObserveRun("auto_return", ResultSuccess, 2, 10*time.Millisecond)
	m.ObserveRun("auto_return", ResultFailure, 0, time.Millisecond)
	m.ObserveRun("auto_return", ResultSkipped, 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("auto_return", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("auto_return", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("auto_return", ResultSkipped)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.rows.WithLabelValues("auto_return")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_jobs_run_duration_seconds")
	assert.Contains(t, names, "test_jobs_last_success_timestamp_seconds")
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("development", "not-a-level")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
