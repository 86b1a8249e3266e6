package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/maayanlab/turbogsea/internal/stats"
)

func TestCollector_LogsAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := New(zap.New(core))

	c.IncCounter(stats.MetricSetsScored, 3)
	c.SetGauge(stats.MetricFitCacheSize, 7)
	c.ObserveHistogram(stats.MetricRunSeconds, 1.5)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "counter", entries[0].Message)
	assert.Equal(t, "metrics", entries[0].LoggerName)
	assert.Equal(t, stats.MetricSetsScored, entries[0].ContextMap()["metric"])
	assert.Equal(t, int64(3), entries[0].ContextMap()["delta"])

	assert.Equal(t, "gauge", entries[1].Message)
	assert.Equal(t, int64(7), entries[1].ContextMap()["value"])

	assert.Equal(t, "histogram", entries[2].Message)
	assert.Equal(t, 1.5, entries[2].ContextMap()["value"])
}

func TestNew_NilLogger(t *testing.T) {
	c := New(nil)
	assert.NotPanics(t, func() { c.IncCounter("x", 1) })
}
