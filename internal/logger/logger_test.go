package logger

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, cfg LogConfig) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg.Output = &buf
	require.NoError(t, InitWithConfig(cfg))
	t.Cleanup(func() {
		_ = InitWithConfig(LogConfig{Level: "INFO", Format: "json", Output: io.Discard})
	})
	return &buf
}

func TestRiskLogsAtWarn(t *testing.T) {
	buf := captureLogs(t, LogConfig{Level: "WARN", Format: "json"})

	Risk(context.Background(), "SPY", "buy_skipped", "cash", "12.50")
	Info(context.Background(), "not shown")

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"type":"RISK","symbol":"SPY","event_type":"buy_skipped","cash":"12.50"`)
	assert.NotContains(t, out, "not shown")
}

func TestDetailedLoggingFlags(t *testing.T) {
	captureLogs(t, LogConfig{Level: "DEBUG", Format: "text", DetailedLogging: true})
	assert.True(t, IsDebugEnabled())
	assert.False(t, IsTracingEnabled())

	captureLogs(t, LogConfig{Level: "INFO", Format: "text"})
	assert.False(t, IsDebugEnabled())
}
