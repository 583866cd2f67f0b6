package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bonvoyage/voyage/internal/config"
	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutOutput(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "voyage"})
	assert.Error(t, err)
}

func TestNew_WritesLogsToFile(t *testing.T) {
	var buf bytes.Buffer
	cfg := FromConfig(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "voyage-test",
		BatchTimeout: time.Second,
	}, &buf)

	p, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())
	assert.True(t, p.Enabled())

	lm := logging.NewSlogManager()
	lm.Setup(&bytes.Buffer{}, "info", p.LoggerProvider())
	lm.Logger().Info("vehicle arrived", "vehicle", "v1")

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "vehicle arrived")
	assert.Contains(t, buf.String(), "voyage-test")

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestFromConfig(t *testing.T) {
	var buf bytes.Buffer
	cfg := FromConfig(config.OTelConfig{Enabled: true, Endpoint: "collector:4318", Insecure: true}, &buf)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Same(t, &buf, cfg.LogWriter)
}
