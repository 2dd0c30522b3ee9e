package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// No config file in a fresh temp dir: everything comes from defaults.
	require.NoError(t, LoadConfig(t.TempDir()))
	cfg := AppConfig

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, 0.2, cfg.Pipeline.Epsilon)
	assert.Equal(t, 30, cfg.Pipeline.FlushIntervalSecs)
	assert.Equal(t, 500, cfg.Pipeline.RetentionCap)
	assert.Equal(t, 50, cfg.Pipeline.PruneBatch)

	// The threshold table must unmarshal into the typed maps.
	require.Contains(t, cfg.Thresholds.Temperature, "fria")
	require.Contains(t, cfg.Thresholds.Temperature["fria"], "dia")
	assert.Equal(t, Rule{Low: 26, High: 28}, cfg.Thresholds.Temperature["fria"]["dia"])
	assert.Equal(t, Rule{Low: 30, High: 50}, cfg.Thresholds.Humidity["normal"])
	assert.Equal(t, Rule{Low: 50, High: 70}, cfg.Thresholds.Humidity["muda"])
	require.Contains(t, cfg.Thresholds.UVLight, "noche")
	assert.Equal(t, Rule{Low: 0, High: 0.1}, cfg.Thresholds.UVLight["noche"])
}
