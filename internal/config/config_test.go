package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("device:\n  address: http://10.0.0.5/\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5", cfg.Device.Address)
	assert.Equal(t, "http://10.0.0.5/stream", cfg.Panel.StreamURL)
	assert.Equal(t, 5*time.Second, cfg.Sensor.Interval.Duration())
	assert.Equal(t, "0.0.0.0:8080", cfg.Panel.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Ledger.RetentionDays)
	assert.False(t, cfg.MQTT.Enabled())
	assert.Equal(t, 2, cfg.EventBus.GetWorkers())
	assert.Equal(t, 5*time.Second, cfg.GetShutdownTimeout())
}

func TestParse_Overrides(t *testing.T) {
	data := `
device:
  address: http://cam.local
  timeout: 3s
panel:
  addr: 127.0.0.1:9000
  stream_url: http://cam.local:81/stream
sensor:
  interval: 2s
mqtt:
  broker: tcp://broker:1883
log:
  level: DEBUG
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Device.Timeout.Duration())
	assert.Equal(t, "127.0.0.1:9000", cfg.Panel.Addr)
	assert.Equal(t, "http://cam.local:81/stream", cfg.Panel.StreamURL)
	assert.Equal(t, 2*time.Second, cfg.Sensor.Interval.Duration())
	assert.True(t, cfg.MQTT.Enabled())
	assert.Equal(t, "debug", cfg.Log.GetLevel())
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("ESPANEL_DEVICE", "http://from-env")

	cfg, err := Parse([]byte("device:\n  address: ${ESPANEL_DEVICE}\ndatabase:\n  path: ${ESPANEL_DB:/tmp/panel.db}\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://from-env", cfg.Device.Address)
	assert.Equal(t, "/tmp/panel.db", cfg.Database.Path)
}

func TestParse_MissingDevice(t *testing.T) {
	_, err := Parse([]byte("panel:\n  addr: \":8080\"\n"))
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestParse_BadDuration(t *testing.T) {
	_, err := Parse([]byte("device:\n  address: http://x\nsensor:\n  interval: soon\n"))
	assert.Error(t, err)
}
