package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tgrill/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/womat/debug"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tgrill.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeConfig(t, `
device:
  id: smoker1
  name: Backyard
  unit: celsius
poll:
  interval: 10
  spacing: 300
protocol:
  probes: [20, 2, 5, 8]
mqtt:
  connection: tcp://broker:1883
  username: grill
  qos: 1
  statetopic: home/{device_id}
webserver:
  url: http://0.0.0.0:5000
  webservices:
    version: true
    power: false
capture:
  file: /tmp/frames.cbor
`)

	require.NoError(t, c.LoadConfig())

	assert.Equal(t, "smoker1", c.Device.ID)
	assert.Equal(t, "Backyard", c.Device.Name)
	assert.Equal(t, "Traeger", c.Device.Manufacturer)
	assert.Equal(t, protocol.Celsius, c.Device.Unit)
	assert.Equal(t, 10*time.Second, c.Poll.Interval)
	assert.Equal(t, 300*time.Millisecond, c.Poll.Spacing)
	assert.Equal(t, [protocol.ProbeCount]int{20, 2, 5, 8}, c.Protocol.Layout.Probes)
	assert.Equal(t, protocol.DefaultLayout.Target, c.Protocol.Layout.Target)
	assert.Equal(t, "tcp://broker:1883", c.MQTT.Connection)
	assert.Equal(t, 1, c.MQTT.Qos)
	assert.Equal(t, "home/{device_id}", c.MQTT.StateTopic)
	assert.False(t, c.Webserver.Webservices["power"])
	assert.Equal(t, "/tmp/frames.cbor", c.Capture.File)
	assert.Equal(t, debug.Standard, c.Debug.Flag)
	assert.Equal(t, os.Stderr, c.Debug.File)
}

func TestLoadConfig_Defaults(t *testing.T) {
	c := NewConfig()
	c.Flag.DeviceID = "smoker1"
	c.Flag.LogLevel = "debug"

	require.NoError(t, c.LoadConfig())

	assert.Equal(t, protocol.Fahrenheit, c.Device.Unit)
	assert.Equal(t, MinPollInterval, c.Poll.Interval)
	assert.Equal(t, 200*time.Millisecond, c.Poll.Spacing)
	assert.Equal(t, protocol.DefaultLayout, c.Protocol.Layout)
	assert.Equal(t, debug.Warning|debug.Info|debug.Error|debug.Fatal|debug.Debug, c.Debug.Flag)
	assert.True(t, c.Webserver.Webservices["state"])
}

func TestLoadConfig_IntervalFloor(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeConfig(t, "device:\n  id: smoker1\npoll:\n  interval: 1\n")

	require.NoError(t, c.LoadConfig())
	assert.Equal(t, MinPollInterval, c.Poll.Interval)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeConfig(t, "device:\n  id: smoker1\ndebug:\n  flag: trace\ncapture:\n  file: a.cbor\n")
	c.Flag.DeviceID = "smoker2"
	c.Flag.LogLevel = "error"
	c.Flag.Capture = "b.cbor"

	require.NoError(t, c.LoadConfig())
	assert.Equal(t, "smoker2", c.Device.ID)
	assert.Equal(t, debug.Error|debug.Fatal, c.Debug.Flag)
	assert.Equal(t, "b.cbor", c.Capture.File)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"missing device id", "device:\n  unit: F\n"},
		{"unknown unit", "device:\n  id: x\n  unit: kelvin\n"},
		{"qos", "device:\n  id: x\nmqtt:\n  qos: 3\n"},
		{"log level", "device:\n  id: x\ndebug:\n  flag: verbose\n"},
		{"probe count", "device:\n  id: x\nprotocol:\n  probes: [20, 3]\n"},
		{"probe offset", "device:\n  id: x\nprotocol:\n  probes: [20, 3, 6, 1]\n"},
		{"spacing", "device:\n  id: x\npoll:\n  spacing: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			c.Flag.ConfigFile = writeConfig(t, tt.config)
			assert.ErrorIs(t, c.LoadConfig(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")

	err := c.LoadConfig()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig_DebugFile(t *testing.T) {
	c := NewConfig()
	c.Flag.DeviceID = "smoker1"
	c.Debug.FileString = filepath.Join(t.TempDir(), "tgrill.log")

	require.NoError(t, c.LoadConfig())
	require.NotNil(t, c.Debug.File)
	assert.NoError(t, c.Debug.File.Close())
}
