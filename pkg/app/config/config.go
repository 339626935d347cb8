package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"tgrill/pkg/protocol"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// MinPollInterval is the minimum heartbeat interval, the device drops its connection if polled faster.
const MinPollInterval = 5 * time.Second

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration, read from the config file.
// The command line flags --log, --device and --capture (see FlagConfig) override
// the debug flag, the device id and the capture file of the config file.
type Config struct {
	Flag      FlagConfig      `yaml:"-"`
	Device    DeviceConfig    `yaml:"device"`
	Poll      PollConfig      `yaml:"poll"`
	Protocol  ProtocolConfig  `yaml:"protocol"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Capture   CaptureConfig   `yaml:"capture"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	LogLevel   string
	ConfigFile string
	DeviceID   string
	Capture    string
}

// DeviceConfig describes the smoker.
type DeviceConfig struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Manufacturer string        `yaml:"manufacturer"`
	Model        string        `yaml:"model"`
	UnitString   string        `yaml:"unit"`
	Unit         protocol.Unit `yaml:"-"`
}

// PollConfig defines the heartbeat. Interval is given in seconds, spacing in milliseconds.
type PollConfig struct {
	IntervalInt int           `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
	SpacingInt  int           `yaml:"spacing"`
	Spacing     time.Duration `yaml:"-"`
}

// ProtocolConfig overrides the byte offsets of the reply sub-packets.
// Probes are the offsets of the internal probe and the food probes 1 to 3, relative to the marker byte.
type ProtocolConfig struct {
	Probes []int           `yaml:"probes"`
	Target int             `yaml:"target"`
	Layout protocol.Layout `yaml:"-"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	ClientID   string `yaml:"clientid"`
	Qos        int    `yaml:"qos"`
	// StateTopic is the topic of the published state, {device_id} is replaced by the device id.
	StateTopic string `yaml:"statetopic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

// CaptureConfig defines the frame capture file. No frames are captured if File is empty.
type CaptureConfig struct {
	File string `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Flag: FlagConfig{},
		Device: DeviceConfig{
			Manufacturer: "Traeger",
			UnitString:   "F",
		},
		Poll: PollConfig{
			IntervalInt: int(MinPollInterval / time.Second),
			SpacingInt:  200,
		},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"state":   true,
				"power":   true,
				"target":  true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "tcp://127.0.0.1:1883",
			StateTopic: "tgrill/{device_id}/state",
		},
	}
}

// LoadConfig reads the config file, applies the command line flags and validates the result.
func (c *Config) LoadConfig() error {
	if c.Flag.ConfigFile != "" {
		if err := c.readConfigFile(); err != nil {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if c.Flag.LogLevel != "" {
		c.Debug.FlagString = c.Flag.LogLevel
	}
	if c.Flag.DeviceID != "" {
		c.Device.ID = c.Flag.DeviceID
	}
	if c.Flag.Capture != "" {
		c.Capture.File = c.Flag.Capture
	}

	if err := c.validate(); err != nil {
		return err
	}

	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

// validate checks the settings and converts them to their runtime types.
func (c *Config) validate() (err error) {
	if c.Device.ID == "" {
		return fmt.Errorf("%w: device id is missing", ErrInvalidConfig)
	}

	if c.Device.Unit, err = protocol.ParseUnit(c.Device.UnitString); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c.Poll.Interval = time.Duration(c.Poll.IntervalInt) * time.Second
	if c.Poll.Interval < MinPollInterval {
		c.Poll.Interval = MinPollInterval
	}
	if c.Poll.SpacingInt < 0 {
		return fmt.Errorf("%w: negative poll spacing %v", ErrInvalidConfig, c.Poll.SpacingInt)
	}
	c.Poll.Spacing = time.Duration(c.Poll.SpacingInt) * time.Millisecond

	if c.MQTT.Qos < 0 || c.MQTT.Qos > 2 {
		return fmt.Errorf("%w: mqtt qos %v", ErrInvalidConfig, c.MQTT.Qos)
	}

	if c.Debug.Flag, err = debugFlag(c.Debug.FlagString); err != nil {
		return err
	}

	return c.setLayout()
}

func (c *Config) setLayout() error {
	c.Protocol.Layout = protocol.DefaultLayout

	if p := c.Protocol.Probes; len(p) > 0 {
		if len(p) != protocol.ProbeCount {
			return fmt.Errorf("%w: %v probe offsets, expected %v", ErrInvalidConfig, len(p), protocol.ProbeCount)
		}
		for i, o := range p {
			if o < 2 {
				return fmt.Errorf("%w: probe offset %v overlaps the marker", ErrInvalidConfig, o)
			}
			c.Protocol.Layout.Probes[i] = o
		}
	}

	if o := c.Protocol.Target; o != 0 {
		if o < 2 {
			return fmt.Errorf("%w: target offset %v overlaps the marker", ErrInvalidConfig, o)
		}
		c.Protocol.Layout.Target = o
	}

	return nil
}

// debugFlag maps a log level name to the flags of the debug package.
func debugFlag(level string) (int, error) {
	switch level {
	case "trace", "full":
		return debug.Full, nil
	case "debug":
		return debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug, nil
	case "standard", "info":
		return debug.Standard, nil
	case "warning":
		return debug.Warning | debug.Error | debug.Fatal, nil
	case "error":
		return debug.Error | debug.Fatal, nil
	case "fatal":
		return debug.Fatal, nil
	}

	return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, level)
}

func (c *Config) setDebugConfig() (err error) {
	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
