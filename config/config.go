// The config package reads the configuration of the gnssdecode tool.  The
// file may be JSON, YAML or TOML, chosen by its extension.  An example in
// JSON:
//
//	{
//		"filenames": ["/dev/ttyACM0", "/dev/ttyACM1"],
//		"speed": 115200,
//		"parity": "no_parity",
//		"data_bits": 8,
//		"stop_bits": 1,
//		"initial_status_bits": ["dtr", "rts"],
//		"read_timeout_milliseconds": 5000,
//		"sleep_time_after_failed_open_milliseconds": 1000,
//		"sleep_time_on_EOF_millis": 1000,
//		"protocols": ["RTCMv3", "SBF"],
//		"raw_rtcm3": [1077, 1087],
//		"raw_log_directory": "/var/log/gnss",
//		"log_level": "info",
//		"stats_schedule": "@every 1m"
//	}
//
// The filenames are the possible names of the serial USB device.  On a
// Raspberry Pi a device that drops out and comes back reappears under the
// next name, so all of them should be listed.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron"
	"go.bug.st/serial"
	"gopkg.in/yaml.v3"

	"github.com/goblimey/go-gnssparser/gnss/asv"
	"github.com/goblimey/go-gnssparser/gnss/rtcm2"
	"github.com/goblimey/go-gnssparser/gnss/rtcm3"
	"github.com/goblimey/go-gnssparser/gnss/sbf"
)

// Format is the syntax of a config file.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// DefaultSpeed is the line speed used if the config doesn't give one.
const DefaultSpeed = 9600

// Protocols lists the protocol IDs that the config may enable, in the order
// that the parsers are tried.
var Protocols = []string{rtcm3.ProtocolID, sbf.ProtocolID, asv.ProtocolID, rtcm2.ProtocolID}

// Config holds the values from the config file.
type Config struct {

	// These values are used to set the mode struct for serial.Open.

	// Speed is the line speed in bits per second.
	Speed int `json:"speed" yaml:"speed" toml:"speed"`

	// Parity is the parity of the incoming bytes - no_parity (default),
	// odd_parity, even_parity, mark_parity or space_parity.
	Parity string `json:"parity" yaml:"parity" toml:"parity"`

	// DataBits is the number of data bits in the byte: 5-8.
	DataBits int `json:"data_bits" yaml:"data_bits" toml:"data_bits"`

	// StopBits is the number of stop bits 1, 1.5 or 2.
	StopBits float32 `json:"stop_bits" yaml:"stop_bits" toml:"stop_bits"`

	// InitialStatusBits contains zero to two values, "dtr" and "rts",
	// which set DTR and RTS true when the port is opened.
	InitialStatusBits []string `json:"initial_status_bits" yaml:"initial_status_bits" toml:"initial_status_bits"`

	mode serial.Mode

	// These values control the handling of connections that dry up
	// or get closed.

	// ReadTimeoutMilliSeconds is the read timeout of the serial port.
	ReadTimeoutMilliSeconds int `json:"read_timeout_milliseconds" yaml:"read_timeout_milliseconds" toml:"read_timeout_milliseconds"`

	// SleepTimeAfterFailedOpenMilliSeconds is the time to sleep after a
	// failed attempt to find and open a port before retrying.
	SleepTimeAfterFailedOpenMilliSeconds int `json:"sleep_time_after_failed_open_milliseconds" yaml:"sleep_time_after_failed_open_milliseconds" toml:"sleep_time_after_failed_open_milliseconds"`

	// SleepTimeOnEOFMilliseconds is the time to sleep after the input
	// dries up before trying to reopen it.
	SleepTimeOnEOFMilliseconds int `json:"sleep_time_on_EOF_millis" yaml:"sleep_time_on_EOF_millis" toml:"sleep_time_on_EOF_millis"`

	// Filenames is a list of potential device names of the serial USB
	// port, for example "/dev/ttyACM0", "/dev/ttyACM1".  For Windows
	// "COM4", "COM5" etc.
	Filenames []string `json:"filenames" yaml:"filenames" toml:"filenames"`

	// Protocols lists the protocols to decode.  Empty means all of them.
	Protocols []string `json:"protocols" yaml:"protocols" toml:"protocols"`

	// RawRTCM3 lists the RTCM3 message numbers whose frames are logged
	// undecoded.
	RawRTCM3 []uint16 `json:"raw_rtcm3" yaml:"raw_rtcm3" toml:"raw_rtcm3"`

	// RawLogDirectory, if set, is the directory for the daily logs of the
	// RTCM3 frames listed in RawRTCM3.
	RawLogDirectory string `json:"raw_log_directory" yaml:"raw_log_directory" toml:"raw_log_directory"`

	// LogLevel is debug, info (default), warn or error.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`

	// StatsSchedule is a cron spec for logging the counters, for example
	// "@every 1m" or "0 0 * * * *".  Empty means never.
	StatsSchedule string `json:"stats_schedule" yaml:"stats_schedule" toml:"stats_schedule"`

	level slog.Level
}

// FormatOf returns the format implied by the extension of fileName.
func FormatOf(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	default:
		return "", fmt.Errorf("config: %s - the file name must end .json, .yaml, .yml or .toml", fileName)
	}
}

// Load reads the config file.
func Load(fileName string) (*Config, error) {
	format, err := FormatOf(fileName)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s - %w", fileName, err)
	}

	config, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}

	return config, nil
}

// Parse parses a config and checks the values.
func Parse(data []byte, format Format) (*Config, error) {
	var config Config

	var err error
	switch format {
	case JSON:
		err = json.Unmarshal(data, &config)
	case YAML:
		err = yaml.Unmarshal(data, &config)
	case TOML:
		_, err = toml.Decode(string(data), &config)
	default:
		return nil, fmt.Errorf("config: unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("config: cannot parse %s - %w", format, err)
	}

	if err := config.setUp(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setUp checks the values and sets the fields derived from them.
func (config *Config) setUp() error {
	config.mode.BaudRate = DefaultSpeed
	if config.Speed != 0 {
		config.mode.BaudRate = config.Speed
	}

	if len(config.Parity) > 0 {
		switch config.Parity {
		case "no_parity":
			config.mode.Parity = serial.NoParity
		case "odd_parity":
			config.mode.Parity = serial.OddParity
		case "even_parity":
			config.mode.Parity = serial.EvenParity
		case "mark_parity":
			config.mode.Parity = serial.MarkParity
		case "space_parity":
			config.mode.Parity = serial.SpaceParity
		default:
			return errors.New("config: illegal parity value " + config.Parity)
		}
	}

	// Must be 5-8.
	if config.DataBits > 0 {
		if !(config.DataBits >= 5 && config.DataBits <= 8) {
			return fmt.Errorf("config: data bits must be 5-8, got %d", config.DataBits)
		}
		config.mode.DataBits = config.DataBits
	}

	if config.StopBits > 0 {
		switch config.StopBits {
		case 1:
			config.mode.StopBits = serial.OneStopBit
		case 1.5:
			config.mode.StopBits = serial.OnePointFiveStopBits
		case 2:
			config.mode.StopBits = serial.TwoStopBits
		default:
			return fmt.Errorf("config: stop bit value must be 1, 1.5 or 2.  Got %g", config.StopBits)
		}
	}

	if len(config.InitialStatusBits) > 0 {
		var bits serial.ModemOutputBits
		config.mode.InitialStatusBits = &bits
		for _, b := range config.InitialStatusBits {
			switch strings.ToLower(b) {
			case "dtr":
				bits.DTR = true
			case "rts":
				bits.RTS = true
			default:
				return errors.New("config: illegal initial status bit value " + b)
			}
		}
	}

	for _, p := range config.Protocols {
		if !slices.Contains(Protocols, p) {
			return fmt.Errorf("config: unknown protocol %q - want one of %s",
				p, strings.Join(Protocols, ", "))
		}
	}

	for _, n := range config.RawRTCM3 {
		if n == 0 || n > 4095 {
			return fmt.Errorf("config: RTCM3 message number %d out of range 1-4095", n)
		}
	}

	config.level = slog.LevelInfo
	if len(config.LogLevel) > 0 {
		if err := config.level.UnmarshalText([]byte(config.LogLevel)); err != nil {
			return fmt.Errorf("config: illegal log level %q", config.LogLevel)
		}
	}

	if len(config.StatsSchedule) > 0 {
		if _, err := cron.Parse(config.StatsSchedule); err != nil {
			return fmt.Errorf("config: illegal stats schedule %q - %w", config.StatsSchedule, err)
		}
	}

	return nil
}

// Mode returns the mode to pass to serial.Open.
func (config *Config) Mode() *serial.Mode {
	return &config.mode
}

// Level returns the log level.
func (config *Config) Level() slog.Level {
	return config.level
}

// ProtocolEnabled returns true if the config asks for the protocol to be
// decoded.
func (config *Config) ProtocolEnabled(protocolID string) bool {
	if len(config.Protocols) == 0 {
		return true
	}
	return slices.Contains(config.Protocols, protocolID)
}

// ReadTimeout returns the serial port read timeout.  Zero means block.
func (config *Config) ReadTimeout() time.Duration {
	return time.Duration(config.ReadTimeoutMilliSeconds) * time.Millisecond
}

// SleepTimeAfterFailedOpen returns the time to wait before looking for the
// device again.
func (config *Config) SleepTimeAfterFailedOpen() time.Duration {
	return time.Duration(config.SleepTimeAfterFailedOpenMilliSeconds) * time.Millisecond
}

// SleepTimeOnEOF returns the time to wait after the input dries up.
func (config *Config) SleepTimeOnEOF() time.Duration {
	return time.Duration(config.SleepTimeOnEOFMilliseconds) * time.Millisecond
}
