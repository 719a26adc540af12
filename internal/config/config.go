// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/gnss_overlay/internal/camera"
	"github.com/relabs-tech/gnss_overlay/internal/detect"
	"github.com/relabs-tech/gnss_overlay/internal/display"
	"github.com/relabs-tech/gnss_overlay/internal/sentence"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "gnss_overlay.yaml"

// Config holds all application configuration values.
type Config struct {
	GPS              GPSConfig              `yaml:"gps"`
	FlightController FlightControllerConfig `yaml:"flight_controller"`
	Camera           CameraConfig           `yaml:"camera"`
	Detector         DetectorConfig         `yaml:"detector"`
	Display          DisplayConfig          `yaml:"display"`
	MQTT             MQTTConfig             `yaml:"mqtt"`
	Web              WebConfig              `yaml:"web"`
	Panel            PanelConfig            `yaml:"panel"`
	Sim              SimConfig              `yaml:"sim"`
}

// GPSConfig is the receiver serial port and the producer cadence.
type GPSConfig struct {
	Device         string        `yaml:"device"`
	Baud           int           `yaml:"baud"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	Format         string        `yaml:"format"`
	VerifyChecksum bool          `yaml:"verify_checksum"`
	LogPath        string        `yaml:"log_path"`

	// Each fix is sent RepeatCount times, RepeatInterval apart. An explicit
	// zero interval sends them back to back.
	RepeatCount    int            `yaml:"repeat_count"`
	RepeatInterval *time.Duration `yaml:"repeat_interval"`

	StatsInterval time.Duration `yaml:"stats_interval"`
}

// FlightControllerConfig is the MAVLink endpoint. UDPAddress overrides the
// serial device.
type FlightControllerConfig struct {
	Device           string        `yaml:"device"`
	Baud             int           `yaml:"baud"`
	UDPAddress       string        `yaml:"udp_address"`
	SystemID         int           `yaml:"system_id"`
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
}

// CameraConfig selects the video source.
type CameraConfig struct {
	Source      string         `yaml:"source"` // csi, device or file
	DeviceID    int            `yaml:"device_id"`
	File        string         `yaml:"file"`
	CSI         camera.Options `yaml:"csi"`
	TargetWidth int            `yaml:"target_width"`
}

// DetectorConfig loads the object detector. An empty model disables it.
type DetectorConfig struct {
	Model        string   `yaml:"model"`
	Version      string   `yaml:"version"`
	Confidence   float32  `yaml:"confidence"`
	NMSThreshold float32  `yaml:"nms_threshold"`
	InputSize    int      `yaml:"input_size"`
	Labels       []string `yaml:"labels"`
	CUDA         bool     `yaml:"cuda"`
}

// DisplayConfig tunes the output window and the frame loop.
type DisplayConfig struct {
	Headless               bool          `yaml:"headless"`
	Title                  string        `yaml:"title"`
	RenderMode             string        `yaml:"render_mode"`
	DrawDetections         bool          `yaml:"draw_detections"`
	RetryDelay             time.Duration `yaml:"retry_delay"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
}

// MQTTConfig enables the fix publisher and subscribers when Broker is set.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	Topic          string        `yaml:"topic"`
	ClientIDPrefix string        `yaml:"client_id_prefix"`
	QoS            byte          `yaml:"qos"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// WebConfig enables the status server when Listen is set.
type WebConfig struct {
	Listen string `yaml:"listen"`
}

// PanelConfig drives the optional SSD1306 OLED.
type PanelConfig struct {
	Enable   bool          `yaml:"enable"`
	I2CBus   string        `yaml:"i2c_bus"`
	Address  uint16        `yaml:"address"`
	Interval time.Duration `yaml:"interval"`
}

// SimConfig drives cmd/gps_sim.
type SimConfig struct {
	CenterLat float64       `yaml:"center_lat"`
	CenterLon float64       `yaml:"center_lon"`
	RadiusDeg float64       `yaml:"radius_deg"`
	Interval  time.Duration `yaml:"interval"`
	Device    string        `yaml:"device"`
	Baud      int           `yaml:"baud"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the YAML file, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML config contents.
func Parse(b []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when every key is left unset.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.GPS.Device == "" {
		c.GPS.Device = "/dev/ttyUSB1"
	}
	if c.GPS.Baud == 0 {
		c.GPS.Baud = 115200
	}
	if c.GPS.ReadTimeout <= 0 {
		c.GPS.ReadTimeout = time.Second
	}
	if c.GPS.LogPath == "" {
		c.GPS.LogPath = sentence.DefaultLogPath
	}
	if c.GPS.RepeatCount == 0 {
		c.GPS.RepeatCount = 5
	}
	if c.GPS.RepeatInterval == nil {
		d := 150 * time.Millisecond
		c.GPS.RepeatInterval = &d
	}
	if c.GPS.StatsInterval <= 0 {
		c.GPS.StatsInterval = 30 * time.Second
	}

	if c.FlightController.Device == "" {
		c.FlightController.Device = "/dev/ttyUSB0"
	}
	if c.FlightController.Baud == 0 {
		c.FlightController.Baud = 115200
	}
	if c.FlightController.SystemID == 0 {
		c.FlightController.SystemID = 255
	}
	if c.FlightController.HeartbeatTimeout <= 0 {
		c.FlightController.HeartbeatTimeout = 10 * time.Second
	}

	if c.Camera.Source == "" {
		c.Camera.Source = "csi"
	}
	c.Camera.CSI = c.Camera.CSI.WithDefaults()
	if c.Camera.TargetWidth == 0 {
		c.Camera.TargetWidth = 600
	}

	if c.Detector.Version == "" {
		c.Detector.Version = string(detect.V7)
	}
	if c.Detector.Confidence == 0 {
		c.Detector.Confidence = 0.5
	}
	if c.Detector.NMSThreshold == 0 {
		c.Detector.NMSThreshold = 0.45
	}
	if c.Detector.InputSize == 0 {
		c.Detector.InputSize = 640
	}

	if c.Display.Title == "" {
		c.Display.Title = "Output"
	}
	if c.Display.RetryDelay <= 0 {
		c.Display.RetryDelay = display.DefaultOptions.RetryDelay
	}
	if c.Display.MaxConsecutiveFailures == 0 {
		c.Display.MaxConsecutiveFailures = display.DefaultOptions.MaxConsecutiveFailures
	}

	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "gnss/fix"
	}
	if c.MQTT.ClientIDPrefix == "" {
		c.MQTT.ClientIDPrefix = "gnss-overlay"
	}
	if c.MQTT.PublishTimeout <= 0 {
		c.MQTT.PublishTimeout = 2 * time.Second
	}

	if c.Panel.Address == 0 {
		c.Panel.Address = 0x3C
	}
	if c.Panel.Interval <= 0 {
		c.Panel.Interval = 500 * time.Millisecond
	}

	if c.Sim.CenterLat == 0 && c.Sim.CenterLon == 0 {
		c.Sim.CenterLat, c.Sim.CenterLon = 24.1234567, 121.7654321
	}
	if c.Sim.RadiusDeg <= 0 {
		c.Sim.RadiusDeg = 0.001
	}
	if c.Sim.Interval <= 0 {
		c.Sim.Interval = time.Second
	}
	if c.Sim.Baud == 0 {
		c.Sim.Baud = 115200
	}
}

func (c *Config) validate() error {
	if _, err := sentence.ParseFormat(c.GPS.Format); err != nil {
		return fmt.Errorf("gps.format: %w", err)
	}
	if c.GPS.Baud < 0 {
		return fmt.Errorf("gps.baud must be > 0")
	}
	if c.GPS.RepeatCount < 1 {
		return fmt.Errorf("gps.repeat_count must be >= 1")
	}
	if *c.GPS.RepeatInterval < 0 {
		return fmt.Errorf("gps.repeat_interval must be >= 0")
	}
	if c.FlightController.SystemID < 1 || c.FlightController.SystemID > 255 {
		return fmt.Errorf("flight_controller.system_id must be in 1..255")
	}
	switch c.Camera.Source {
	case "csi", "device":
	case "file":
		if c.Camera.File == "" {
			return fmt.Errorf("camera.file is required when camera.source is file")
		}
	default:
		return fmt.Errorf("camera.source must be csi, device or file")
	}
	if c.Camera.TargetWidth < 0 {
		return fmt.Errorf("camera.target_width must be >= 0")
	}
	if _, err := detect.ParseVersion(c.Detector.Version); err != nil {
		return fmt.Errorf("detector.version: %w", err)
	}
	if c.Detector.Confidence <= 0 || c.Detector.Confidence > 1 {
		return fmt.Errorf("detector.confidence must be in (0, 1]")
	}
	if _, err := display.ParseRenderMode(c.Display.RenderMode); err != nil {
		return fmt.Errorf("display.render_mode: %w", err)
	}
	if c.Display.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("display.max_consecutive_failures must be >= 1")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	if c.Panel.Address != 0x3C && c.Panel.Address != 0x3D {
		return fmt.Errorf("panel.address must be 0x3C or 0x3D")
	}
	return nil
}

// SentenceFormat returns the parsed gps.format.
func (c *Config) SentenceFormat() sentence.Format {
	f, _ := sentence.ParseFormat(c.GPS.Format)
	return f
}

// DisplayOptions maps the display section onto the frame loop options.
func (c *Config) DisplayOptions() display.Options {
	mode, _ := display.ParseRenderMode(c.Display.RenderMode)
	return display.Options{
		RenderMode:             mode,
		DrawDetections:         c.Display.DrawDetections,
		RetryDelay:             c.Display.RetryDelay,
		MaxConsecutiveFailures: c.Display.MaxConsecutiveFailures,
	}
}

// DetectorVersion returns the parsed detector.version.
func (c *Config) DetectorVersion() detect.Version {
	v, _ := detect.ParseVersion(c.Detector.Version)
	return v
}

// InitGlobal loads the configuration once for the whole process.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration. InitGlobal must be called first, or
// this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
