// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config is the YAML configuration of the command line tool.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GermanBionicSystems/oledtwi/ssd1306"
	"github.com/GermanBionicSystems/oledtwi/twi"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// Backends.
const (
	// BackendSim runs against a simulated panel.
	BackendSim = "sim"
	// BackendGPIO bit-bangs the bus on two GPIO lines.
	BackendGPIO = "gpio"
)

// PinsConfig names the lines used by the gpio backend, as known to gpioreg.
type PinsConfig struct {
	SDA string `yaml:"sda"`
	SCL string `yaml:"scl"`
}

// BusConfig configures the bus master.
type BusConfig struct {
	SpeedHz int64 `yaml:"speed_hz"`
	CPUHz   int64 `yaml:"cpu_hz"`
	// Settle is waited after the bus is enabled. Unset means
	// twi.DefaultOpts.Settle.
	Settle *time.Duration `yaml:"settle"`
	// MaxPolls bounds the wait for each phase. 0 waits forever.
	MaxPolls int `yaml:"max_polls"`
	// Latency is the number of busy polls of the simulator per phase.
	Latency int `yaml:"latency"`
}

// DisplayConfig configures the panel.
type DisplayConfig struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Address uint16 `yaml:"address"`
	// Polarity is "complement" or "normal".
	Polarity string `yaml:"polarity"`
	// Addressing is "horizontal", "vertical" or "page".
	Addressing string `yaml:"addressing"`
	// Contrast and PowerOnDelay are pointers so that an explicit 0 is kept.
	Contrast         *uint8         `yaml:"contrast"`
	Offset           uint8          `yaml:"offset"`
	Retries          int            `yaml:"retries"`
	PowerOnDelay     *time.Duration `yaml:"power_on_delay"`
	Sequential       bool           `yaml:"sequential"`
	SwapTopBottom    bool           `yaml:"swap_top_bottom"`
	MirrorVertical   bool           `yaml:"mirror_vertical"`
	MirrorHorizontal bool           `yaml:"mirror_horizontal"`
	ExternalVCC      bool           `yaml:"external_vcc"`
}

// Config is the top-level configuration.
type Config struct {
	Backend string        `yaml:"backend"`
	Pins    PinsConfig    `yaml:"pins"`
	Bus     BusConfig     `yaml:"bus"`
	Display DisplayConfig `yaml:"display"`
	// RefreshCron is the standard cron schedule of the clock command.
	RefreshCron string `yaml:"refresh"`
}

// Default returns the configuration of a 128x64 panel at 0x3C on a 100kHz
// bus, simulated.
func Default() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in zero values and unset pointers with defaults.
func (c *Config) Normalize() {
	if c.Backend == "" {
		c.Backend = BackendSim
	}
	if c.Pins.SDA == "" {
		c.Pins.SDA = "GPIO2"
	}
	if c.Pins.SCL == "" {
		c.Pins.SCL = "GPIO3"
	}
	if c.Bus.SpeedHz == 0 {
		c.Bus.SpeedHz = int64(twi.DefaultOpts.Speed / physic.Hertz)
	}
	if c.Bus.CPUHz == 0 {
		c.Bus.CPUHz = int64(twi.DefaultOpts.CPU / physic.Hertz)
	}
	if c.Bus.Settle == nil {
		v := twi.DefaultOpts.Settle
		c.Bus.Settle = &v
	}
	d := &c.Display
	if d.Width == 0 {
		d.Width = ssd1306.DefaultOpts.W
	}
	if d.Height == 0 {
		d.Height = ssd1306.DefaultOpts.H
	}
	if d.Address == 0 {
		d.Address = ssd1306.DefaultOpts.Addr
	}
	if d.Polarity == "" {
		d.Polarity = "complement"
	}
	if d.Addressing == "" {
		d.Addressing = "horizontal"
	}
	if d.Contrast == nil {
		v := ssd1306.DefaultOpts.Contrast
		d.Contrast = &v
	}
	if d.PowerOnDelay == nil {
		v := ssd1306.DefaultOpts.PowerOnDelay
		d.PowerOnDelay = &v
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "* * * * *"
	}
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSim, BackendGPIO:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Bus.MaxPolls < 0 || c.Bus.Latency < 0 {
		return errors.New("config: negative bus polls")
	}
	if _, err := c.DisplayOpts(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: refresh: %w", err)
	}
	return nil
}

// TWIOpts returns the bus master options.
func (c *Config) TWIOpts() *twi.Opts {
	o := &twi.Opts{
		Name:   twi.DefaultOpts.Name,
		Speed:  physic.Frequency(c.Bus.SpeedHz) * physic.Hertz,
		CPU:    physic.Frequency(c.Bus.CPUHz) * physic.Hertz,
		Settle: twi.DefaultOpts.Settle,
		Wait:   twi.Spin,
	}
	if c.Bus.Settle != nil {
		o.Settle = *c.Bus.Settle
	}
	if c.Bus.MaxPolls > 0 {
		o.Wait = twi.Bounded(c.Bus.MaxPolls)
	}
	return o
}

// DisplayOpts returns the display options.
func (c *Config) DisplayOpts() (*ssd1306.Opts, error) {
	d := &c.Display
	o := ssd1306.DefaultOpts
	o.W = d.Width
	o.H = d.Height
	o.Addr = d.Address
	if d.Contrast != nil {
		o.Contrast = *d.Contrast
	}
	o.Offset = d.Offset
	o.Retries = d.Retries
	if d.PowerOnDelay != nil {
		o.PowerOnDelay = *d.PowerOnDelay
	}
	o.Sequential = d.Sequential
	o.SwapTopBottom = d.SwapTopBottom
	o.MirrorVertical = d.MirrorVertical
	o.MirrorHorizontal = d.MirrorHorizontal
	o.ExternalVCC = d.ExternalVCC
	switch strings.ToLower(d.Polarity) {
	case "complement":
		o.Polarity = ssd1306.Complement
	case "normal":
		o.Polarity = ssd1306.Normal
	default:
		return nil, fmt.Errorf("config: unknown polarity %q", d.Polarity)
	}
	switch strings.ToLower(d.Addressing) {
	case "horizontal":
		o.Addressing = ssd1306.Horizontal
	case "vertical":
		o.Addressing = ssd1306.Vertical
	case "page":
		o.Addressing = ssd1306.Page
	default:
		return nil, fmt.Errorf("config: unknown addressing %q", d.Addressing)
	}
	if d.Retries < 0 {
		return nil, errors.New("config: negative retries")
	}
	return &o, nil
}

// Load reads the configuration at path.
//
// On first run the file does not exist: the defaults are written there with
// 0600 permissions and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return cfg, Save(path, cfg)
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path atomically, through a temporary file renamed over
// the target.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".oledtwi-config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.Chmod(name, 0o600); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Save writes c to path.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
