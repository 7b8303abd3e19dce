// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GermanBionicSystems/oledtwi/ssd1306"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, BackendSim, c.Backend)
	require.NotNil(t, c.Bus.Settle)
	assert.Equal(t, 100*time.Millisecond, *c.Bus.Settle)

	o := c.TWIOpts()
	assert.Equal(t, 100*physic.KiloHertz, o.Speed)
	assert.Equal(t, 16*physic.MegaHertz, o.CPU)
	assert.Equal(t, "TWI0", o.Name)

	d, err := c.DisplayOpts()
	require.NoError(t, err)
	assert.Equal(t, ssd1306.DefaultOpts, *d)
}

func TestLoad_firstRun(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "config.yaml")
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	fi, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	// Read back what was written.
	c2, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, c, c2)
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	data := `backend: gpio
pins:
  sda: GPIO17
bus:
  speed_hz: 400000
  max_polls: 1000
display:
  height: 32
  address: 0x3D
  polarity: Normal
  addressing: page
  retries: 2
  power_on_delay: 100ms
  sequential: true
refresh: "*/5 * * * *"
`
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, BackendGPIO, c.Backend)
	assert.Equal(t, "GPIO17", c.Pins.SDA)
	assert.Equal(t, "GPIO3", c.Pins.SCL)
	assert.Equal(t, 400*physic.KiloHertz, c.TWIOpts().Speed)
	assert.NotNil(t, c.TWIOpts().Wait)

	d, err := c.DisplayOpts()
	require.NoError(t, err)
	assert.Equal(t, 128, d.W)
	assert.Equal(t, 32, d.H)
	assert.Equal(t, uint16(0x3D), d.Addr)
	assert.Equal(t, ssd1306.Normal, d.Polarity)
	assert.Equal(t, ssd1306.Page, d.Addressing)
	assert.Equal(t, 2, d.Retries)
	assert.Equal(t, 100*time.Millisecond, d.PowerOnDelay)
	assert.True(t, d.Sequential)
	assert.Equal(t, "*/5 * * * *", c.RefreshCron)
}

func TestLoad_unset(t *testing.T) {
	// Omitted keys get the defaults.
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("backend: gpio\n"), 0o600))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, c.TWIOpts().Settle)
	d, err := c.DisplayOpts()
	require.NoError(t, err)
	assert.Equal(t, ssd1306.DefaultOpts.PowerOnDelay, d.PowerOnDelay)
	assert.Equal(t, uint8(0x7F), d.Contrast)
}

func TestLoad_zero(t *testing.T) {
	// Explicit zeros are kept.
	p := filepath.Join(t.TempDir(), "config.yaml")
	data := `bus:
  settle: 0s
display:
  contrast: 0
  power_on_delay: 0s
`
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), c.TWIOpts().Settle)
	d, err := c.DisplayOpts()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), d.Contrast)
	assert.Equal(t, time.Duration(0), d.PowerOnDelay)

	// And survive a round trip through Save.
	require.NoError(t, c.Save(p))
	c2, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, c, c2)
}

func TestLoad_invalid(t *testing.T) {
	data := map[string]string{
		"backend":    "backend: spi\n",
		"polarity":   "display:\n  polarity: inverse\n",
		"addressing": "display:\n  addressing: diagonal\n",
		"retries":    "display:\n  retries: -1\n",
		"refresh":    "refresh: every minute\n",
		"polls":      "bus:\n  max_polls: -1\n",
		"yaml":       "display: [\n",
	}
	for name, s := range data {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(p, []byte(s), 0o600))
			_, err := Load(p)
			assert.Error(t, err)
		})
	}
}

func TestSave(t *testing.T) {
	assert.Error(t, Save("", Default()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
	_, err := Load("")
	assert.Error(t, err)

	p := filepath.Join(t.TempDir(), "c.yaml")
	c := &Config{Backend: BackendGPIO}
	require.NoError(t, c.Save(p))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: gpio")
	assert.Contains(t, string(data), "polarity: complement")
}
