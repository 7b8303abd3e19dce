// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"image"

	"github.com/GermanBionicSystems/oledtwi/internal/config"
	"github.com/GermanBionicSystems/oledtwi/internal/log"
	"github.com/GermanBionicSystems/oledtwi/screen2d"
	"github.com/GermanBionicSystems/oledtwi/ssd1306"
	"github.com/GermanBionicSystems/oledtwi/ssd1306/ssd1306test"
	"github.com/GermanBionicSystems/oledtwi/twi"
	"github.com/GermanBionicSystems/oledtwi/twi/bitbang"
	"github.com/GermanBionicSystems/oledtwi/twi/twitest"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// env is an open bus, with the panel simulator when the backend is sim.
type env struct {
	g     *Globals
	cfg   *config.Config
	bus   i2c.BusCloser
	sim   *twitest.Sim
	panel *ssd1306test.Panel
	gpio  *bitbang.Peripheral
	shown bool
}

// openBus loads the configuration and opens the bus through i2creg.
func openBus(g *Globals) (*env, error) {
	if g.Debug {
		log.SetLevel(log.LevelDebug)
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Backend != "" {
		cfg.Backend = g.Backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	e := &env{g: g, cfg: cfg}
	var p twi.Peripheral
	switch cfg.Backend {
	case config.BackendSim:
		e.panel = ssd1306test.New(cfg.Display.Width, cfg.Display.Height)
		e.panel.Address = cfg.Display.Address
		e.sim = twitest.New(e.panel)
		e.sim.Latency = cfg.Bus.Latency
		p = e.sim
	case config.BackendGPIO:
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		sda := gpioreg.ByName(cfg.Pins.SDA)
		if sda == nil {
			return nil, fmt.Errorf("no pin %q", cfg.Pins.SDA)
		}
		scl := gpioreg.ByName(cfg.Pins.SCL)
		if scl == nil {
			return nil, fmt.Errorf("no pin %q", cfg.Pins.SCL)
		}
		if e.gpio, err = bitbang.New(sda, scl, &bitbang.Opts{CPU: cfg.TWIOpts().CPU}); err != nil {
			return nil, err
		}
		p = e.gpio
	}
	o := cfg.TWIOpts()
	opener := func() (i2c.BusCloser, error) {
		return twi.New(p, o)
	}
	if err := i2creg.Register(o.Name, nil, -1, opener); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(o.Name)
	if err != nil {
		_ = i2creg.Unregister(o.Name)
		return nil, err
	}
	e.bus = bus
	log.Debug("bus open", "bus", bus, "backend", cfg.Backend, "speed", o.Speed)
	return e, nil
}

// openDisplay opens the bus and initializes the display on it.
func openDisplay(g *Globals) (*env, *ssd1306.Dev, error) {
	e, err := openBus(g)
	if err != nil {
		return nil, nil, err
	}
	eng, ok := e.bus.(ssd1306.Engine)
	if !ok {
		e.close()
		return nil, nil, fmt.Errorf("%s does not expose bus phases", e.bus)
	}
	o, err := e.cfg.DisplayOpts()
	if err != nil {
		e.close()
		return nil, nil, err
	}
	dev, err := ssd1306.New(eng, o)
	e.trace()
	if err != nil {
		e.close()
		return nil, nil, err
	}
	e.shown = true
	log.Info("display ready", "dev", dev, "addressing", o.Addressing, "polarity", o.Polarity)
	return e, dev, nil
}

// done logs the phases of the command and previews the panel.
func (e *env) done(err error) error {
	e.trace()
	if err == nil {
		err = e.preview()
	}
	if e.gpio != nil && e.gpio.Err() != nil {
		err = errors.Join(err, e.gpio.Err())
	}
	e.close()
	return err
}

func (e *env) trace() {
	if e.sim == nil {
		return
	}
	for _, ev := range e.sim.Events {
		log.Debug("phase", "event", ev)
	}
	e.sim.Reset()
}

func (e *env) preview() error {
	if e.panel == nil || !e.shown || !e.g.Preview || !e.g.tty {
		return nil
	}
	img := e.panel.Image()
	d := screen2d.New(&screen2d.Opts{X: img.Rect.Dx(), Y: img.Rect.Dy(), Out: e.g.out})
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		return err
	}
	return d.Halt()
}

func (e *env) close() {
	if err := e.bus.Close(); err != nil {
		log.Error("closing bus", err)
	}
	if err := i2creg.Unregister(e.cfg.TWIOpts().Name); err != nil {
		log.Error("unregistering bus", err)
	}
}
