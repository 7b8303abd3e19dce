// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/oledtwi/internal/log"
	"github.com/GermanBionicSystems/oledtwi/mirror"
	"github.com/GermanBionicSystems/oledtwi/ssd1306"
	"github.com/GermanBionicSystems/oledtwi/ssd1306/bitmap"
	"github.com/GermanBionicSystems/oledtwi/twi"
	"github.com/robfig/cron/v3"
	"periph.io/x/conn/v3/display"
)

type initCmd struct{}

func (c *initCmd) Run(g *Globals) error {
	e, dev, err := openDisplay(g)
	if err != nil {
		return err
	}
	s, err := dev.ReadStatus()
	if err == nil {
		on := s&0x40 == 0
		fmt.Fprintf(g.out, "%s: status 0x%02X, display on: %t\n", dev, s, on)
	}
	return e.done(err)
}

type fillCmd struct{}

func (c *fillCmd) Run(g *Globals) error {
	e, dev, err := openDisplay(g)
	if err != nil {
		return err
	}
	return e.done(dev.FillAll())
}

type clearCmd struct{}

func (c *clearCmd) Run(g *Globals) error {
	e, dev, err := openDisplay(g)
	if err != nil {
		return err
	}
	return e.done(dev.ClearAll())
}

type showCmd struct {
	Path string `arg:"" help:"Image file. A .bin file is a raw frame sent with the configured polarity." type:"existingfile"`
}

func (c *showCmd) Run(g *Globals) error {
	e, dev, err := openDisplay(g)
	if err != nil {
		return err
	}
	return e.done(c.show(dev))
}

func (c *showCmd) show(dev *ssd1306.Dev) error {
	if strings.EqualFold(filepath.Ext(c.Path), ".bin") {
		buf, err := os.ReadFile(c.Path)
		if err != nil {
			return err
		}
		return dev.TransferFrame(buf)
	}
	img, err := bitmap.Load(c.Path)
	if err != nil {
		return err
	}
	return dev.Draw(dev.Bounds(), img, img.Bounds().Min)
}

type textCmd struct {
	Size    float64  `help:"Font size in points. 0 uses a fixed 7x13 font." default:"0"`
	Message []string `arg:"" help:"Words to show."`
}

func (c *textCmd) Run(g *Globals) error {
	e, dev, err := openDisplay(g)
	if err != nil {
		return err
	}
	return e.done(drawText(strings.Join(c.Message, " "), c.Size, dev))
}

// drawText renders s on every drawer. The first one sets the size.
func drawText(s string, size float64, drawers ...display.Drawer) error {
	face, err := bitmap.Face(size)
	if err != nil {
		return err
	}
	r := drawers[0].Bounds()
	img := bitmap.Text(s, r.Dx(), r.Dy(), face)
	for _, d := range drawers {
		if err := d.Draw(r, img, image.Point{}); err != nil {
			return err
		}
	}
	return nil
}

type clockCmd struct {
	Format string  `help:"Time layout." default:"15:04"`
	Size   float64 `help:"Font size in points. 0 uses a fixed 7x13 font." default:"24"`
	Once   bool    `help:"Draw once and exit."`
	Serve  string  `help:"Mirror the display over HTTP on this address, e.g. :8080."`

	mirror *mirror.Dev
}

func (c *clockCmd) Run(g *Globals) error {
	e, dev, err := openDisplay(g)
	if err != nil {
		return err
	}
	if c.Serve != "" && !c.Once {
		r := dev.Bounds()
		c.mirror = mirror.New(&mirror.Opts{W: r.Dx(), H: r.Dy()})
		srv := &http.Server{Addr: c.Serve, Handler: c.mirror, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("mirror stopped", err, "addr", c.Serve)
			}
		}()
		defer func() {
			_ = c.mirror.Halt()
			_ = srv.Close()
		}()
		log.Info("mirror listening", "addr", c.Serve)
	}
	if err := c.draw(dev); err != nil || c.Once {
		return e.done(err)
	}
	if err := e.preview(); err != nil {
		return e.done(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errs := make(chan error, 1)
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := sched.AddFunc(e.cfg.RefreshCron, func() {
		err := c.draw(dev)
		e.trace()
		if err == nil {
			err = e.preview()
		}
		if err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	}); err != nil {
		return e.done(err)
	}
	log.Info("clock running", "refresh", e.cfg.RefreshCron)
	sched.Start()
	select {
	case <-ctx.Done():
		log.Info("signal received, shutting down")
		err = nil
	case err = <-errs:
		log.Error("refresh failed", err)
	}
	<-sched.Stop().Done()
	return e.done(errors.Join(err, dev.Halt()))
}

func (c *clockCmd) draw(dev *ssd1306.Dev) error {
	s := time.Now().Format(c.Format)
	if c.mirror != nil {
		return drawText(s, c.Size, dev, c.mirror)
	}
	return drawText(s, c.Size, dev)
}

type scanCmd struct {
	First uint16 `help:"First address probed." default:"8"`
	Last  uint16 `help:"Last address probed." default:"119"`
}

func (c *scanCmd) Run(g *Globals) error {
	e, err := openBus(g)
	if err != nil {
		return err
	}
	return e.done(c.scan(e, g))
}

func (c *scanCmd) scan(e *env, g *Globals) error {
	if c.Last > 0x7F || c.First > c.Last {
		return fmt.Errorf("invalid address range 0x%02X..0x%02X", c.First, c.Last)
	}
	found := 0
	for addr := c.First; addr <= c.Last; addr++ {
		err := e.bus.Tx(addr, nil, nil)
		switch {
		case err == nil:
			fmt.Fprintf(g.out, "0x%02X\n", addr)
			found++
		case errors.Is(err, twi.ErrNotAcknowledged):
		default:
			return fmt.Errorf("probing 0x%02X: %w", addr, err)
		}
	}
	log.Info("scan done", "bus", e.bus, "found", found)
	return nil
}
