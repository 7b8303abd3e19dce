// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// oledtwi drives a SSD1306 panel over a two-wire bus.
//
// The sim backend runs against a simulated panel and previews it in the
// terminal. The gpio backend bit-bangs the bus on two GPIO lines.
package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config  string `help:"Path to the configuration file." default:"${config}" type:"path"`
	Backend string `help:"Override the configured backend (sim or gpio)."`
	Debug   bool   `help:"Log every bus phase."`
	Preview bool   `help:"Draw the simulated panel in the terminal." default:"true" negatable:""`

	out io.Writer
	tty bool
}

type cli struct {
	Globals `embed:""`

	Init  initCmd  `cmd:"" help:"Initialize the display and read its status."`
	Fill  fillCmd  `cmd:"" help:"Light every pixel."`
	Clear clearCmd `cmd:"" help:"Turn every pixel off."`
	Show  showCmd  `cmd:"" help:"Show a PNG or JPEG image, or a raw .bin frame."`
	Text  textCmd  `cmd:"" help:"Show a message."`
	Clock clockCmd `cmd:"" help:"Show the time, refreshed on the configured schedule."`
	Scan  scanCmd  `cmd:"" help:"List the addresses that acknowledge on the bus."`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "oledtwi.yaml"
	}
	return filepath.Join(dir, "oledtwi", "config.yaml")
}

func newParser(c *cli, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("oledtwi"),
		kong.Description("Drive a SSD1306 OLED panel over a two-wire bus."),
		kong.UsageOnError(),
		kong.Vars{"config": defaultConfigPath()},
	}, options...)
	return kong.New(c, options...)
}

func main() {
	var c cli
	parser, err := newParser(&c)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	c.out = os.Stdout
	c.tty = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	ctx.FatalIfErrorf(ctx.Run(&c.Globals))
}
