// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

// https://cdn-shop.adafruit.com/datasheets/SSD1306.pdf
//
// Page 25 describes the GDDRAM pages, page 34 the addressing modes.

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/GermanBionicSystems/oledtwi/twi"
	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Polarity is the transform applied to each frame byte before it reaches
// display RAM.
type Polarity uint8

// Possible polarities.
const (
	// Complement inverts every byte: a zero bit in the frame is a lit pixel.
	Complement Polarity = iota
	// Normal sends the frame as is: a one bit is a lit pixel.
	Normal
)

func (p Polarity) String() string {
	switch p {
	case Complement:
		return "Complement"
	case Normal:
		return "Normal"
	default:
		return fmt.Sprintf("Polarity(%d)", uint8(p))
	}
}

func (p Polarity) transform(c byte) byte {
	if p == Complement {
		return ^c
	}
	return c
}

// Addressing is the memory addressing mode. The value is the argument of
// the memory mode command.
type Addressing uint8

// Addressing modes.
const (
	// Horizontal advances the column, then the page at the end of the row.
	Horizontal Addressing = 0
	// Vertical advances the page, then the column at the bottom.
	Vertical Addressing = 1
	// Page advances the column only; each page is positioned explicitly.
	Page Addressing = 2
)

func (a Addressing) String() string {
	switch a {
	case Horizontal:
		return "Horizontal"
	case Vertical:
		return "Vertical"
	case Page:
		return "Page"
	default:
		return fmt.Sprintf("Addressing(%d)", uint8(a))
	}
}

// FrameRate determines scrolling speed.
type FrameRate byte

// Possible frame rates. The value determines the number of refreshes between
// movement. The lower value, the higher speed.
const (
	FrameRate2   FrameRate = 7
	FrameRate3   FrameRate = 4
	FrameRate4   FrameRate = 5
	FrameRate5   FrameRate = 0
	FrameRate25  FrameRate = 6
	FrameRate64  FrameRate = 1
	FrameRate128 FrameRate = 2
	FrameRate256 FrameRate = 3
)

// Orientation is used for scrolling.
type Orientation byte

// Possible orientations for scrolling.
const (
	Left    Orientation = 0x27
	Right   Orientation = 0x26
	UpRight Orientation = 0x29
	UpLeft  Orientation = 0x2A
)

// DefaultOpts is the 128x64 module at 0x3C.
var DefaultOpts = Opts{
	W:            128,
	H:            64,
	Addr:         0x3C,
	Polarity:     Complement,
	Addressing:   Horizontal,
	Contrast:     0x7F,
	Precharge:    0x22,
	ClockDiv:     0x80,
	PowerOnDelay: 500 * time.Millisecond,
}

// Opts defines the options for the device.
type Opts struct {
	W int
	H int
	// The I²C address of the display.
	Addr uint16

	// Polarity is applied by TransferFrame.
	Polarity   Polarity
	Addressing Addressing
	Contrast   byte
	// Precharge and ClockDiv default to the power on reset values when 0.
	Precharge byte
	ClockDiv  byte
	// Offset is the vertical display offset in rows.
	Offset byte
	// Sequential corresponds to the Sequential/Alternative COM pin configuration
	// in the OLED panel hardware. Try toggling this if half the rows appear to be
	// missing on your display. Particularly on 32 pixel height displays.
	Sequential bool
	// MirrorVertical corresponds to the COM remap configuration in the OLED panel
	// hardware. Try toggling this if the display is flipped vertically.
	MirrorVertical bool
	// MirrorHorizontal corresponds to the SEG remap configuration in the OLED panel
	// hardware. Try toggling this if the display is flipped horizontally.
	MirrorHorizontal bool
	// SwapTopBottom corresponds to the Left/Right remap COM pin configuration in
	// the OLED panel hardware. Try toggling this if the top and bottom halves of
	// your display are swapped.
	SwapTopBottom bool
	// ExternalVCC disables the internal charge pump.
	ExternalVCC bool

	// Retries is the number of times a frame is sent again after a phase
	// was not acknowledged. A hung bus is never retried.
	Retries int
	// PowerOnDelay is waited after the init sequence.
	PowerOnDelay time.Duration
	// Init replaces the table built from the options above.
	Init InitTable
}

func (o *Opts) validate() error {
	if o.W < 8 || o.W > 128 || o.W&7 != 0 {
		return fmt.Errorf("ssd1306: invalid width %d", o.W)
	}
	if o.H < 8 || o.H > 64 || o.H&7 != 0 {
		return fmt.Errorf("ssd1306: invalid height %d", o.H)
	}
	if o.Addressing > Page {
		return fmt.Errorf("ssd1306: invalid addressing mode %d", o.Addressing)
	}
	if o.Polarity > Normal {
		return fmt.Errorf("ssd1306: invalid polarity %d", o.Polarity)
	}
	if o.Retries < 0 {
		return fmt.Errorf("ssd1306: invalid retries %d", o.Retries)
	}
	return nil
}

// Dev is an open handle to the display controller.
type Dev struct {
	s *Session

	// Display size controlled by the SSD1306.
	rect       image.Rectangle
	pages      int
	addressing Addressing
	polarity   Polarity
	retries    int

	// out holds the bytes of the frame in the order they are sent.
	out []byte
	// next is lazy initialized on first Draw(). Write() skips this buffer.
	next   *image1bit.VerticalLSB
	halted bool
}

// New initializes the controller on e and returns a Dev.
//
// It runs the init sequence, then waits opts.PowerOnDelay. nil opts uses
// DefaultOpts.
func New(e Engine, opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Addr == 0 {
		o.Addr = DefaultOpts.Addr
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	t := o.Init
	if t == nil {
		var err error
		if t, err = BuildInitTable(&o); err != nil {
			return nil, err
		}
	}
	d := &Dev{
		s:          NewSession(e, o.Addr, o.PowerOnDelay),
		rect:       image.Rect(0, 0, o.W, o.H),
		pages:      o.H / 8,
		addressing: o.Addressing,
		polarity:   o.Polarity,
		retries:    o.Retries,
		out:        make([]byte, o.W*o.H/8),
	}
	if err := d.s.RunInitializationSequence(t); err != nil {
		return nil, fmt.Errorf("ssd1306: init: %w", err)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("SSD1306.Dev{%s, %s}", d.s, d.rect.Max)
}

// Session returns the session used by d.
func (d *Dev) Session() *Session {
	return d.s
}

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
//
// image1bit.On is a lit pixel, whatever the configured Polarity. The whole
// frame is sent.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	var next []byte
	if img, ok := src.(*image1bit.VerticalLSB); ok && r == d.rect && img.Rect == d.rect && sp.X == 0 && sp.Y == 0 {
		// Exact size, full frame, image1bit encoding: fast path!
		next = img.Pix
	} else {
		// Double buffering.
		if d.next == nil {
			d.next = image1bit.NewVerticalLSB(d.rect)
		}
		next = d.next.Pix
		draw.Src.Draw(d.next, r, src, sp)
	}
	return d.frame(next, Normal)
}

// Write writes a buffer of pixels to the display.
//
// The format is unusual as each byte represent 8 vertical pixels at a time.
// The format is horizontal bands of 8 pixels high, one bit is a lit pixel.
//
// This function accepts the content of image1bit.VerticalLSB.Pix.
func (d *Dev) Write(pixels []byte) (int, error) {
	if err := d.frame(pixels, Normal); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// TransferFrame sends buf, pages bands of W bytes, to display RAM with the
// configured Polarity applied.
//
// The RAM cursor is positioned first so the frame always lands at the top
// left corner. A frame is thus two transactions: a command stream setting the
// column and page window, then the data stream. In Page addressing each page
// is its own pair, a command stream selecting the page then its data stream.
// Retries resend every transaction of the frame.
func (d *Dev) TransferFrame(buf []byte) error {
	return d.frame(buf, d.polarity)
}

// ClearAll turns every pixel off.
func (d *Dev) ClearAll() error {
	return d.fill(0x00)
}

// FillAll turns every pixel on.
func (d *Dev) FillAll() error {
	return d.fill(0xFF)
}

// Scroll scrolls an horizontal band.
//
// Only one scrolling operation can happen at a time.
//
// Both startLine and endLine must be multiples of 8.
//
// Use -1 for endLine to extend to the bottom of the display.
func (d *Dev) Scroll(o Orientation, rate FrameRate, startLine, endLine int) error {
	h := d.rect.Dy()
	if endLine == -1 {
		endLine = h
	}
	if startLine >= endLine {
		return fmt.Errorf("ssd1306: startLine (%d) must be lower than endLine (%d)", startLine, endLine)
	}
	if startLine&7 != 0 || startLine < 0 || startLine >= h {
		return fmt.Errorf("ssd1306: invalid startLine %d", startLine)
	}
	if endLine&7 != 0 || endLine < 0 || endLine > h {
		return fmt.Errorf("ssd1306: invalid endLine %d", endLine)
	}
	startPage := uint8(startLine / 8)
	endPage := uint8(endLine / 8)
	if o == Left || o == Right {
		// page 28
		// <op>, dummy, <start page>, <rate>,  <end page>, <dummy>, <dummy>, <ENABLE>
		return d.command(byte(o), 0x00, startPage, byte(rate), endPage-1, 0x00, 0xFF, _ACTIVATE_SCROLL)
	}
	// page 29
	// <op>, dummy, <start page>, <rate>,  <end page>, <offset>, <ENABLE>
	return d.command(byte(o), 0x00, startPage, byte(rate), endPage-1, 0x01, _ACTIVATE_SCROLL)
}

// StopScroll stops any scrolling previously set. The RAM content must be
// sent again.
func (d *Dev) StopScroll() error {
	return d.command(_DEACTIVATE_SCROLL)
}

// SetContrast changes the screen contrast.
func (d *Dev) SetContrast(level byte) error {
	return d.command(_SETCONTRAST, level)
}

// SetDisplayStartLine causes the display to start from startLine, effectively
// scrolling the screen to that position.
//
// startLine must be between 0 and 63.
func (d *Dev) SetDisplayStartLine(startLine byte) error {
	if startLine > 63 {
		return fmt.Errorf("ssd1306: invalid startLine %d", startLine)
	}
	return d.command(_SETSTARTLINE | startLine)
}

// Halt turns off the display.
//
// Sending any other command afterward reenables the display.
func (d *Dev) Halt() error {
	d.halted = false
	if err := d.s.Command(_DISPLAYOFF); err != nil {
		return err
	}
	d.halted = true
	return nil
}

// Invert the display (black on white vs white on black).
func (d *Dev) Invert(blackOnWhite bool) error {
	c := byte(_NORMALDISPLAY)
	if blackOnWhite {
		c = _INVERTDISPLAY
	}
	return d.command(c)
}

// ReadStatus reads the controller status byte.
func (d *Dev) ReadStatus() (byte, error) {
	return d.s.ReadStatus()
}

func (d *Dev) frame(buf []byte, p Polarity) error {
	if len(buf) != len(d.out) {
		return fmt.Errorf("ssd1306: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.out), len(buf))
	}
	w := d.rect.Dx()
	if d.addressing == Vertical {
		i := 0
		for col := 0; col < w; col++ {
			for page := 0; page < d.pages; page++ {
				d.out[i] = p.transform(buf[page*w+col])
				i++
			}
		}
	} else {
		for i, c := range buf {
			d.out[i] = p.transform(c)
		}
	}
	return d.retry(d.send)
}

func (d *Dev) fill(c byte) error {
	for i := range d.out {
		d.out[i] = c
	}
	return d.retry(d.send)
}

// send writes d.out to display RAM.
func (d *Dev) send() error {
	w := d.rect.Dx()
	if d.addressing == Page {
		for page := 0; page < d.pages; page++ {
			if err := d.command(_PAGESTARTADDRESS|byte(page), _SETLOWCOLUMN, _SETHIGHCOLUMN); err != nil {
				return err
			}
			if err := d.stream(d.out[page*w : (page+1)*w]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := d.command(_COLUMNADDR, 0, byte(w-1), _PAGEADDR, 0, byte(d.pages-1)); err != nil {
		return err
	}
	return d.stream(d.out)
}

func (d *Dev) stream(p []byte) error {
	err := d.s.BeginDataStream()
	if err == nil {
		_, err = d.s.WriteStream(p)
	}
	d.s.End()
	return err
}

func (d *Dev) command(c ...byte) error {
	if d.halted {
		// Transparently enable the display.
		c = append([]byte{_DISPLAYON}, c...)
	}
	if err := d.s.Command(c...); err != nil {
		return err
	}
	d.halted = false
	return nil
}

func (d *Dev) retry(f func() error) error {
	err := f()
	for i := 0; i < d.retries && retryable(err); i++ {
		err = f()
	}
	return err
}

// retryable is true for phases that completed without acknowledgement. A
// hung bus or a sequencing error is not transient.
func retryable(err error) bool {
	var pe *twi.PhaseError
	return errors.As(err, &pe)
}

var _ display.Drawer = &Dev{}
