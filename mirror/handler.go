// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mirror

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"mime"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"
)

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

type encoderPool sync.Pool

func (p *encoderPool) Get() *png.EncoderBuffer {
	buf, _ := (*sync.Pool)(p).Get().(*png.EncoderBuffer)
	return buf
}

func (p *encoderPool) Put(buf *png.EncoderBuffer) {
	(*sync.Pool)(p).Put(buf)
}

var encoder = png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: &encoderPool{}}

// snapshot returns the PNG of the panel at scale. The slice is shared and
// must not be modified.
func (d *Dev) snapshot(scale int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.snapshots[scale]; ok {
		return b, nil
	}
	r := d.img.Rect
	img := image.NewPaletted(image.Rect(0, 0, r.Dx()*scale, r.Dy()*scale), d.palette)
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			if d.img.BitAt(r.Min.X+x/scale, r.Min.Y+y/scale) {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	d.snapshots[scale] = buf.Bytes()
	return buf.Bytes(), nil
}

func (d *Dev) scaleFromQuery(r *http.Request) (int, error) {
	v := r.URL.Query().Get("scale")
	if v == "" {
		return d.scale, nil
	}
	s, err := strconv.Atoi(v)
	if err != nil || s < 1 || s > MaxScale {
		return 0, fmt.Errorf("invalid scale %q", v)
	}
	return s, nil
}

// ServeHTTP handles GET requests with a stream of images of the panel.
// "?scale=N" overrides the configured scale.
func (d *Dev) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	scale, err := d.scaleFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pw := newPartWriter(w)
	w.Header().Set("Content-Type", mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{"boundary": pw.boundary}))

	c := &client{refresh: make(chan struct{}, 1), terminate: make(chan struct{}, 1)}
	d.mu.Lock()
	d.clients[c] = struct{}{}
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.clients, c)
		d.mu.Unlock()
	}()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", "image/png")
	h.Set("Content-Transfer-Encoding", "binary")
	for {
		b, err := d.snapshot(scale)
		if err != nil {
			return
		}
		// A write error means the client went away; there is no way to report
		// anything within an image stream.
		if err := pw.writeFrame(h, b); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-c.refresh:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}
