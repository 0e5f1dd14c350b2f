// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display mirrors gate telemetry on a 128x64 SSD1306 OLED.
package display

import (
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/lap_timer/internal/lap"
)

// Board status lines.
const (
	StatusReady    = "READY"
	StatusRunning  = "RUNNING"
	StatusFinished = "FINISHED"
	StatusStopped  = "STOPPED"
)

// StateReader gives the board the recorder's view of the race.
type StateReader interface {
	State() lap.State
}

// Screen is the drawing surface; *ssd1306.Dev satisfies it.
type Screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Board is a lap.Notifier that redraws on every notification it understands.
type Board struct {
	mu     sync.Mutex
	screen Screen
	state  StateReader
	status string
	laps   [lap.NumLaps]string
}

// NewBoard returns a board showing an empty lap set.
func NewBoard(s Screen) *Board {
	b := &Board{screen: s, status: StatusReady}
	for i := range b.laps {
		b.laps[i] = "0.00"
	}
	return b
}

// Follow makes every lap set broadcast re-read the status from state, so
// reset, test and stop show up even though they send no marker message.
func (b *Board) Follow(state StateReader) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state
}

// statusOf maps recorder state onto a status line.
func statusOf(st lap.State) string {
	switch {
	case st.Armed && st.Timing:
		return StatusRunning
	case st.Armed:
		return StatusReady
	case st.Mode == lap.Normal && st.CurrentLap >= lap.NumLaps:
		return StatusFinished
	case st.Timing:
		return StatusStopped
	default:
		return StatusReady
	}
}

// OpenSSD1306 opens the I2C bus ("" for the first one) and the display at
// its default address. The returned closer releases the bus.
func OpenSSD1306(bus string) (*Board, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus %q: %w", bus, err)
	}
	dev, err := ssd1306.NewI2C(b, &ssd1306.DefaultOpts)
	if err != nil {
		b.Close()
		return nil, nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	logrus.Infof("display: initialized on I2C bus %q", bus)
	return NewBoard(dev), b, nil
}

// Notify updates the board from one telemetry message.
func (b *Board) Notify(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch msg {
	case lap.MsgStart:
		b.status = StatusRunning
	case lap.MsgEnd:
		b.status = StatusFinished
	case lap.MsgPong:
		return
	default:
		parts := strings.Split(msg, ",")
		if len(parts) != lap.NumLaps {
			return
		}
		copy(b.laps[:], parts)
		switch {
		case b.state != nil:
			b.status = statusOf(b.state.State())
		case msg == (lap.LapSet{}).String() && b.status != StatusRunning:
			b.status = StatusReady
		}
	}

	if err := b.render(); err != nil {
		logrus.WithError(err).Warn("display: update")
	}
}

// Status returns the status line currently shown.
func (b *Board) Status() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *Board) render() error {
	img := image1bit.NewVerticalLSB(b.screen.Bounds())

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(0, 12)
	drawer.DrawString("LAPS " + b.status)
	for i, v := range b.laps {
		drawer.Dot = fixed.P(0, 25+13*i)
		drawer.DrawString(fmt.Sprintf("%d: %ss", i+1, v))
	}

	return b.screen.Draw(b.screen.Bounds(), img, image.Point{})
}
