// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/golang/glog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gnss_overlay/internal/config"
	"github.com/relabs-tech/gnss_overlay/internal/geo"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

// panelDevice is the part of *ssd1306.Dev the panel loop uses.
type panelDevice interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// RunPanel shows the latest fix on an SSD1306 OLED until ctx is done.
func RunPanel(ctx context.Context, cfg config.PanelConfig, state *gps.State) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("panel: failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return fmt.Errorf("panel: failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(addrBus{Bus: bus, addr: cfg.Address}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("panel: failed to initialize display: %w", err)
	}
	glog.Infof("panel: display initialized at 0x%02X", cfg.Address)

	return runPanelLoop(ctx, dev, state, cfg.Interval, time.Now)
}

// addrBus sends every transaction to addr. The ssd1306 driver always talks
// to 0x3C; panels strapped to 0x3D need the override.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b addrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

func runPanelLoop(ctx context.Context, dev panelDevice, state *gps.State, every time.Duration, now func() time.Time) error {
	defer func() {
		if err := dev.Halt(); err != nil {
			glog.Warningf("panel: halt: %v", err)
		}
	}()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		fix, ok := state.Load()
		img := RenderFixPanel(fix, ok, now())
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			glog.Warningf("panel: error updating display: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RenderFixPanel draws a 128x64 fix screen: hemisphere-suffixed latitude and
// longitude, the TWD97 grid position and the fix age.
func RenderFixPanel(fix gps.Fix, ok bool, now time.Time) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	line := func(y int, s string) {
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(s)
	}

	if !ok {
		line(26, "GPS Position")
		line(39, "Waiting...")
		return img
	}

	latDir, lat := "N", fix.Latitude
	if lat < 0 {
		latDir, lat = "S", -lat
	}
	lonDir, lon := "E", fix.Longitude
	if lon < 0 {
		lonDir, lon = "W", -lon
	}
	x, y := geo.Project(fix.Latitude, fix.Longitude)

	line(13, fmt.Sprintf("%.6f%s", lat, latDir))
	line(26, fmt.Sprintf("%.6f%s", lon, lonDir))
	line(39, fmt.Sprintf("X:%.0f Y:%.0f", x, y))
	if !fix.Time.IsZero() {
		line(52, fmt.Sprintf("Age: %s", now.Sub(fix.Time).Truncate(time.Second)))
	}
	return img
}
