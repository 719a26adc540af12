// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"image"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

func litRows(img *image1bit.VerticalLSB, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < 128; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
				break
			}
		}
	}
	return n
}

func TestRenderFixPanel(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 5, 0, time.UTC)

	waiting := RenderFixPanel(gps.Fix{}, false, now)
	if litRows(waiting, 0, 13) != 0 {
		t.Fatalf("waiting screen should leave the first line blank")
	}
	if litRows(waiting, 14, 40) == 0 {
		t.Fatalf("waiting screen is blank")
	}

	fix := gps.Fix{Latitude: -24.5, Longitude: -121.5, Time: now.Add(-3 * time.Second)}
	img := RenderFixPanel(fix, true, now)
	for _, band := range [][2]int{{0, 14}, {14, 27}, {27, 40}, {40, 53}} {
		if litRows(img, band[0], band[1]) == 0 {
			t.Fatalf("band %v is blank", band)
		}
	}
	if img.Bounds() != image.Rect(0, 0, 128, 64) {
		t.Fatalf("bounds=%v", img.Bounds())
	}
}

type fakePanel struct {
	draws  int
	halted bool
	cancel context.CancelFunc
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }
func (p *fakePanel) Halt() error {
	p.halted = true
	return nil
}

func (p *fakePanel) Draw(image.Rectangle, image.Image, image.Point) error {
	p.draws++
	if p.draws == 3 {
		p.cancel()
	}
	return nil
}

func TestRunPanelLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dev := &fakePanel{cancel: cancel}

	if err := runPanelLoop(ctx, dev, gps.NewState(), time.Millisecond, time.Now); err != nil {
		t.Fatalf("runPanelLoop() error: %v", err)
	}
	if dev.draws != 3 || !dev.halted {
		t.Fatalf("draws=%d halted=%v", dev.draws, dev.halted)
	}
}

type recordingBus struct{ addrs []uint16 }

func (b *recordingBus) String() string                  { return "fake" }
func (b *recordingBus) SetSpeed(physic.Frequency) error { return nil }
func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	b.addrs = append(b.addrs, addr)
	return nil
}

func TestAddrBus_OverridesAddress(t *testing.T) {
	bus := &recordingBus{}
	b := addrBus{Bus: bus, addr: 0x3D}

	if err := b.Tx(0x3C, []byte{0x00, 0xAF}, nil); err != nil {
		t.Fatalf("Tx() error: %v", err)
	}
	if len(bus.addrs) != 1 || bus.addrs[0] != 0x3D {
		t.Fatalf("addrs=%v, want [0x3D]", bus.addrs)
	}
}
