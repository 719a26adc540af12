// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"image"
	"testing"
	"time"

	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

func TestFixText(t *testing.T) {
	fix := gps.Fix{Latitude: 25.033611, Longitude: 121.564444}
	cases := []struct {
		name string
		ok   bool
		mode RenderMode
		want string
	}{
		{"no fix", false, RenderWGS84, NoFixText},
		{"no fix projected", false, RenderProjected, NoFixText},
		{"wgs84", true, RenderWGS84, "Lat: 25.0336110, Lon: 121.5644440"},
		{"projected", true, RenderProjected, "X: 306960.06, Y: 2769619.11"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FixText(fix, tc.ok, tc.mode); got != tc.want {
				t.Fatalf("FixText()=%q want %q", got, tc.want)
			}
		})
	}
}

func TestParseRenderMode(t *testing.T) {
	for in, want := range map[string]RenderMode{"": RenderWGS84, "WGS84": RenderWGS84, "projected": RenderProjected, "twd97": RenderProjected} {
		got, err := ParseRenderMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseRenderMode(%q)=(%v,%v)", in, got, err)
		}
	}
	if _, err := ParseRenderMode("utm"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestScaleToWidth(t *testing.T) {
	cases := []struct {
		in    image.Point
		width int
		want  image.Point
	}{
		{image.Pt(1920, 1080), 600, image.Pt(600, 337)},
		{image.Pt(960, 540), 600, image.Pt(600, 337)},
		{image.Pt(600, 400), 600, image.Pt(600, 400)},
		{image.Pt(320, 240), 640, image.Pt(640, 480)},
		{image.Pt(0, 0), 600, image.Pt(0, 0)},
	}
	for _, tc := range cases {
		if got := ScaleToWidth(tc.in, tc.width); got != tc.want {
			t.Fatalf("ScaleToWidth(%v,%d)=%v want %v", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestCenterTextAndStatus(t *testing.T) {
	if got := CenterText(image.Pt(600, 338), image.Pt(200, 20)); got != image.Pt(200, 179) {
		t.Fatalf("CenterText()=%v", got)
	}
	if got := StatusText(0); got != "FPS: -" {
		t.Fatalf("StatusText(0)=%q", got)
	}
	if got := StatusText(20 * time.Millisecond); got != "FPS: 50.0" {
		t.Fatalf("StatusText(20ms)=%q", got)
	}
}
