// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/relabs-tech/gnss_overlay/internal/detect"
	"github.com/relabs-tech/gnss_overlay/internal/geo"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

// NoFixText is drawn until the producer stores its first fix.
const NoFixText = "No GPS fix"

// RenderMode chooses which coordinate pair the overlay shows.
type RenderMode int

const (
	// RenderWGS84 draws latitude/longitude in decimal degrees.
	RenderWGS84 RenderMode = iota
	// RenderProjected draws TWD97 TM2 easting/northing in metres.
	RenderProjected
)

func (m RenderMode) String() string {
	switch m {
	case RenderWGS84:
		return "wgs84"
	case RenderProjected:
		return "projected"
	default:
		return fmt.Sprintf("render_mode(%d)", int(m))
	}
}

// ParseRenderMode maps a config value to a RenderMode.
func ParseRenderMode(s string) (RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wgs84":
		return RenderWGS84, nil
	case "projected", "twd97":
		return RenderProjected, nil
	default:
		return 0, fmt.Errorf("unknown render mode %q (want wgs84 or projected)", s)
	}
}

// Overlay is everything drawn on top of one frame.
type Overlay struct {
	// Text is the fix line, centered on the frame.
	Text string
	// Status is the inference rate line in the top-left corner.
	Status string
	// Detections are boxed only when drawing is enabled.
	Detections []detect.Detection
}

// FixText formats the fix for the chosen mode, or NoFixText.
func FixText(fix gps.Fix, ok bool, mode RenderMode) string {
	if !ok {
		return NoFixText
	}
	if mode == RenderProjected {
		x, y := geo.Project(fix.Latitude, fix.Longitude)
		return fmt.Sprintf("X: %.2f, Y: %.2f", x, y)
	}
	return fmt.Sprintf("Lat: %.7f, Lon: %.7f", fix.Latitude, fix.Longitude)
}

// StatusText reports inference throughput from one frame's latency.
func StatusText(elapsed time.Duration) string {
	if elapsed <= 0 {
		return "FPS: -"
	}
	return fmt.Sprintf("FPS: %.1f", 1/elapsed.Seconds())
}

// ScaleToWidth returns the size with the given width and the aspect ratio
// kept. Heights truncate toward zero.
func ScaleToWidth(size image.Point, width int) image.Point {
	if size.X <= 0 || width <= 0 || size.X == width {
		return size
	}
	return image.Pt(width, size.Y*width/size.X)
}

// CenterText returns the baseline origin that centers text of the given
// rendered size in a frame.
func CenterText(frame, text image.Point) image.Point {
	return image.Pt((frame.X-text.X)/2, (frame.Y+text.Y)/2)
}
