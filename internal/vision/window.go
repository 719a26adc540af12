// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/relabs-tech/gnss_overlay/internal/display"
)

const (
	fontFace  = gocv.FontHersheySimplex
	fontScale = 0.7
	thickness = 2
)

var (
	textColor   = color.RGBA{255, 255, 255, 0}
	statusColor = color.RGBA{0, 255, 255, 0}
	boxColor    = color.RGBA{0, 255, 0, 0}
)

// Window is a HighGUI window that draws the overlay before showing a frame.
type Window struct {
	w *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{w: gocv.NewWindow(title)}
}

// Show draws the overlay onto the frame and displays it.
func (w *Window) Show(f display.Frame, o display.Overlay) error {
	frame, ok := f.(*Frame)
	if !ok {
		return fmt.Errorf("vision: unexpected frame type %T", f)
	}
	img := &frame.Mat

	for _, d := range o.Detections {
		gocv.Rectangle(img, d.Box, boxColor, thickness)
		gocv.PutText(img, d.String(), d.Box.Min.Add(image.Pt(0, -4)), fontFace, 0.5, boxColor, 1)
	}

	if o.Status != "" {
		gocv.PutText(img, o.Status, image.Pt(10, 25), fontFace, fontScale, statusColor, thickness)
	}

	textSize := gocv.GetTextSize(o.Text, fontFace, fontScale, thickness)
	origin := display.CenterText(frame.Size(), textSize)
	gocv.PutText(img, o.Text, origin, fontFace, fontScale, textColor, thickness)

	w.w.IMShow(*img)
	return nil
}

// PollKey waits 1ms for a key press.
func (w *Window) PollKey() int {
	return w.w.WaitKey(1)
}

// IsOpen reports whether the window is still open.
func (w *Window) IsOpen() bool {
	return w.w.IsOpen()
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.w.Close()
}
