// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display runs the camera loop: read a frame, run the detector, draw
// the latest fix and show the result until the operator quits.
package display

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/golang/glog"

	"github.com/relabs-tech/gnss_overlay/internal/detect"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

// ErrVideoSourceLost is returned after too many consecutive failed reads.
var ErrVideoSourceLost = errors.New("video source lost")

// Frame is one captured image. The loop closes every frame it reads.
type Frame interface {
	Size() image.Point
	Close() error
}

// Source yields frames already scaled to the display width.
type Source interface {
	Read() (Frame, error)
	Close() error
}

// Detector runs inference on a frame.
type Detector interface {
	Infer(Frame) ([]detect.Detection, time.Duration, error)
	Close() error
}

// Window shows frames and reports key presses.
type Window interface {
	Show(Frame, Overlay) error
	// PollKey returns the pressed key, or -1.
	PollKey() int
	IsOpen() bool
	Close() error
}

// Deps are the collaborators owned by the loop. Detector may be nil.
type Deps struct {
	Source   Source
	Detector Detector
	Window   Window
	State    *gps.State
}

// Options tunes the loop.
type Options struct {
	RenderMode             RenderMode
	DrawDetections         bool
	RetryDelay             time.Duration
	MaxConsecutiveFailures int
	QuitKey                int
}

// DefaultOptions quits on 'q' and gives up after 30 failed reads 100ms apart.
var DefaultOptions = Options{
	RetryDelay:             100 * time.Millisecond,
	MaxConsecutiveFailures: 30,
	QuitKey:                'q',
}

func (o Options) withDefaults() Options {
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultOptions.RetryDelay
	}
	if o.MaxConsecutiveFailures <= 0 {
		o.MaxConsecutiveFailures = DefaultOptions.MaxConsecutiveFailures
	}
	if o.QuitKey == 0 {
		o.QuitKey = DefaultOptions.QuitKey
	}
	return o
}

// Run loops until the quit key is pressed, the window is closed or ctx is
// done, all of which return nil. It returns ErrVideoSourceLost when the
// source keeps failing and any error from showing a frame.
func Run(ctx context.Context, deps Deps, opts Options) error {
	if deps.Source == nil || deps.Window == nil {
		return errors.New("display: source and window are required")
	}
	opts = opts.withDefaults()
	state := deps.State
	if state == nil {
		state = gps.NewState()
	}

	glog.Infof("display: loop started (render=%s draw_detections=%v)", opts.RenderMode, opts.DrawDetections)

	failures := 0
	for {
		if ctx.Err() != nil {
			glog.Infof("display: stopping: %v", ctx.Err())
			return nil
		}

		frame, err := deps.Source.Read()
		if err != nil {
			failures++
			if failures >= opts.MaxConsecutiveFailures {
				return fmt.Errorf("%w after %d reads: %v", ErrVideoSourceLost, failures, err)
			}
			glog.Warningf("display: frame read failed (%d/%d): %v", failures, opts.MaxConsecutiveFailures, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(opts.RetryDelay):
			}
			continue
		}
		failures = 0

		overlay := buildOverlay(deps, opts, frame, state)
		showErr := deps.Window.Show(frame, overlay)
		if err := frame.Close(); err != nil {
			glog.Warningf("display: frame close: %v", err)
		}
		if showErr != nil {
			return fmt.Errorf("display: show frame: %w", showErr)
		}

		if key := deps.Window.PollKey(); key == opts.QuitKey {
			glog.Infof("display: quit key pressed")
			return nil
		}
		if !deps.Window.IsOpen() {
			glog.Infof("display: window closed")
			return nil
		}
	}
}

func buildOverlay(deps Deps, opts Options, frame Frame, state *gps.State) Overlay {
	var (
		dets    []detect.Detection
		elapsed time.Duration
	)
	if deps.Detector != nil {
		var err error
		dets, elapsed, err = deps.Detector.Infer(frame)
		if err != nil {
			glog.Warningf("display: inference failed: %v", err)
			dets = nil
		} else if glog.V(2) {
			glog.Infof("display: %d detections in %s", len(dets), elapsed)
		}
	}

	fix, ok := state.Load()
	overlay := Overlay{
		Text:   FixText(fix, ok, opts.RenderMode),
		Status: StatusText(elapsed),
	}
	if opts.DrawDetections {
		overlay.Detections = dets
	}
	return overlay
}
