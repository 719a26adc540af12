// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package vision backs the display loop with OpenCV through gocv: camera
// capture, the output window and a DNN object detector.
package vision

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/golang/glog"
	"gocv.io/x/gocv"

	"github.com/relabs-tech/gnss_overlay/internal/camera"
	"github.com/relabs-tech/gnss_overlay/internal/display"
)

var errEmptyFrame = errors.New("empty frame")

// Frame wraps a gocv.Mat so the display loop can pass it around.
type Frame struct {
	Mat gocv.Mat
}

// Size returns the frame width and height.
func (f *Frame) Size() image.Point {
	return image.Pt(f.Mat.Cols(), f.Mat.Rows())
}

// Close releases the Mat.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// CameraOptions selects the video source.
type CameraOptions struct {
	// Source is "csi" (GStreamer pipeline), "device" (V4L index) or "file".
	Source   string
	DeviceID int
	File     string
	CSI      camera.Options

	// TargetWidth is the width frames are scaled to; 0 keeps the input size.
	TargetWidth int
}

// Camera reads and scales frames from a gocv.VideoCapture.
type Camera struct {
	vc    *gocv.VideoCapture
	width int
	raw   gocv.Mat
}

// OpenCamera opens the configured video source.
func OpenCamera(opts CameraOptions) (*Camera, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	switch strings.ToLower(opts.Source) {
	case "", "csi":
		pipeline := camera.Pipeline(opts.CSI)
		glog.Infof("vision: opening CSI camera: %s", pipeline)
		vc, err = gocv.OpenVideoCaptureWithAPI(pipeline, gocv.VideoCaptureGstreamer)
	case "device":
		glog.Infof("vision: opening video device %d", opts.DeviceID)
		vc, err = gocv.VideoCaptureDevice(opts.DeviceID)
	case "file":
		glog.Infof("vision: opening video file %s", opts.File)
		vc, err = gocv.VideoCaptureFile(opts.File)
	default:
		return nil, fmt.Errorf("vision: unknown camera source %q", opts.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("vision: open camera: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("vision: camera %q did not open", opts.Source)
	}
	return &Camera{vc: vc, width: opts.TargetWidth, raw: gocv.NewMat()}, nil
}

// Read grabs one frame and scales it to the target width.
func (c *Camera) Read() (display.Frame, error) {
	if ok := c.vc.Read(&c.raw); !ok || c.raw.Empty() {
		return nil, errEmptyFrame
	}

	out := gocv.NewMat()
	size := image.Pt(c.raw.Cols(), c.raw.Rows())
	target := display.ScaleToWidth(size, c.width)
	if target == size {
		c.raw.CopyTo(&out)
	} else {
		gocv.Resize(c.raw, &out, target, 0, 0, gocv.InterpolationArea)
	}
	return &Frame{Mat: out}, nil
}

// Close releases the capture device.
func (c *Camera) Close() error {
	c.raw.Close()
	return c.vc.Close()
}
