// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package camera builds GStreamer pipeline descriptions for the Jetson CSI
// camera.
package camera

import "fmt"

// Options describes a CSI capture. Zero fields take the defaults below.
type Options struct {
	SensorID      int `yaml:"sensor_id"`
	CaptureWidth  int `yaml:"capture_width"`
	CaptureHeight int `yaml:"capture_height"`
	DisplayWidth  int `yaml:"display_width"`
	DisplayHeight int `yaml:"display_height"`
	Framerate     int `yaml:"framerate"`
	FlipMethod    int `yaml:"flip_method"`
}

// DefaultOptions is a 1080p30 capture scaled to 960x540.
var DefaultOptions = Options{
	CaptureWidth:  1920,
	CaptureHeight: 1080,
	DisplayWidth:  960,
	DisplayHeight: 540,
	Framerate:     30,
}

// WithDefaults fills unset sizes and rate from DefaultOptions. SensorID and
// FlipMethod are valid at zero and are left alone.
func (o Options) WithDefaults() Options {
	if o.CaptureWidth <= 0 {
		o.CaptureWidth = DefaultOptions.CaptureWidth
	}
	if o.CaptureHeight <= 0 {
		o.CaptureHeight = DefaultOptions.CaptureHeight
	}
	if o.DisplayWidth <= 0 {
		o.DisplayWidth = DefaultOptions.DisplayWidth
	}
	if o.DisplayHeight <= 0 {
		o.DisplayHeight = DefaultOptions.DisplayHeight
	}
	if o.Framerate <= 0 {
		o.Framerate = DefaultOptions.Framerate
	}
	return o
}

// Pipeline returns the nvarguscamerasrc pipeline ending in a BGR appsink.
func Pipeline(o Options) string {
	o = o.WithDefaults()
	return fmt.Sprintf(
		"nvarguscamerasrc sensor-id=%d ! "+
			"video/x-raw(memory:NVMM), width=(int)%d, height=(int)%d, framerate=(fraction)%d/1 ! "+
			"nvvidconv flip-method=%d ! "+
			"video/x-raw, width=(int)%d, height=(int)%d, format=(string)BGRx ! "+
			"videoconvert ! "+
			"video/x-raw, format=(string)BGR ! appsink",
		o.SensorID,
		o.CaptureWidth, o.CaptureHeight, o.Framerate,
		o.FlipMethod,
		o.DisplayWidth, o.DisplayHeight,
	)
}
