// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"context"

	"github.com/golang/glog"

	"github.com/relabs-tech/gnss_overlay/internal/config"
	"github.com/relabs-tech/gnss_overlay/internal/display"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

// RunCameraDisplay opens the camera, detector and window and runs the
// display loop until the operator quits or ctx is done. HighGUI calls must
// stay on one OS thread, so the caller's goroutine should be locked to it.
func RunCameraDisplay(ctx context.Context, cfg *config.Config, state *gps.State) error {
	cam, err := OpenCamera(CameraOptions{
		Source:      cfg.Camera.Source,
		DeviceID:    cfg.Camera.DeviceID,
		File:        cfg.Camera.File,
		CSI:         cfg.Camera.CSI,
		TargetWidth: cfg.Camera.TargetWidth,
	})
	if err != nil {
		return err
	}
	defer cam.Close()

	deps := display.Deps{Source: cam, State: state}

	if cfg.Detector.Model != "" {
		det, err := NewDNNDetector(DetectorOptions{
			Model:        cfg.Detector.Model,
			Version:      cfg.DetectorVersion(),
			Confidence:   cfg.Detector.Confidence,
			NMSThreshold: cfg.Detector.NMSThreshold,
			InputSize:    cfg.Detector.InputSize,
			Labels:       cfg.Detector.Labels,
			CUDA:         cfg.Detector.CUDA,
		})
		if err != nil {
			return err
		}
		defer det.Close()
		deps.Detector = det
	} else {
		glog.Infof("display: detector.model not set, inference disabled")
	}

	win := NewWindow(cfg.Display.Title)
	defer win.Close()
	deps.Window = win

	return display.Run(ctx, deps, cfg.DisplayOptions())
}
