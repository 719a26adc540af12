// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gnss_overlay/internal/config"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

// RunGPSSim writes mock receiver sentences to sim.device, or to out when no
// device is set, once per sim.interval.
func RunGPSSim(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.Sim.Device != "" {
		port, err := serial.Open(serial.OpenOptions{
			PortName:        cfg.Sim.Device,
			BaudRate:        uint(cfg.Sim.Baud),
			DataBits:        8,
			StopBits:        1,
			ParityMode:      serial.PARITY_NONE,
			MinimumReadSize: 1,
		})
		if err != nil {
			return fmt.Errorf("sim: open %s: %w", cfg.Sim.Device, err)
		}
		defer port.Close()
		glog.Infof("sim: writing sentences to %s at %d baud", cfg.Sim.Device, cfg.Sim.Baud)
		out = port
	}

	src := gps.NewMockSource(cfg.Sim.CenterLat, cfg.Sim.CenterLon)
	src.RadiusDeg = cfg.Sim.RadiusDeg
	return writeSentences(ctx, src, out, cfg.Sim.Interval)
}

func writeSentences(ctx context.Context, src gps.LineSource, out io.Writer, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := src.Next()
		if err != nil {
			return fmt.Errorf("sim: %w", err)
		}
		if _, err := io.WriteString(out, line+"\r\n"); err != nil {
			return fmt.Errorf("sim: write: %w", err)
		}
		if glog.V(2) {
			glog.Infof("sim: %s", line)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
