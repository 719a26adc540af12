// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"

	"github.com/relabs-tech/gnss_overlay/internal/config"
	"github.com/relabs-tech/gnss_overlay/internal/geo"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

// RunConsoleMQTT prints every fix published on the fix topic until ctx is
// done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("console: mqtt.broker is required")
	}
	client, err := ConnectMQTT(cfg.MQTT.Broker, ClientID(cfg.MQTT.ClientIDPrefix, "console"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := SubscribeFixes(client, cfg.MQTT.Topic, cfg.MQTT.QoS, func(f gps.Fix) {
		fmt.Fprintln(out, FormatFixLine(f))
	}); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// FormatFixLine renders one console line for a fix.
func FormatFixLine(f gps.Fix) string {
	latE7, lonE7 := f.E7()
	x, y := geo.Project(f.Latitude, f.Longitude)
	return fmt.Sprintf(
		"[GPS ]  time=%s lat=%.7f lon=%.7f  e7=%d,%d  twd97=%.2f,%.2f  quality=%s",
		f.Time.Format("15:04:05.000"), f.Latitude, f.Longitude, latE7, lonE7, x, y, f.Quality,
	)
}
