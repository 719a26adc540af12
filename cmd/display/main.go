// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/relabs-tech/gnss_overlay/internal/app"
	"github.com/relabs-tech/gnss_overlay/internal/config"
	"github.com/relabs-tech/gnss_overlay/internal/vision"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	glog.Info("starting camera display (fixes from MQTT)")

	if err := config.InitGlobal(*configPath); err != nil {
		glog.Exitf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunDisplayOnly(ctx, config.Get(), vision.RunCameraDisplay); err != nil {
		glog.Exitf("fatal: %v", err)
	}
}
