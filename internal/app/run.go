// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"runtime"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/gnss_overlay/internal/config"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
	"github.com/relabs-tech/gnss_overlay/internal/sentence"
)

// DisplayFunc runs the camera display until the operator quits or ctx is
// done.
type DisplayFunc func(ctx context.Context, cfg *config.Config, state *gps.State) error

// NewSentenceParser builds the parser described by the gps section.
func NewSentenceParser(cfg *config.Config) *sentence.Parser {
	return sentence.New(sentence.Options{
		Format:         cfg.SentenceFormat(),
		VerifyChecksum: cfg.GPS.VerifyChecksum,
		Log:            sentence.FileLog{Path: cfg.GPS.LogPath},
	})
}

// RunOverlay runs the producer and the camera display in one process, plus
// the web server and OLED panel when configured. Quitting the display stops
// everything; so does the first loop to fail.
func RunOverlay(ctx context.Context, cfg *config.Config, runDisplay DisplayFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := gps.NewState()
	parser := NewSentenceParser(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return RunGPSProducer(gctx, cfg, state, parser)
	})
	if cfg.Display.Headless {
		glog.Infof("display: headless, camera loop disabled")
	} else {
		goDisplay(gctx, g, cancel, cfg, state, runDisplay)
	}
	startServices(gctx, g, cfg, state, parser.Stats)
	return g.Wait()
}

// RunProducer runs the headless producer with the optional web server and
// panel.
func RunProducer(ctx context.Context, cfg *config.Config) error {
	state := gps.NewState()
	parser := NewSentenceParser(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return RunGPSProducer(gctx, cfg, state, parser)
	})
	startServices(gctx, g, cfg, state, parser.Stats)
	return g.Wait()
}

// RunDisplayOnly runs the camera display fed by fixes from MQTT. Without a
// broker the overlay reads "No GPS fix".
func RunDisplayOnly(ctx context.Context, cfg *config.Config, runDisplay DisplayFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := gps.NewState()
	if cfg.MQTT.Broker != "" {
		client, err := ConnectMQTT(cfg.MQTT.Broker, ClientID(cfg.MQTT.ClientIDPrefix, "display"))
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		if err := SubscribeFixes(client, cfg.MQTT.Topic, cfg.MQTT.QoS, state.Store); err != nil {
			return err
		}
	} else {
		glog.Warningf("display: mqtt.broker not set, no fixes will be shown")
	}

	g, gctx := errgroup.WithContext(ctx)
	goDisplay(gctx, g, cancel, cfg, state, runDisplay)
	startServices(gctx, g, cfg, state, nil)
	return g.Wait()
}

// goDisplay runs the display on a goroutine locked to its OS thread, as
// HighGUI requires, and cancels the whole group when it returns.
func goDisplay(ctx context.Context, g *errgroup.Group, cancel context.CancelFunc, cfg *config.Config, state *gps.State, run DisplayFunc) {
	g.Go(func() error {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer cancel()
		return run(ctx, cfg, state)
	})
}

func startServices(ctx context.Context, g *errgroup.Group, cfg *config.Config, state *gps.State, stats func() sentence.Stats) {
	if cfg.Web.Listen != "" {
		g.Go(func() error {
			return RunWeb(ctx, cfg.Web.Listen, WebHandler(state, stats))
		})
	}
	if cfg.Panel.Enable {
		g.Go(func() error {
			return RunPanel(ctx, cfg.Panel, state)
		})
	}
}

// RunWebMQTT serves the status API for fixes received over MQTT.
func RunWebMQTT(ctx context.Context, cfg *config.Config) error {
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("web: mqtt.broker is required")
	}
	client, err := ConnectMQTT(cfg.MQTT.Broker, ClientID(cfg.MQTT.ClientIDPrefix, "web"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	state := gps.NewState()
	if err := SubscribeFixes(client, cfg.MQTT.Topic, cfg.MQTT.QoS, state.Store); err != nil {
		return err
	}
	return RunWeb(ctx, cfg.Web.Listen, WebHandler(state, nil))
}
