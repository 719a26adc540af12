// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relabs-tech/gnss_overlay/internal/config"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

func TestRunDisplayOnly_QuitStopsServices(t *testing.T) {
	cfg := config.Default()
	cfg.Web.Listen = "127.0.0.1:0"

	var gotState *gps.State
	quit := func(ctx context.Context, _ *config.Config, state *gps.State) error {
		gotState = state
		time.Sleep(20 * time.Millisecond)
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- RunDisplayOnly(context.Background(), cfg, quit) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunDisplayOnly() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("web server kept running after the display quit")
	}
	if gotState == nil {
		t.Fatalf("display was not started")
	}
	if _, ok := gotState.Load(); ok {
		t.Fatalf("no broker configured, state should be empty")
	}
}

func TestRunDisplayOnly_DisplayErrorIsReturned(t *testing.T) {
	lost := errors.New("video source lost")
	fail := func(context.Context, *config.Config, *gps.State) error { return lost }

	if err := RunDisplayOnly(context.Background(), config.Default(), fail); !errors.Is(err, lost) {
		t.Fatalf("err=%v, want %v", err, lost)
	}
}
