// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gnss_overlay/internal/gps"
	"github.com/relabs-tech/gnss_overlay/internal/sentence"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebHandler serves the latest fix, parser counters and a live fix stream.
// stats may be nil when this process does not parse sentences.
func WebHandler(state *gps.State, stats func() sentence.Stats) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/fix", func(w http.ResponseWriter, r *http.Request) {
		fix, ok := state.Load()
		if !ok {
			http.Error(w, "no fix yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, fix)
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		var s sentence.Stats
		if stats != nil {
			s = stats()
		}
		writeJSON(w, s)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			glog.Warningf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()
		streamFixes(r.Context(), conn, state)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("web: json encode error: %v", err)
	}
}

// streamFixes pushes the current fix, then every new one, until the client
// goes away.
func streamFixes(ctx context.Context, conn *websocket.Conn, state *gps.State) {
	updates, cancel := state.Subscribe()
	defer cancel()

	// The read side only detects the close handshake.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					glog.Warningf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	send := func(f gps.Fix) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(f); err != nil {
			if glog.V(1) {
				glog.Infof("web: websocket write: %v", err)
			}
			return false
		}
		return true
	}

	if fix, ok := state.Load(); ok && !send(fix) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case f, ok := <-updates:
			if !ok || !send(f) {
				return
			}
		}
	}
}

// RunWeb serves handler on listen until ctx is done.
func RunWeb(ctx context.Context, listen string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	glog.Infof("web: server listening on %s", listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
