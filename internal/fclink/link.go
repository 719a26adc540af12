// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fclink talks MAVLink to the flight controller: it waits for the
// autopilot heartbeat and forwards position fixes as GPS_INPUT messages.
package fclink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/golang/glog"
)

// ErrNoHeartbeat is returned when the autopilot does not announce itself in time.
var ErrNoHeartbeat = errors.New("no flight-controller heartbeat")

// Config selects the MAVLink endpoint. UDPAddress, when set, takes precedence
// over the serial device (useful against SITL).
type Config struct {
	Device     string
	Baud       int
	UDPAddress string
	SystemID   byte
}

// Heartbeat identifies the autopilot that answered.
type Heartbeat struct {
	SystemID    uint8
	ComponentID uint8
	Type        string
	Autopilot   string
}

// Link is a MAVLink session owned by the GPS producer.
type Link struct {
	heartbeats chan Heartbeat
	write      func(message.Message) error
	close      func()

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens the MAVLink endpoint and starts draining incoming traffic.
func Dial(cfg Config) (*Link, error) {
	var ep gomavlib.EndpointConf
	switch {
	case cfg.UDPAddress != "":
		ep = gomavlib.EndpointUDPClient{Address: cfg.UDPAddress}
	case cfg.Device != "":
		ep = gomavlib.EndpointSerial{Device: cfg.Device, Baud: cfg.Baud}
	default:
		return nil, fmt.Errorf("fclink: no device or udp address configured")
	}

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:   []gomavlib.EndpointConf{ep},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: cfg.SystemID,
	})
	if err != nil {
		return nil, fmt.Errorf("fclink: open node: %w", err)
	}

	l := &Link{
		heartbeats: make(chan Heartbeat, 1),
		write:      node.WriteMessageAll,
		close:      node.Close,
		done:       make(chan struct{}),
	}
	go l.drain(node.Events())
	return l, nil
}

// drain consumes node events so the node never stalls, and forwards the
// latest heartbeat to WaitHeartbeat.
func (l *Link) drain(events <-chan gomavlib.Event) {
	for evt := range events {
		switch e := evt.(type) {
		case *gomavlib.EventFrame:
			hb, ok := e.Message().(*common.MessageHeartbeat)
			if !ok {
				continue
			}
			beat := Heartbeat{
				SystemID:    e.SystemID(),
				ComponentID: e.ComponentID(),
				Type:        fmt.Sprint(hb.Type),
				Autopilot:   fmt.Sprint(hb.Autopilot),
			}
			if glog.V(2) {
				glog.Infof("fclink: heartbeat sys=%d comp=%d", beat.SystemID, beat.ComponentID)
			}
			l.offer(beat)
		case *gomavlib.EventChannelOpen:
			glog.Infof("fclink: channel open: %v", e.Channel)
		case *gomavlib.EventChannelClose:
			glog.Warningf("fclink: channel closed: %v", e.Channel)
		case *gomavlib.EventParseError:
			if glog.V(1) {
				glog.Infof("fclink: parse error: %v", e.Error)
			}
		}
	}
}

// offer keeps only the newest heartbeat in the buffer.
func (l *Link) offer(hb Heartbeat) {
	select {
	case l.heartbeats <- hb:
		return
	default:
	}
	select {
	case <-l.heartbeats:
	default:
	}
	select {
	case l.heartbeats <- hb:
	default:
	}
}

// WaitHeartbeat blocks until the autopilot sends a heartbeat, the timeout
// elapses (ErrNoHeartbeat), or ctx is cancelled.
func (l *Link) WaitHeartbeat(ctx context.Context, timeout time.Duration) (Heartbeat, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case hb := <-l.heartbeats:
		return hb, nil
	case <-timer.C:
		return Heartbeat{}, fmt.Errorf("%w within %s", ErrNoHeartbeat, timeout)
	case <-l.done:
		return Heartbeat{}, fmt.Errorf("%w: link closed", ErrNoHeartbeat)
	case <-ctx.Done():
		return Heartbeat{}, ctx.Err()
	}
}

// SendGPSInput writes msg to every open channel.
func (l *Link) SendGPSInput(msg *common.MessageGpsInput) error {
	if err := l.write(msg); err != nil {
		return fmt.Errorf("fclink: write GPS_INPUT: %w", err)
	}
	return nil
}

// Close shuts the node down. It is safe to call more than once.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		if l.close != nil {
			l.close()
		}
	})
	return nil
}
