// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/golang/glog"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gnss_overlay/internal/config"
	"github.com/relabs-tech/gnss_overlay/internal/fclink"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
	"github.com/relabs-tech/gnss_overlay/internal/sentence"
)

// GPSLink is the outbound half of the flight-controller link.
type GPSLink interface {
	SendGPSInput(*common.MessageGpsInput) error
}

// FixSink receives each accepted fix once, e.g. the MQTT publisher. Sinks run
// off the send path; a fix arriving while the previous publish is still in
// flight is not published.
type FixSink interface {
	PublishFix(gps.Fix) error
}

// LineReader yields receiver lines. An empty line with a nil error means
// the read timed out.
type LineReader interface {
	ReadLine() (string, error)
}

// Producer parses receiver lines and forwards every fix to the flight
// controller at a steady cadence.
type Producer struct {
	Parser *sentence.Parser
	Link   GPSLink
	State  *gps.State
	Sinks  []FixSink

	RepeatCount    int
	RepeatInterval time.Duration

	publishing sync.WaitGroup
	busy       atomic.Bool
}

// RunGPSProducer dials the flight controller, waits for its heartbeat, opens
// the receiver port and runs the producer until ctx is done or I/O fails.
// A missing heartbeat is fatal.
func RunGPSProducer(ctx context.Context, cfg *config.Config, state *gps.State, parser *sentence.Parser) error {
	fc := cfg.FlightController
	link, err := fclink.Dial(fclink.Config{
		Device:     fc.Device,
		Baud:       fc.Baud,
		UDPAddress: fc.UDPAddress,
		SystemID:   byte(fc.SystemID),
	})
	if err != nil {
		return err
	}
	defer link.Close()

	glog.Infof("gps: waiting up to %s for flight-controller heartbeat", fc.HeartbeatTimeout)
	hb, err := link.WaitHeartbeat(ctx, fc.HeartbeatTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("gps: %w", err)
	}
	glog.Infof("gps: heartbeat from system %d component %d (%s, %s)", hb.SystemID, hb.ComponentID, hb.Type, hb.Autopilot)

	port, err := serial.Open(serialOptions(cfg.GPS))
	if err != nil {
		return fmt.Errorf("gps: open %s: %w", cfg.GPS.Device, err)
	}
	defer port.Close()
	glog.Infof("gps: serial port opened on %s at %d baud", cfg.GPS.Device, cfg.GPS.Baud)

	var sinks []FixSink
	if cfg.MQTT.Broker != "" {
		client, err := ConnectMQTT(cfg.MQTT.Broker, ClientID(cfg.MQTT.ClientIDPrefix, "producer"))
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		sinks = append(sinks, &FixPublisher{Client: client, Topic: cfg.MQTT.Topic, QoS: cfg.MQTT.QoS, Timeout: cfg.MQTT.PublishTimeout})
	}

	p := &Producer{
		Parser:         parser,
		Link:           link,
		State:          state,
		Sinks:          sinks,
		RepeatCount:    cfg.GPS.RepeatCount,
		RepeatInterval: *cfg.GPS.RepeatInterval,
	}

	go logParserStats(ctx, parser, cfg.GPS.StatsInterval)

	// Closing the port unblocks a pending read on shutdown.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()

	return p.Run(ctx, NewSerialLineReader(port, portReadTimeout(cfg.GPS)))
}

// portReadTimeout is the read timeout the driver actually applies: a
// multiple of 100ms, at most 25.5s.
func portReadTimeout(c config.GPSConfig) time.Duration {
	timeout := c.ReadTimeout / (100 * time.Millisecond) * (100 * time.Millisecond)
	switch {
	case timeout < 100*time.Millisecond:
		timeout = 100 * time.Millisecond
	case timeout > 25500*time.Millisecond:
		timeout = 25500 * time.Millisecond
	}
	return timeout
}

func serialOptions(c config.GPSConfig) serial.OpenOptions {
	timeout := portReadTimeout(c).Milliseconds()
	return serial.OpenOptions{
		PortName:              c.Device,
		BaudRate:              uint(c.Baud),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: uint(timeout),
	}
}

// Run reads lines until ctx is done (nil) or the reader fails.
func (p *Producer) Run(ctx context.Context, lines LineReader) error {
	defer p.WaitPublished()
	for {
		if ctx.Err() != nil {
			glog.Infof("gps: stopping: %v", ctx.Err())
			return nil
		}
		line, err := lines.ReadLine()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("gps: read: %w", err)
		}
		if err := p.HandleLine(ctx, line); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// HandleLine parses one line and, on a fix, sends it RepeatCount times.
// Lines without a fix are ignored.
func (p *Producer) HandleLine(ctx context.Context, line string) error {
	if line == "" {
		return nil
	}
	fix, ok, err := p.Parser.Parse(line)
	if err != nil {
		if glog.V(1) {
			glog.Infof("gps: %v: %q", err, line)
		}
		return nil
	}
	if !ok {
		return nil
	}
	return p.forward(ctx, fix)
}

func (p *Producer) forward(ctx context.Context, fix gps.Fix) error {
	latE7, lonE7 := fix.E7()
	msg := fclink.GPSInput(latE7, lonE7)

	p.publish(fix)

	repeat := p.RepeatCount
	if repeat < 1 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		p.State.Store(fix)
		if err := p.Link.SendGPSInput(msg); err != nil {
			return err
		}
		if glog.V(1) {
			glog.Infof("gps: sent GPS_INPUT lat=%d lon=%d (%d/%d)", latE7, lonE7, i+1, repeat)
		}
		if err := sleepCtx(ctx, p.RepeatInterval); err != nil {
			return err
		}
	}
	return nil
}

// publish hands fix to the sinks on a separate goroutine so a stalled
// broker never delays GPS_INPUT.
func (p *Producer) publish(fix gps.Fix) {
	if len(p.Sinks) == 0 {
		return
	}
	if !p.busy.CompareAndSwap(false, true) {
		if glog.V(1) {
			glog.Infof("gps: previous fix still publishing, skipping")
		}
		return
	}
	p.publishing.Add(1)
	go func() {
		defer p.publishing.Done()
		defer p.busy.Store(false)
		for _, s := range p.Sinks {
			if err := s.PublishFix(fix); err != nil {
				glog.Warningf("gps: publish fix: %v", err)
			}
		}
	}()
}

// WaitPublished blocks until the in-flight sink publish, if any, returns.
func (p *Producer) WaitPublished() {
	p.publishing.Wait()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func logParserStats(ctx context.Context, parser *sentence.Parser, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var last sentence.Stats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := parser.Stats()
			if glog.V(1) {
				glog.Infof("gps: lines in last %s: accepted=%d rejected=%d malformed=%d",
					every, s.Accepted-last.Accepted, s.Rejected-last.Rejected, s.Malformed-last.Malformed)
			}
			last = s
		}
	}
}
