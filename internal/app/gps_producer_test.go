// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/relabs-tech/gnss_overlay/internal/config"
	"github.com/relabs-tech/gnss_overlay/internal/gps"
	"github.com/relabs-tech/gnss_overlay/internal/sentence"
)

const plsattitLine = "$PLSATTIT,123519.00,45.00,3,0.00,0.00,0.0,0.0,0.0,24.1234567,121.7654321,12.30"

type fakeLink struct {
	sent  []common.MessageGpsInput
	err   error
	state *gps.State
	seen  []bool
}

func (l *fakeLink) SendGPSInput(m *common.MessageGpsInput) error {
	l.sent = append(l.sent, *m)
	if l.state != nil {
		_, ok := l.state.Load()
		l.seen = append(l.seen, ok)
	}
	return l.err
}

type recordingSink struct{ fixes []gps.Fix }

func (s *recordingSink) PublishFix(f gps.Fix) error {
	s.fixes = append(s.fixes, f)
	return errors.New("broker down") // must not stop the producer
}

// scriptedLines replays lines, then reports err (or blocks on ctx).
type scriptedLines struct {
	lines []string
	err   error
}

func (s *scriptedLines) ReadLine() (string, error) {
	if len(s.lines) == 0 {
		return "", s.err
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l, nil
}

func newTestProducer(link *fakeLink) (*Producer, *gps.State, *recordingSink) {
	state := gps.NewState()
	link.state = state
	sink := &recordingSink{}
	return &Producer{
		Parser:         sentence.New(sentence.Options{}),
		Link:           link,
		State:          state,
		Sinks:          []FixSink{sink},
		RepeatCount:    5,
		RepeatInterval: time.Millisecond,
	}, state, sink
}

func TestProducer_SendsFiveIdenticalMessages(t *testing.T) {
	link := &fakeLink{}
	p, state, sink := newTestProducer(link)

	if err := p.HandleLine(context.Background(), plsattitLine); err != nil {
		t.Fatalf("HandleLine() error: %v", err)
	}
	if len(link.sent) != 5 {
		t.Fatalf("sent=%d messages, want 5", len(link.sent))
	}
	for i, m := range link.sent {
		if m != link.sent[0] {
			t.Fatalf("message %d differs: %+v vs %+v", i, m, link.sent[0])
		}
		if !link.seen[i] {
			t.Fatalf("state empty when message %d was sent", i)
		}
	}
	m := link.sent[0]
	if m.Lat != 241234567 || m.Lon != 1217654321 {
		t.Fatalf("lat/lon=%d/%d", m.Lat, m.Lon)
	}
	if m.FixType != 3 || m.SatellitesVisible != 7 || m.Hdop != float32(0.7) || m.Vdop != float32(0.7) || m.Alt != 0 {
		t.Fatalf("fixed fields=%+v", m)
	}

	fix, ok := state.Load()
	if !ok || fix.Latitude != 24.1234567 || fix.Longitude != 121.7654321 {
		t.Fatalf("state=%+v ok=%v", fix, ok)
	}
	p.WaitPublished()
	if len(sink.fixes) != 1 {
		t.Fatalf("sink got %d fixes, want 1", len(sink.fixes))
	}
}

func TestProducer_IgnoresLinesWithoutFix(t *testing.T) {
	link := &fakeLink{}
	p, state, sink := newTestProducer(link)

	for _, line := range []string{
		"",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$PLSATTIT,123519.00,45.00,1,0.00,0.00,0.0,0.0,0.0,24.1234567,121.7654321,12.30",
		"$PLSATTIT,1,2,3",
	} {
		if err := p.HandleLine(context.Background(), line); err != nil {
			t.Fatalf("HandleLine(%q) error: %v", line, err)
		}
	}
	if len(link.sent) != 0 || len(sink.fixes) != 0 {
		t.Fatalf("sent=%d published=%d", len(link.sent), len(sink.fixes))
	}
	if _, ok := state.Load(); ok {
		t.Fatalf("state should still be empty")
	}
}

func TestProducer_CadenceIsConfigurable(t *testing.T) {
	link := &fakeLink{}
	p, _, _ := newTestProducer(link)
	p.RepeatCount = 2
	p.RepeatInterval = 20 * time.Millisecond

	start := time.Now()
	if err := p.HandleLine(context.Background(), plsattitLine); err != nil {
		t.Fatalf("HandleLine() error: %v", err)
	}
	if len(link.sent) != 2 {
		t.Fatalf("sent=%d", len(link.sent))
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("elapsed=%s, want >= 40ms", elapsed)
	}
}

func TestProducer_RunStopsOnReadError(t *testing.T) {
	link := &fakeLink{}
	p, _, _ := newTestProducer(link)
	boom := errors.New("device unplugged")

	err := p.Run(context.Background(), &scriptedLines{lines: []string{"", plsattitLine, "noise"}, err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
	if len(link.sent) != 5 {
		t.Fatalf("sent=%d", len(link.sent))
	}
}

func TestProducer_RunLinkErrorIsFatal(t *testing.T) {
	boom := errors.New("link write")
	link := &fakeLink{err: boom}
	p, _, _ := newTestProducer(link)

	err := p.Run(context.Background(), &scriptedLines{lines: []string{plsattitLine}})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
	if len(link.sent) != 1 {
		t.Fatalf("sent=%d, want to stop after the first failure", len(link.sent))
	}
}

func TestProducer_RunHonoursCancel(t *testing.T) {
	link := &fakeLink{}
	p, _, _ := newTestProducer(link)
	p.RepeatInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, &scriptedLines{lines: []string{plsattitLine}})
	}()

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := p.State.Load(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("fix never stored")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error after cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return after cancel")
	}
}

// stalledSink blocks every publish until release is closed, like a broker
// that never acknowledges.
type stalledSink struct {
	release chan struct{}
	calls   atomic.Int32
}

func (s *stalledSink) PublishFix(gps.Fix) error {
	s.calls.Add(1)
	<-s.release
	return nil
}

func TestProducer_StalledSinkDoesNotDelaySends(t *testing.T) {
	link := &fakeLink{}
	p, _, _ := newTestProducer(link)
	sink := &stalledSink{release: make(chan struct{})}
	p.Sinks = []FixSink{sink}

	done := make(chan error, 1)
	go func() {
		if err := p.HandleLine(context.Background(), plsattitLine); err != nil {
			done <- err
			return
		}
		done <- p.HandleLine(context.Background(), plsattitLine)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("HandleLine() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sends blocked behind the sink")
	}
	if len(link.sent) != 10 {
		t.Fatalf("sent=%d, want 10", len(link.sent))
	}

	close(sink.release)
	p.WaitPublished()
	if n := sink.calls.Load(); n != 1 {
		t.Fatalf("sink calls=%d, want 1 while the first publish was in flight", n)
	}
}

func TestProducer_RunFailsWhenReceiverHangsUp(t *testing.T) {
	link := &fakeLink{}
	p, _, _ := newTestProducer(link)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.Run(ctx, NewSerialLineReader(&hungUpPort{}, time.Second))
	if !errors.Is(err, ErrReceiverDisconnected) {
		t.Fatalf("err=%v, want ErrReceiverDisconnected", err)
	}
	if ctx.Err() != nil {
		t.Fatalf("Run() only returned at the deadline")
	}
}

func TestSerialOptions(t *testing.T) {
	cases := []struct {
		timeout time.Duration
		want    uint
	}{
		{time.Second, 1000},
		{250 * time.Millisecond, 200},
		{10 * time.Millisecond, 100},
		{time.Minute, 25500},
	}
	for _, tc := range cases {
		opts := serialOptions(config.GPSConfig{Device: "/dev/ttyUSB1", Baud: 115200, ReadTimeout: tc.timeout})
		if opts.InterCharacterTimeout != tc.want {
			t.Fatalf("timeout %s: got %d want %d", tc.timeout, opts.InterCharacterTimeout, tc.want)
		}
		if opts.MinimumReadSize != 0 || opts.BaudRate != 115200 || opts.PortName != "/dev/ttyUSB1" {
			t.Fatalf("opts=%+v", opts)
		}
	}
}
