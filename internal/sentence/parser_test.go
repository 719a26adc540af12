// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sentence

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const goodLine = "$PLSATTIT,123519.00,45.00,3,0.00,0.00,0.0,0.0,0.0,24.1234567,121.7654321,12.30"

type memLog struct {
	lines []string
	err   error
}

func (m *memLog) Append(line string) error {
	m.lines = append(m.lines, line)
	return m.err
}

func newTestParser(t *testing.T, format Format) (*Parser, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultLogPath)
	return New(Options{Format: format, Log: FileLog{Path: path}}), path
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ""
	}
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	return string(b)
}

func TestParse_WellFormedLine(t *testing.T) {
	p, path := newTestParser(t, FormatPLSATTIT)

	fix, ok, err := p.Parse(goodLine)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !ok {
		t.Fatalf("expected fix")
	}
	if fix.Latitude != 24.1234567 || fix.Longitude != 121.7654321 {
		t.Fatalf("fix=%+v", fix)
	}
	if fix.Quality != "3" {
		t.Fatalf("quality=%q", fix.Quality)
	}
	if got := readLog(t, path); got != goodLine+"\n" {
		t.Fatalf("log=%q want %q", got, goodLine+"\n")
	}

	// Append-only: a second accepted line follows the first.
	if _, _, err := p.Parse(goodLine); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := readLog(t, path); got != goodLine+"\n"+goodLine+"\n" {
		t.Fatalf("log after two lines=%q", got)
	}
}

func TestParse_IgnoresOtherSentences(t *testing.T) {
	lines := []string{
		"",
		"garbage",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GNRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70",
		"PLSATTIT,123519.00,45.00,3,0.00,0.00,0.0,0.0,0.0,24.1,121.7",
		"$PLSATTITX,123519.00,45.00,3,0.00,0.00,0.0,0.0,0.0,24.1,121.7",
	}
	for _, line := range lines {
		p, path := newTestParser(t, FormatPLSATTIT)
		_, ok, err := p.Parse(line)
		if err != nil || ok {
			t.Fatalf("Parse(%q)=(ok=%v, err=%v), want none", line, ok, err)
		}
		if got := readLog(t, path); got != "" {
			t.Fatalf("Parse(%q) wrote log %q", line, got)
		}
	}
}

func TestParse_RequiresQuality3(t *testing.T) {
	for _, q := range []string{"0", "1", "2", "4", "", " 3", "3.0"} {
		line := "$PLSATTIT,123519.00,45.00," + q + ",0.00,0.00,0.0,0.0,0.0,24.1234567,121.7654321,12.30"
		p, path := newTestParser(t, FormatPLSATTIT)
		_, ok, err := p.Parse(line)
		if err != nil || ok {
			t.Fatalf("quality %q: ok=%v err=%v, want none", q, ok, err)
		}
		if got := readLog(t, path); got != "" {
			t.Fatalf("quality %q wrote log %q", q, got)
		}
	}
}

func TestParse_MalformedSentence(t *testing.T) {
	cases := map[string]string{
		"short":         "$PLSATTIT,1,2",
		"missing lon":   "$PLSATTIT,123519.00,45.00,3,0.00,0.00,0.0,0.0,0.0,24.1234567",
		"bad lat":       "$PLSATTIT,123519.00,45.00,3,0.00,0.00,0.0,0.0,0.0,abc,121.7654321",
		"bad lon":       "$PLSATTIT,123519.00,45.00,3,0.00,0.00,0.0,0.0,0.0,24.1,",
		"lat too large": "$PLSATTIT,123519.00,45.00,3,0.00,0.00,0.0,0.0,0.0,95.0,121.7",
		"lon too large": "$PLSATTIT,123519.00,45.00,3,0.00,0.00,0.0,0.0,0.0,24.0,181.0",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			p, path := newTestParser(t, FormatPLSATTIT)
			_, ok, err := p.Parse(line)
			if ok {
				t.Fatalf("expected no fix")
			}
			if !errors.Is(err, ErrMalformedSentence) {
				t.Fatalf("err=%v, want ErrMalformedSentence", err)
			}
			if got := readLog(t, path); got != "" {
				t.Fatalf("malformed line wrote log %q", got)
			}
		})
	}
}

func TestParse_Checksum(t *testing.T) {
	withSum := goodLine + "*34"
	badSum := goodLine + "*00"

	p := New(Options{VerifyChecksum: true})
	if _, ok, err := p.Parse(withSum); err != nil || !ok {
		t.Fatalf("valid checksum: ok=%v err=%v", ok, err)
	}
	if _, _, err := p.Parse(badSum); !errors.Is(err, ErrMalformedSentence) {
		t.Fatalf("bad checksum: err=%v", err)
	}
	if _, ok, err := p.Parse(goodLine); err != nil || !ok {
		t.Fatalf("no checksum: ok=%v err=%v", ok, err)
	}

	// Without verification the suffix is stripped but not checked.
	lax := New(Options{})
	fix, ok, err := lax.Parse(badSum)
	if err != nil || !ok {
		t.Fatalf("lax: ok=%v err=%v", ok, err)
	}
	if fix.Longitude != 121.7654321 {
		t.Fatalf("lon=%v", fix.Longitude)
	}
}

func TestParse_LogFailureIsNotFatal(t *testing.T) {
	log := &memLog{err: errors.New("disk full")}
	p := New(Options{Log: log})

	fix, ok, err := p.Parse(goodLine)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if fix.Latitude != 24.1234567 {
		t.Fatalf("fix=%+v", fix)
	}
	if len(log.lines) != 1 || log.lines[0] != goodLine {
		t.Fatalf("log lines=%q", log.lines)
	}
}

func TestParse_RMC(t *testing.T) {
	log := &memLog{}
	p := New(Options{Format: FormatRMC, Log: log})

	valid := "$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"
	fix, ok, err := p.Parse(valid)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if math.Abs(fix.Latitude-51.5636666) > 1e-5 {
		t.Fatalf("lat=%v", fix.Latitude)
	}
	if math.Abs(fix.Longitude-(-0.704)) > 1e-5 {
		t.Fatalf("lon=%v", fix.Longitude)
	}
	if fix.Quality != "A" {
		t.Fatalf("quality=%q", fix.Quality)
	}

	void := "$GPRMC,220516,V,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*67"
	if _, ok, err := p.Parse(void); ok || err != nil {
		t.Fatalf("void: ok=%v err=%v", ok, err)
	}
	if _, ok, err := p.Parse(goodLine); ok || err != nil {
		t.Fatalf("plsattit in rmc mode: ok=%v err=%v", ok, err)
	}
	if _, _, err := p.Parse("$GPRMC,220516,A,5133.82,N*00"); !errors.Is(err, ErrMalformedSentence) {
		t.Fatalf("broken rmc: err=%v", err)
	}
	if len(log.lines) != 1 || log.lines[0] != valid {
		t.Fatalf("log lines=%q", log.lines)
	}
}

func TestParser_Stats(t *testing.T) {
	p := New(Options{})
	p.Parse(goodLine)
	p.Parse(goodLine)
	p.Parse("$GPGGA,foo")
	p.Parse("$PLSATTIT,1,2")

	s := p.Stats()
	if s.Accepted != 2 || s.Rejected != 1 || s.Malformed != 1 {
		t.Fatalf("stats=%+v", s)
	}
	if s.Total() != 4 {
		t.Fatalf("total=%d", s.Total())
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatPLSATTIT, true},
		{"PLSATTIT", FormatPLSATTIT, true},
		{" rmc ", FormatRMC, true},
		{"gga", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseFormat(%q)=(%v,%v)", tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseFormat(%q) expected error", tc.in)
		}
	}
	if FormatRMC.String() != "rmc" || FormatPLSATTIT.String() != "plsattit" {
		t.Fatalf("String() mismatch")
	}
}
