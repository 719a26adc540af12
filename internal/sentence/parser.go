// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sentence extracts position fixes from receiver text lines and
// appends every accepted line to a plain-text log.
package sentence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/golang/glog"

	"github.com/relabs-tech/gnss_overlay/internal/gps"
)

// ErrMalformedSentence is returned for lines that carry the expected
// identifier but cannot be decoded into a usable fix.
var ErrMalformedSentence = errors.New("malformed sentence")

// Format selects which sentence layout the parser accepts.
type Format int

const (
	// FormatPLSATTIT is the receiver's proprietary attitude/position sentence:
	// $PLSATTIT,f1,f2,<quality>,f4,f5,f6,f7,f8,<lat>,<lon>,...
	FormatPLSATTIT Format = iota
	// FormatRMC is standard NMEA RMC ($GPRMC / $GNRMC), checksum required.
	FormatRMC
)

const (
	plsattitID = "$PLSATTIT"

	plsattitQualityField = 3
	plsattitLatField     = 9
	plsattitLonField     = 10
)

func (f Format) String() string {
	switch f {
	case FormatPLSATTIT:
		return "plsattit"
	case FormatRMC:
		return "rmc"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat maps a config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plsattit":
		return FormatPLSATTIT, nil
	case "rmc":
		return FormatRMC, nil
	default:
		return 0, fmt.Errorf("unknown sentence format %q (want plsattit or rmc)", s)
	}
}

// Options configures a Parser.
type Options struct {
	Format Format

	// VerifyChecksum rejects PLSATTIT lines whose "*hh" suffix does not match.
	// Lines without a checksum are still accepted.
	VerifyChecksum bool

	// Log receives every accepted raw line. Nil disables logging.
	Log Recorder
}

// Stats counts parser outcomes since construction.
type Stats struct {
	Accepted  uint64 `json:"accepted"`
	Rejected  uint64 `json:"rejected"`
	Malformed uint64 `json:"malformed"`
}

// Total is the number of lines seen.
func (s Stats) Total() uint64 {
	return s.Accepted + s.Rejected + s.Malformed
}

// Parser turns raw lines into fixes. It is safe for concurrent use; the
// counters are atomic and the log recorder is called once per accepted line.
type Parser struct {
	opts Options
	now  func() time.Time

	accepted  atomic.Uint64
	rejected  atomic.Uint64
	malformed atomic.Uint64
}

// New creates a Parser.
func New(opts Options) *Parser {
	return &Parser{opts: opts, now: time.Now}
}

// Format reports the configured sentence format.
func (p *Parser) Format() Format {
	return p.opts.Format
}

// Stats returns a snapshot of the outcome counters.
func (p *Parser) Stats() Stats {
	return Stats{
		Accepted:  p.accepted.Load(),
		Rejected:  p.rejected.Load(),
		Malformed: p.malformed.Load(),
	}
}

// Parse inspects one line. It returns ok=false with a nil error for lines
// that do not carry a usable fix (wrong identifier, no 3D fix), and an error
// wrapping ErrMalformedSentence for lines that match but cannot be decoded.
// Only accepted lines are written to the log.
func (p *Parser) Parse(line string) (gps.Fix, bool, error) {
	var (
		fix gps.Fix
		ok  bool
		err error
	)
	switch p.opts.Format {
	case FormatRMC:
		fix, ok, err = p.parseRMC(line)
	default:
		fix, ok, err = p.parsePLSATTIT(line)
	}

	switch {
	case err != nil:
		p.malformed.Add(1)
		return gps.Fix{}, false, err
	case !ok:
		p.rejected.Add(1)
		return gps.Fix{}, false, nil
	}

	p.accepted.Add(1)
	p.record(line)
	return fix, true, nil
}

func (p *Parser) parsePLSATTIT(line string) (gps.Fix, bool, error) {
	payload, checksum, hasChecksum := strings.Cut(line, "*")

	fields := strings.Split(payload, ",")
	if fields[0] != plsattitID {
		return gps.Fix{}, false, nil
	}
	if len(fields) <= plsattitQualityField {
		return gps.Fix{}, false, fmt.Errorf("%w: %d fields", ErrMalformedSentence, len(fields))
	}
	if fields[plsattitQualityField] != gps.Quality3D {
		return gps.Fix{}, false, nil
	}
	if len(fields) <= plsattitLonField {
		return gps.Fix{}, false, fmt.Errorf("%w: %d fields, need %d", ErrMalformedSentence, len(fields), plsattitLonField+1)
	}

	if p.opts.VerifyChecksum && hasChecksum {
		want := nmea.Checksum(strings.TrimPrefix(payload, "$"))
		got := strings.TrimSpace(checksum)
		if len(got) > 2 {
			got = got[:2]
		}
		if !strings.EqualFold(got, want) {
			return gps.Fix{}, false, fmt.Errorf("%w: checksum %q, want %q", ErrMalformedSentence, got, want)
		}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[plsattitLatField]), 64)
	if err != nil {
		return gps.Fix{}, false, fmt.Errorf("%w: latitude %q", ErrMalformedSentence, fields[plsattitLatField])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(fields[plsattitLonField]), 64)
	if err != nil {
		return gps.Fix{}, false, fmt.Errorf("%w: longitude %q", ErrMalformedSentence, fields[plsattitLonField])
	}

	fix := gps.Fix{
		Latitude:  lat,
		Longitude: lon,
		Quality:   gps.Quality3D,
		Time:      p.now(),
	}
	if err := fix.Validate(); err != nil {
		return gps.Fix{}, false, fmt.Errorf("%w: %v", ErrMalformedSentence, err)
	}
	return fix, true, nil
}

func (p *Parser) parseRMC(line string) (gps.Fix, bool, error) {
	head, _, _ := strings.Cut(line, ",")
	if !strings.HasPrefix(head, "$") || !strings.HasSuffix(head, nmea.TypeRMC) {
		return gps.Fix{}, false, nil
	}

	s, err := nmea.Parse(line)
	if err != nil {
		return gps.Fix{}, false, fmt.Errorf("%w: %v", ErrMalformedSentence, err)
	}
	m, isRMC := s.(nmea.RMC)
	if !isRMC {
		return gps.Fix{}, false, nil
	}
	if m.Validity != nmea.ValidRMC {
		return gps.Fix{}, false, nil
	}

	fix := gps.Fix{
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Quality:   string(m.Validity),
		Time:      p.now(),
	}
	if err := fix.Validate(); err != nil {
		return gps.Fix{}, false, fmt.Errorf("%w: %v", ErrMalformedSentence, err)
	}
	return fix, true, nil
}

func (p *Parser) record(line string) {
	if p.opts.Log == nil {
		return
	}
	if err := p.opts.Log.Append(line); err != nil {
		glog.Warningf("gps: sentence log write failed: %v", err)
	}
}
