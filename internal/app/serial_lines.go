// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// maxPendingLine bounds a line still waiting for its newline. Longer runs of
// garbage are dropped.
const maxPendingLine = 4096

// maxEarlyEOF is how many empty reads in a row may return well before the
// read timeout before the port is considered hung up.
const maxEarlyEOF = 3

// ErrReceiverDisconnected is returned when the port keeps reporting end of
// file without waiting for data, as a tty does once the device is unplugged.
var ErrReceiverDisconnected = fmt.Errorf("receiver disconnected: %w", io.ErrUnexpectedEOF)

// SerialLineReader splits a serial stream into trimmed lines. A read that
// returns no data after the port's inter-character timeout yields an empty
// line; bytes of an unfinished line are kept for the next call.
type SerialLineReader struct {
	r       io.Reader
	timeout time.Duration
	now     func() time.Time

	buf      []byte
	pending  []byte
	earlyEOF int
}

// NewSerialLineReader wraps an open port whose reads time out after timeout.
// A zero timeout disables hang-up detection.
func NewSerialLineReader(r io.Reader, timeout time.Duration) *SerialLineReader {
	return &SerialLineReader{r: r, timeout: timeout, now: time.Now, buf: make([]byte, 256)}
}

// ReadLine returns the next complete line, or "" on a read timeout.
func (s *SerialLineReader) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := decodeASCII(s.pending[:i])
			s.pending = append(s.pending[:0], s.pending[i+1:]...)
			return line, nil
		}

		start := s.now()
		n, err := s.r.Read(s.buf)
		s.pending = append(s.pending, s.buf[:n]...)
		s.trimPending()
		if n > 0 {
			s.earlyEOF = 0
		}
		if err != nil {
			// A tty with VMIN=0 reports a timeout as a zero-length read,
			// which os.File surfaces as io.EOF.
			if errors.Is(err, io.EOF) && n == 0 {
				return "", s.emptyRead(start)
			}
			return "", err
		}
		if n == 0 {
			return "", s.emptyRead(start)
		}
	}
}

// emptyRead tells a genuine timeout from a hung-up port, which returns
// immediately on every read.
func (s *SerialLineReader) emptyRead(start time.Time) error {
	if s.timeout <= 0 || s.now().Sub(start) >= s.timeout/2 {
		s.earlyEOF = 0
		return nil
	}
	s.earlyEOF++
	if s.earlyEOF >= maxEarlyEOF {
		return ErrReceiverDisconnected
	}
	return nil
}

// trimPending keeps complete lines when the buffer overflows and drops the
// unterminated tail if it alone exceeds the bound.
func (s *SerialLineReader) trimPending() {
	if len(s.pending) <= maxPendingLine {
		return
	}
	i := bytes.LastIndexByte(s.pending, '\n')
	if i < 0 {
		s.pending = s.pending[:0]
		return
	}
	if len(s.pending)-(i+1) > maxPendingLine {
		s.pending = s.pending[:i+1]
	}
}

// decodeASCII replaces every non-ASCII byte with U+FFFD and trims spaces.
func decodeASCII(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c < utf8.RuneSelf {
			sb.WriteByte(c)
		} else {
			sb.WriteRune(utf8.RuneError)
		}
	}
	return strings.TrimSpace(sb.String())
}
