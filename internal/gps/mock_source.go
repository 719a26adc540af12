// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"math"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// LineSource yields raw receiver lines one at a time.
type LineSource interface {
	Next() (string, error)
}

// MockSource generates PLSATTIT sentences for a receiver that walks a small
// circle around a centre point. Every fourth line reports no 3D fix so that
// consumers see rejected lines too.
type MockSource struct {
	CenterLat float64
	CenterLon float64
	RadiusDeg float64

	start time.Time
	now   func() time.Time
	seq   int
}

// NewMockSource creates a mock receiver circling (lat, lon).
func NewMockSource(lat, lon float64) *MockSource {
	return &MockSource{
		CenterLat: lat,
		CenterLon: lon,
		RadiusDeg: 0.0005,
		start:     time.Now(),
		now:       time.Now,
	}
}

// Next returns the next sentence, checksum included.
func (m *MockSource) Next() (string, error) {
	now := m.now()
	elapsed := now.Sub(m.start).Seconds()

	quality := Quality3D
	if m.seq%4 == 3 {
		quality = "1"
	}
	m.seq++

	lat := m.CenterLat + m.RadiusDeg*math.Sin(elapsed/10)
	lon := m.CenterLon + m.RadiusDeg*math.Cos(elapsed/10)
	heading := math.Mod(elapsed*36, 360)

	payload := fmt.Sprintf("PLSATTIT,%s,%.2f,%s,0.00,0.00,0.0,0.0,0.0,%.7f,%.7f,12.30",
		now.UTC().Format("150405.00"), heading, quality, lat, lon)
	return fmt.Sprintf("$%s*%s", payload, nmea.Checksum(payload)), nil
}
