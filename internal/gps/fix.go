// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"math"
	"time"
)

// Quality3D is the fix-quality token the receiver reports for a 3D fix.
const Quality3D = "3"

// Fix represents a single resolved position suitable for JSON and MQTT.
type Fix struct {
	Latitude  float64   `json:"lat"`     // decimal degrees
	Longitude float64   `json:"lon"`     // decimal degrees
	Quality   string    `json:"quality"` // "3" (3D fix), "A" for RMC, etc.
	Time      time.Time `json:"time"`    // local receive time
}

// Validate checks that the coordinates are within WGS84 bounds.
func (f Fix) Validate() error {
	if f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", f.Latitude)
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", f.Longitude)
	}
	return nil
}

// E7 returns the fix as fixed-point degrees scaled by 1e7.
func (f Fix) E7() (lat, lon int32) {
	return ToE7(f.Latitude), ToE7(f.Longitude)
}

// e7Slack absorbs binary representation error in the scaled value so that
// a decimal input such as 24.1234567 truncates to 241234567 rather than
// 241234566.
const e7Slack = 1e-6

// ToE7 scales decimal degrees by 1e7 and truncates toward zero.
//
// 24.12345679 -> 241234567, not 241234568.
func ToE7(deg float64) int32 {
	scaled := deg * 1e7
	return int32(math.Trunc(scaled + math.Copysign(e7Slack, scaled)))
}
