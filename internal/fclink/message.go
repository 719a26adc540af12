// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fclink

import (
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
)

// Fixed GPS_INPUT payload values. The receiver only reports position, so
// velocity and speed accuracy are flagged as ignored and the quality figures
// are constants the autopilot accepts as a healthy 3D fix.
const (
	FixType3D         = 3
	SatellitesVisible = 7
	HDOP              = 0.7
	VDOP              = 0.7
)

// GPSInputIgnoreFlags marks the fields the autopilot should disregard.
const GPSInputIgnoreFlags = common.GPS_INPUT_IGNORE_FLAG_VEL_HORIZ |
	common.GPS_INPUT_IGNORE_FLAG_VEL_VERT |
	common.GPS_INPUT_IGNORE_FLAG_SPEED_ACCURACY

// GPSInput builds the external GPS message for a fix given in degrees * 1e7.
// Timestamps, GPS id, week fields, altitude, velocities, and accuracies stay
// zero.
func GPSInput(latE7, lonE7 int32) *common.MessageGpsInput {
	return &common.MessageGpsInput{
		IgnoreFlags:       GPSInputIgnoreFlags,
		FixType:           FixType3D,
		Lat:               latE7,
		Lon:               lonE7,
		Alt:               0,
		Hdop:              HDOP,
		Vdop:              VDOP,
		SatellitesVisible: SatellitesVisible,
	}
}
