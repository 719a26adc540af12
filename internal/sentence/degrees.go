// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sentence

import (
	"fmt"
	"strconv"
	"strings"
)

// ConvertToDegrees converts an NMEA degrees-minutes value (ddmm.mmmm for
// latitude, dddmm.mmmm for longitude) to signed decimal degrees. South and
// West hemispheres yield negative values.
//
// The degree digits are everything left of the last two integer digits, so
// "12030.5000" is 120 degrees 30.5 minutes and "2407.4074" is 24 degrees
// 7.4074 minutes regardless of how many decimals the receiver emits.
func ConvertToDegrees(value, hemisphere string) (float64, error) {
	value = strings.TrimSpace(value)
	hemisphere = strings.ToUpper(strings.TrimSpace(hemisphere))

	intPart := value
	if dot := strings.IndexByte(value, '.'); dot != -1 {
		intPart = value[:dot]
	}
	if len(intPart) < 3 {
		return 0, fmt.Errorf("%w: degrees-minutes value %q", ErrMalformedSentence, value)
	}

	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil {
		return 0, fmt.Errorf("%w: degrees in %q", ErrMalformedSentence, value)
	}
	mins, err := strconv.ParseFloat(value[len(intPart)-2:], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: minutes in %q", ErrMalformedSentence, value)
	}
	if mins < 0 || mins >= 60 {
		return 0, fmt.Errorf("%w: minutes %.4f out of range in %q", ErrMalformedSentence, mins, value)
	}

	result := float64(deg) + mins/60
	switch hemisphere {
	case "S", "W":
		result = -result
	case "N", "E":
	default:
		return 0, fmt.Errorf("%w: hemisphere %q", ErrMalformedSentence, hemisphere)
	}
	return result, nil
}
