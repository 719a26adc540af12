// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geo converts WGS84 positions to the local projected grid used for
// the on-screen overlay.
package geo

import "math"

// TWD97 TM2 zone 121: GRS80 ellipsoid, central meridian 121°E, scale 0.9999,
// false easting 250 km, no false northing.
const (
	semiMajor       = 6378137.0
	flattening      = 1 / 298.257222101
	scale           = 0.9999
	centralMeridian = 121.0
	falseEasting    = 250000.0
)

var (
	e2  = flattening * (2 - flattening)
	ep2 = e2 / (1 - e2)
)

// Project converts a WGS84 latitude/longitude in degrees to TWD97 TM2 grid
// coordinates in metres (x easting, y northing).
func Project(lat, lon float64) (x, y float64) {
	phi := lat * math.Pi / 180
	dLambda := (lon - centralMeridian) * math.Pi / 180

	sinPhi, cosPhi := math.Sincos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := dLambda * cosPhi

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	x = falseEasting + scale*n*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*ep2)*a5/120)
	y = scale * (meridianArc(phi) + n*tanPhi*(a2/2+
		(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))
	return x, y
}

// meridianArc is the distance along the meridian from the equator to phi.
func meridianArc(phi float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}
