package models

import (
	"math"

	"github.com/paulmach/orb"
)

// Earth dimensions used by the normalized web mercator projection. The mean
// earth radius keeps horizontal and vertical distances consistent with the
// renderer's draw space.
const (
	EarthRadius        = 6371008.8
	earthCircumference = 2 * math.Pi * EarthRadius
)

// Extent is the tile-local coordinate range used to address positions within
// a single tile, independent of the tile's zoom.
const Extent = 8192

// CircumferenceAtLatitude returns the length in meters of one full world wrap
// at the given latitude in degrees.
func CircumferenceAtLatitude(lat float64) float64 {
	return earthCircumference * math.Cos(lat*math.Pi/180)
}

func MercatorXFromLng(lng float64) float64 {
	return (180 + lng) / 360
}

func MercatorYFromLat(lat float64) float64 {
	return (180 - (180 / math.Pi * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360)))) / 360
}

// MercatorZFromAltitude returns the mercator-unit value of an altitude in
// meters at the given latitude. Mercator units shrink toward the poles, so
// the latitude matters.
func MercatorZFromAltitude(altitude, lat float64) float64 {
	return altitude / CircumferenceAtLatitude(lat)
}

func LngFromMercatorX(x float64) float64 {
	return x*360 - 180
}

func LatFromMercatorY(y float64) float64 {
	y2 := 180 - y*360
	return 360/math.Pi*math.Atan(math.Exp(y2*math.Pi/180)) - 90
}

// AltitudeFromMercatorZ converts a mercator-unit altitude back to meters at
// the latitude implied by y.
func AltitudeFromMercatorZ(z, y float64) float64 {
	return z * CircumferenceAtLatitude(LatFromMercatorY(y))
}

// MercatorCoordinate is a position in the normalized web mercator projection
// where (0, 0) is the northwest corner of the world and (1, 1) the southeast
// corner. X outside [0, 1] addresses wrapped world copies. Z is an altitude
// in mercator units, convertible to meters with ToAltitude.
type MercatorCoordinate struct {
	X float64
	Y float64
	Z float64
}

func MercatorFromLngLat(lng, lat float64) MercatorCoordinate {
	return MercatorCoordinate{
		X: MercatorXFromLng(lng),
		Y: MercatorYFromLat(lat),
	}
}

func MercatorFromLngLatAltitude(lng, lat, altitude float64) MercatorCoordinate {
	c := MercatorFromLngLat(lng, lat)
	c.Z = MercatorZFromAltitude(altitude, lat)
	return c
}

// MercatorFromPoint is MercatorFromLngLat for an orb longitude/latitude
// point.
func MercatorFromPoint(p orb.Point) MercatorCoordinate {
	return MercatorFromLngLat(p.Lon(), p.Lat())
}

// ToLngLat returns the coordinate's longitude and latitude in degrees.
func (c MercatorCoordinate) ToLngLat() orb.Point {
	return orb.Point{LngFromMercatorX(c.X), LatFromMercatorY(c.Y)}
}

// ToAltitude returns the coordinate's altitude in meters.
func (c MercatorCoordinate) ToAltitude() float64 {
	return AltitudeFromMercatorZ(c.Z, c.Y)
}

// MeterInMercatorUnits returns the length of one meter in mercator units at
// the coordinate's latitude.
func (c MercatorCoordinate) MeterInMercatorUnits() float64 {
	return 1 / CircumferenceAtLatitude(LatFromMercatorY(c.Y))
}

// Wrap returns how many world copies to the east the coordinate sits in.
// Floor, not truncation: coordinates west of the prime copy get a negative
// wrap.
func (c MercatorCoordinate) Wrap() int {
	return int(math.Floor(c.X))
}
