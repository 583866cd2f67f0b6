package resource

import (
	"math"

	"github.com/bonvoyage/voyage/internal/geo"
)

// SunModel gives the angle between the local vertical and the direction to the sun.
// Angles above 90 degrees are night.
type SunModel interface {
	Angle(lat, lon, universalTime float64) float64
}

// RotatingSun places the subsolar point at a fixed latitude and moves it west
// as the body rotates.
type RotatingSun struct {
	SubsolarLatitude         float64
	SubsolarLongitudeAtEpoch float64
	// RotationPeriod in seconds. Zero freezes the subsolar point.
	RotationPeriod float64
}

// SubsolarPoint returns the subsolar latitude and longitude at universal time ut.
func (s RotatingSun) SubsolarPoint(ut float64) (float64, float64) {
	lon := s.SubsolarLongitudeAtEpoch
	if s.RotationPeriod > 0 {
		lon -= 360 * math.Mod(ut, s.RotationPeriod) / s.RotationPeriod
	}
	return s.SubsolarLatitude, geo.NormalizeLongitude(lon)
}

// Angle implements SunModel.
func (s RotatingSun) Angle(lat, lon, ut float64) float64 {
	sLat, sLon := s.SubsolarPoint(ut)
	return geo.CentralAngle(lat, lon, sLat, sLon)
}

// FixedSun reports the same angle everywhere.
type FixedSun float64

// Angle implements SunModel.
func (s FixedSun) Angle(lat, lon, ut float64) float64 {
	return float64(s)
}

// IsDay reports whether the sun is above the horizon.
func IsDay(angle float64) bool {
	return angle <= 90
}

// DayNightMultiplier slows crewed vehicles through twilight and night.
// Uncrewed vehicles are unaffected; they already carry UnmannedSpeedFactor.
func DayNightMultiplier(angle float64, manned bool) float64 {
	if !manned {
		return 1.0
	}
	switch {
	case angle > 90:
		return 0.25
	case angle > 85:
		return 0.5
	case angle > 80:
		return 0.75
	default:
		return 1.0
	}
}
