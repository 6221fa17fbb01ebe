// Package astro computes the daylight window used by solar heating.
package astro

import (
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Sun reports daytime for a fixed site location.
//
// The zero value has no location and treats every instant as daytime.
type Sun struct {
	Latitude  float64
	Longitude float64
}

// Known reports whether a location has been configured.
func (s Sun) Known() bool {
	return s.Latitude != 0 || s.Longitude != 0
}

// Window returns the sunrise and sunset bracketing the solar day that
// contains t. Both are zero during polar day or night.
func (s Sun) Window(t time.Time) (rise, set time.Time) {
	// Pick the calendar date in local mean solar time so the window is the
	// one around the site's own noon, not the UTC date's.
	offset := time.Duration(s.Longitude / 15 * float64(time.Hour))
	y, m, d := t.UTC().Add(offset).Date()
	return sunrise.SunriseSunset(s.Latitude, s.Longitude, y, m, d)
}

// IsDaytime reports whether t falls between sunrise and sunset. With no
// sunrise it is true during polar day and false during polar night.
func (s Sun) IsDaytime(t time.Time) bool {
	if !s.Known() {
		return true
	}
	rise, set := s.Window(t)
	if rise.IsZero() || set.IsZero() {
		return s.polarDay(t)
	}
	return !t.Before(rise) && !t.After(set)
}

// axialTilt is the Earth's obliquity in degrees.
const axialTilt = 23.44

// polarDay reports whether the sun stays up all day at t. It is only
// meaningful when the date has no sunrise: the sun then never crosses the
// horizon, and it is up exactly when the site is in the hemisphere the
// sun's declination points at.
func (s Sun) polarDay(t time.Time) bool {
	day := float64(t.UTC().YearDay())
	declination := axialTilt * math.Sin(2*math.Pi*(284+day)/365)
	return s.Latitude*declination > 0
}
