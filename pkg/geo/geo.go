package geo

import (
	"math"
	"time"
)

const earthRadiusKilometers = 6371

type Coordinates struct {
	Latitude  float64 `json:"latitude" groups:"basic"`
	Longitude float64 `json:"longitude" groups:"basic"`
}

// DistanceKilometers returns the great-circle (haversine) distance between two
// points. Accurate enough for Puget Sound scale spans, no ellipsoid correction.
func DistanceKilometers(a Coordinates, b Coordinates) float64 {
	deltaLatitude := degreesToRadians(b.Latitude - a.Latitude)
	deltaLongitude := degreesToRadians(b.Longitude - a.Longitude)

	h := math.Pow(math.Sin(deltaLatitude/2), 2) +
		math.Cos(degreesToRadians(a.Latitude))*math.Cos(degreesToRadians(b.Latitude))*math.Pow(math.Sin(deltaLongitude/2), 2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKilometers * c
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

type DayType string

const (
	DayTypeWeekday DayType = "weekday"
	DayTypeWeekend DayType = "weekend"
)

// GetDayType classifies a date as weekday or weekend. Holidays are not
// considered.
func GetDayType(dateTime time.Time) DayType {
	switch dateTime.Weekday() {
	case time.Saturday, time.Sunday:
		return DayTypeWeekend
	default:
		return DayTypeWeekday
	}
}
