// Package geo holds coordinates and the distance math used to label search
// results.
package geo

// Coordinate is a WGS-84 point in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}
