package domain

import "math"

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Address represents a structured postal destination as the backend models it:
// free-form street address plus province and community.
type Address struct {
	Direccion   string      `json:"direccion" bson:"direccion"`
	Provincia   string      `json:"provincia" bson:"provincia"`
	Comunidad   string      `json:"comunidad" bson:"comunidad"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
}

// FixSource identifies which fallback tier produced a location fix.
type FixSource string

const (
	SourceDevicePrecise   FixSource = "device-precise"
	SourceIPApproximate   FixSource = "ip-approximate"
	SourceDefaultFallback FixSource = "default-fallback"
)

// LocationFix is a transient best-effort position. It is never persisted;
// each interaction acquires a fresh one.
type LocationFix struct {
	Coordinates
	AccuracyMeters float64   `json:"accuracy_meters"`
	Source         FixSource `json:"source"`
}

// RouteResult is an ordered sequence of waypoints representing a computed
// path. Regenerated whenever the input waypoints change; never persisted.
type RouteResult struct {
	Points []Coordinates `json:"points"`
}

// Bearing returns the initial great-circle bearing in degrees [0, 360) from
// one coordinate towards another.
func Bearing(from, to Coordinates) float64 {
	fromLat := from.Lat * math.Pi / 180
	fromLng := from.Lng * math.Pi / 180
	toLat := to.Lat * math.Pi / 180
	toLng := to.Lng * math.Pi / 180

	y := math.Sin(toLng-fromLng) * math.Cos(toLat)
	x := math.Cos(fromLat)*math.Sin(toLat) -
		math.Sin(fromLat)*math.Cos(toLat)*math.Cos(toLng-fromLng)

	bearing := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}
