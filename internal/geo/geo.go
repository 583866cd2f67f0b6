package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/bonvoyage/voyage/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// All angles are degrees. Distances and radii share one unit, metres in practice.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// NormalizeLongitude maps lon into [-180, 180).
func NormalizeLongitude(lon float64) float64 {
	l := math.Mod(lon+180, 360)
	if l < 0 {
		l += 360
	}
	return l - 180
}

// clampLatitude keeps lat in [-90, 90] against rounding at the poles.
func clampLatitude(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

// Bearing returns the initial great-circle bearing from point 1 to point 2 in [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dLambda := (lon2 - lon1) * degToRad

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	b := math.Mod(math.Atan2(y, x)*radToDeg+360, 360)
	if b >= 360 {
		b = 0
	}
	return b
}

// Destination returns the point reached by travelling distance along bearing
// from (lat, lon) on a sphere of the given radius.
func Destination(lat, lon, bearing, distance, radius float64) (float64, float64) {
	phi1 := lat * degToRad
	lambda1 := lon * degToRad
	theta := bearing * degToRad
	delta := distance / radius

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	sinPhi2 = math.Max(-1, math.Min(1, sinPhi2))
	phi2 := math.Asin(sinPhi2)

	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*sinPhi2,
	)

	return clampLatitude(phi2 * radToDeg), NormalizeLongitude(lambda2 * radToDeg)
}

// CentralAngle returns the angle subtended at the body centre by two surface points.
func CentralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := phi2 - phi1
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	a = math.Min(1, a)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a)) * radToDeg
}

// Distance is the haversine great-circle distance between two points.
func Distance(lat1, lon1, lat2, lon2, radius float64) float64 {
	return CentralAngle(lat1, lon1, lat2, lon2) * degToRad * radius
}

// WaypointDistance is Distance over waypoints.
func WaypointDistance(a, b core.Waypoint, radius float64) float64 {
	return Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude, radius)
}

// WaypointBearing is Bearing over waypoints.
func WaypointBearing(a, b core.Waypoint) float64 {
	return Bearing(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Step moves from w along bearing by distance.
func Step(w core.Waypoint, bearing, distance, radius float64) core.Waypoint {
	lat, lon := Destination(w.Latitude, w.Longitude, bearing, distance, radius)
	return core.Waypoint{Latitude: lat, Longitude: lon}
}

// Vec3 is a body-centred cartesian position.
type Vec3 struct {
	X, Y, Z float64
}

// Distance returns the straight-line distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// SurfacePosition converts a surface point plus altitude to body-centred cartesian coordinates.
func SurfacePosition(lat, lon, altitude, radius float64) Vec3 {
	phi := lat * degToRad
	lambda := lon * degToRad
	r := radius + altitude
	return Vec3{
		X: r * math.Cos(phi) * math.Cos(lambda),
		Y: r * math.Cos(phi) * math.Sin(lambda),
		Z: r * math.Sin(phi),
	}
}

// WaypointFromString parses "long,lat" into a waypoint.
func WaypointFromString(coords string) (core.Waypoint, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return core.Waypoint{}, ErrInvalidCoordinates
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Waypoint{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Waypoint{}, ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || math.IsNaN(long) || math.IsInf(long, 0) {
		return core.Waypoint{}, ErrInvalidCoordinates
	}
	return core.Waypoint{Latitude: lat, Longitude: NormalizeLongitude(long)}, nil
}

// Coords3857From4326 projects a longitude/latitude pair to web mercator.
// Positions are stored as 3857 so SQLite, which has no spatial types, can round trip them as WKB.
func Coords3857From4326(longitude, latitude float64) geom.Point {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: x, Y: y},
	})
}

// Coords4326From3857 is the inverse of Coords3857From4326.
func Coords4326From3857(p geom.Point) (longitude, latitude float64, ok bool) {
	xy, ok := p.XY()
	if !ok {
		return 0, 0, false
	}
	f := wgs84.EPSG().Transform(3857, 4326)
	longitude, latitude, _ = f(xy.X, xy.Y, 0)
	return longitude, latitude, true
}
