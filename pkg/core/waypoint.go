// pkg/core/waypoint.go
package core

// Waypoint is a point on a body surface, in degrees.
type Waypoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Path is an ordered list of waypoints spaced at the planner step distance.
// Path[0] is the origin. The exact target is the implicit successor of the
// last waypoint and is not stored.
type Path []Waypoint

// Last returns the final stored waypoint. ok is false for an empty path.
func (p Path) Last() (w Waypoint, ok bool) {
	if len(p) == 0 {
		return Waypoint{}, false
	}
	return p[len(p)-1], true
}

// Clone returns a copy that does not share the backing array.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Body describes the celestial body a vehicle travels on.
type Body struct {
	Name           string  `json:"name"`
	Radius         float64 `json:"radius"`         // metres
	RotationPeriod float64 `json:"rotationPeriod"` // seconds
}
