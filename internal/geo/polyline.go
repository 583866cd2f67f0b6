package geo

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/bonvoyage/voyage/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// EncodePath serializes a path as a JSON polyline "[[lon,lat],...]".
// Floats use the shortest representation that parses back to the same value,
// so DecodePath(EncodePath(p)) == p exactly. An empty path encodes to "".
func EncodePath(p core.Path) string {
	if len(p) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(p)*40)
	buf = append(buf, '[')
	for i, w := range p {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '[')
		buf = strconv.AppendFloat(buf, w.Longitude, 'g', -1, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, w.Latitude, 'g', -1, 64)
		buf = append(buf, ']')
	}
	buf = append(buf, ']')
	return string(buf)
}

// DecodePath parses a JSON polyline produced by EncodePath.
func DecodePath(input string) (core.Path, error) {
	if input == "" {
		return nil, nil
	}

	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse path JSON: %w", err)
	}

	path := make(core.Path, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		path[i] = core.Waypoint{Longitude: coord[0], Latitude: coord[1]}
	}
	return path, nil
}

// PathToLineString builds a lon/lat LineString, appending the target when set.
// Paths with fewer than two points give an empty LineString.
func PathToLineString(p core.Path, target *core.Waypoint) geom.LineString {
	n := len(p)
	if target != nil {
		n++
	}
	if n < 2 {
		return geom.LineString{}
	}

	flatCoords := make([]float64, 0, n*2)
	for _, w := range p {
		flatCoords = append(flatCoords, w.Longitude, w.Latitude)
	}
	if target != nil {
		flatCoords = append(flatCoords, target.Longitude, target.Latitude)
	}

	return geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXY))
}

// LineStringToPath is the inverse of PathToLineString without a target.
func LineStringToPath(ls geom.LineString) core.Path {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil
	}
	path := make(core.Path, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		path[i] = core.Waypoint{Longitude: xy.X, Latitude: xy.Y}
	}
	return path
}
