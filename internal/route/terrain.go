package route

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/bonvoyage/voyage/pkg/core"
)

// TerrainFilter reports whether a surface point is traversable.
type TerrainFilter func(lat, lon float64) bool

// AllowAll accepts every point.
func AllowAll(lat, lon float64) bool { return true }

// Deny rejects every point.
func Deny(lat, lon float64) bool { return false }

// Not inverts a filter.
func Not(f TerrainFilter) TerrainFilter {
	return func(lat, lon float64) bool { return !f(lat, lon) }
}

// All accepts a point only when every filter does.
func All(filters ...TerrainFilter) TerrainFilter {
	return func(lat, lon float64) bool {
		for _, f := range filters {
			if !f(lat, lon) {
				return false
			}
		}
		return true
	}
}

// Classifier names the biome at a point.
type Classifier func(lat, lon float64) string

// BiomeFilter accepts points whose biome is one of allowed.
func BiomeFilter(classify Classifier, allowed ...string) TerrainFilter {
	return func(lat, lon float64) bool {
		return slices.Contains(allowed, classify(lat, lon))
	}
}

// Biome names understood by ForVehicle.
const (
	BiomeLand  = "land"
	BiomeOcean = "ocean"
	BiomeWater = "water"
)

// ForVehicle returns the default filter for a vehicle type: ships stay on ocean,
// rovers stay off water.
func ForVehicle(t core.VehicleType, classify Classifier) TerrainFilter {
	if t == core.VehicleShip {
		return BiomeFilter(classify, BiomeOcean)
	}
	return Not(BiomeFilter(classify, BiomeOcean, BiomeWater))
}

// Region is a latitude/longitude box with a biome. MinLon > MaxLon wraps the antimeridian.
type Region struct {
	Name   string  `json:"name"`
	Biome  string  `json:"biome"`
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

func (r Region) contains(lat, lon float64) bool {
	if lat < r.MinLat || lat > r.MaxLat {
		return false
	}
	if r.MinLon <= r.MaxLon {
		return lon >= r.MinLon && lon <= r.MaxLon
	}
	return lon >= r.MinLon || lon <= r.MaxLon
}

// RegionMap classifies points by the first matching region.
type RegionMap struct {
	Body    string   `json:"body"`
	Default string   `json:"default"`
	Regions []Region `json:"regions"`
}

// Classify returns the biome at a point, or Default when no region matches.
func (m *RegionMap) Classify(lat, lon float64) string {
	for _, r := range m.Regions {
		if r.contains(lat, lon) {
			return r.Biome
		}
	}
	if m.Default == "" {
		return BiomeLand
	}
	return m.Default
}

// LoadRegionMaps reads a JSON array of region maps, keyed by body name.
func LoadRegionMaps(path string) (map[string]*RegionMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading terrain file: %w", err)
	}
	var maps []*RegionMap
	if err := json.Unmarshal(data, &maps); err != nil {
		return nil, fmt.Errorf("error parsing terrain file: %w", err)
	}
	out := make(map[string]*RegionMap, len(maps))
	for _, m := range maps {
		out[m.Body] = m
	}
	return out, nil
}
