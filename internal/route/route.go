// Package route plans surface paths between two points on a sphere.
//
// Planning runs in two phases. A greedy walker steps toward the target and,
// when blocked, tries a fan of heading offsets around the direct bearing.
// If the walker stalls, an A* search over stepped positions takes over.
// Both phases are deterministic and bounded by ceil(distance/step)*StepFactor steps.
//
// Terrain is sampled along each segment at least SamplesPerStep times and never
// more than SampleSpacing metres apart. Obstacles narrower than SampleSpacing
// can still fall between two samples.
package route

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/pkg/core"
)

var (
	// ErrNoRouteFound is returned when no traversable path exists within the search bound.
	ErrNoRouteFound = errors.New("no route found")
	// ErrInvalidRequest is returned for non-positive radius or step distance.
	ErrInvalidRequest = errors.New("invalid route request")
)

// samePointTolerance is the distance below which origin and target coincide.
const samePointTolerance = 1.0

// Config tunes the planner. Zero values take defaults.
type Config struct {
	// StepFactor is K in the bound ceil(distance/step)*K.
	StepFactor int
	// SamplesPerStep is the minimum number of terrain samples taken along each step.
	SamplesPerStep int
	// SampleSpacing is the largest gap between terrain samples, in metres.
	SampleSpacing float64
	// FanIncrement and FanLimit shape the greedy heading fan, in degrees.
	FanIncrement float64
	FanLimit     float64
	// Headings is the number of directions expanded per A* node.
	Headings int
	// ExpansionFactor scales the A* expansion cap of maxSteps*Headings*ExpansionFactor.
	ExpansionFactor int
}

// DefaultConfig returns the planner defaults.
func DefaultConfig() Config {
	return Config{
		StepFactor:      4,
		SamplesPerStep:  2,
		SampleSpacing:   250,
		FanIncrement:    15,
		FanLimit:        90,
		Headings:        8,
		ExpansionFactor: 32,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StepFactor <= 0 {
		c.StepFactor = d.StepFactor
	}
	if c.SamplesPerStep <= 0 {
		c.SamplesPerStep = d.SamplesPerStep
	}
	if c.SampleSpacing <= 0 {
		c.SampleSpacing = d.SampleSpacing
	}
	if c.FanIncrement <= 0 {
		c.FanIncrement = d.FanIncrement
	}
	if c.FanLimit <= 0 {
		c.FanLimit = d.FanLimit
	}
	if c.Headings <= 0 {
		c.Headings = d.Headings
	}
	if c.ExpansionFactor <= 0 {
		c.ExpansionFactor = d.ExpansionFactor
	}
	return c
}

// Request is one planning query.
type Request struct {
	Origin       core.Waypoint
	Target       core.Waypoint
	Radius       float64
	StepDistance float64
	// Terrain reports whether a point is traversable. Nil allows everything.
	Terrain TerrainFilter
}

// Planner finds paths. It holds no per-request state and is safe for concurrent use.
type Planner struct {
	cfg Config
}

// NewPlanner creates a planner.
func NewPlanner(cfg Config) *Planner {
	return &Planner{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (p *Planner) Config() Config {
	return p.cfg
}

// search carries the state shared by both phases of one Plan call.
type search struct {
	cfg      Config
	req      Request
	terrain  TerrainFilter
	maxSteps int
}

// Plan returns a path whose consecutive waypoints are exactly StepDistance apart,
// starting at the origin and ending within StepDistance of the target.
func (p *Planner) Plan(ctx context.Context, req Request) (core.Path, error) {
	if req.Radius <= 0 || req.StepDistance <= 0 ||
		math.IsNaN(req.Radius) || math.IsNaN(req.StepDistance) {
		return nil, fmt.Errorf("%w: radius %v, step %v", ErrInvalidRequest, req.Radius, req.StepDistance)
	}

	total := geo.WaypointDistance(req.Origin, req.Target, req.Radius)
	if total < samePointTolerance {
		return core.Path{req.Origin}, nil
	}

	s := &search{
		cfg:      p.cfg,
		req:      req,
		terrain:  req.Terrain,
		maxSteps: int(math.Ceil(total/req.StepDistance)) * p.cfg.StepFactor,
	}
	if s.terrain == nil {
		s.terrain = AllowAll
	}

	if !s.terrain(req.Target.Latitude, req.Target.Longitude) {
		return nil, fmt.Errorf("%w: target is not traversable", ErrNoRouteFound)
	}

	if path, ok := s.greedy(ctx); ok {
		return path, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.astar(ctx)
	if err != nil {
		return nil, err
	}
	return path, nil
}

// DistanceToTarget is the along-path length of a planned route including the
// implicit final segment to the target.
func DistanceToTarget(path core.Path, target core.Waypoint, step, radius float64) float64 {
	last, ok := path.Last()
	if !ok {
		return 0
	}
	return float64(len(path)-1)*step + geo.WaypointDistance(last, target, radius)
}

// segmentClear samples the great-circle segment a->b and reports whether every sample is traversable.
func (s *search) segmentClear(a, b core.Waypoint) bool {
	d := geo.WaypointDistance(a, b, s.req.Radius)
	if d == 0 {
		return s.terrain(b.Latitude, b.Longitude)
	}
	bearing := geo.WaypointBearing(a, b)
	n := s.samples(d)
	for i := 1; i < n; i++ {
		w := geo.Step(a, bearing, d*float64(i)/float64(n), s.req.Radius)
		if !s.terrain(w.Latitude, w.Longitude) {
			return false
		}
	}
	return s.terrain(b.Latitude, b.Longitude)
}

// samples returns how many samples cover a segment of length d.
func (s *search) samples(d float64) int {
	return max(s.cfg.SamplesPerStep, int(math.Ceil(d/s.cfg.SampleSpacing)))
}

// reachedGoal reports whether the final segment from w to the target can be driven.
func (s *search) reachedGoal(w core.Waypoint) bool {
	return geo.WaypointDistance(w, s.req.Target, s.req.Radius) <= s.req.StepDistance &&
		s.segmentClear(w, s.req.Target)
}

// cellKey quantizes a position to a cartesian cell of half a step.
type cellKey [3]int64

func (s *search) cell(w core.Waypoint) cellKey {
	v := geo.SurfacePosition(w.Latitude, w.Longitude, 0, s.req.Radius)
	size := s.req.StepDistance / 2
	return cellKey{
		int64(math.Floor(v.X / size)),
		int64(math.Floor(v.Y / size)),
		int64(math.Floor(v.Z / size)),
	}
}
