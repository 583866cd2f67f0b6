package route

import (
	"context"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/pkg/core"
)

// fanOffsets returns 0, +inc, -inc, +2inc, -2inc, ... up to +-limit.
func fanOffsets(inc, limit float64) []float64 {
	offsets := []float64{0}
	for o := inc; o <= limit+1e-9; o += inc {
		offsets = append(offsets, o, -o)
	}
	return offsets
}

// greedy walks toward the target one step at a time. ok is false when the
// walk stalls or exceeds the step bound.
func (s *search) greedy(ctx context.Context) (core.Path, bool) {
	offsets := fanOffsets(s.cfg.FanIncrement, s.cfg.FanLimit)
	step := s.req.StepDistance
	target := s.req.Target

	current := s.req.Origin
	path := core.Path{current}
	visited := map[cellKey]struct{}{s.cell(current): {}}

	for len(path)-1 <= s.maxSteps {
		if ctx.Err() != nil {
			return nil, false
		}
		if s.reachedGoal(current) {
			return path, true
		}
		if len(path)-1 == s.maxSteps {
			break
		}

		remaining := geo.WaypointDistance(current, target, s.req.Radius)
		base := geo.WaypointBearing(current, target)

		moved := false
		for _, off := range offsets {
			candidate := geo.Step(current, base+off, step, s.req.Radius)
			if geo.WaypointDistance(candidate, target, s.req.Radius) >= remaining {
				continue
			}
			key := s.cell(candidate)
			if _, seen := visited[key]; seen {
				continue
			}
			if !s.segmentClear(current, candidate) {
				continue
			}
			visited[key] = struct{}{}
			path = append(path, candidate)
			current = candidate
			moved = true
			break
		}
		if !moved {
			return nil, false
		}
	}
	return nil, false
}
