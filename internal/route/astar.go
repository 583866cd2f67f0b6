package route

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/pkg/core"
)

// astarNode for priority queue.
type astarNode struct {
	pos    core.Waypoint
	depth  int     // steps from origin, also the cost so far
	h      float64 // remaining distance in steps
	f      float64 // depth + h
	seq    int     // insertion order, breaks ties deterministically
	parent *astarNode
	index  int // heap index
}

// astarHeap implements heap.Interface.
type astarHeap []*astarNode

func (h astarHeap) Len() int { return len(h) }
func (h astarHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].seq < h[j].seq
}
func (h astarHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *astarHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *astarHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// astar searches stepped positions from the origin. Headings are spread
// evenly around the bearing to the target so the first candidate is the direct one.
func (s *search) astar(ctx context.Context) (core.Path, error) {
	step := s.req.StepDistance
	target := s.req.Target
	maxExpansions := s.maxSteps * s.cfg.Headings * s.cfg.ExpansionFactor

	open := &astarHeap{}
	seq := 0
	push := func(pos core.Waypoint, depth int, parent *astarNode) {
		h := geo.WaypointDistance(pos, target, s.req.Radius) / step
		heap.Push(open, &astarNode{
			pos:    pos,
			depth:  depth,
			h:      h,
			f:      float64(depth) + h,
			seq:    seq,
			parent: parent,
		})
		seq++
	}

	seen := map[cellKey]struct{}{s.cell(s.req.Origin): {}}
	push(s.req.Origin, 0, nil)

	spread := 360 / float64(s.cfg.Headings)
	expansions := 0

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node := heap.Pop(open).(*astarNode)

		if s.reachedGoal(node.pos) {
			return reconstruct(node), nil
		}

		expansions++
		if expansions > maxExpansions {
			break
		}
		if node.depth >= s.maxSteps {
			continue
		}

		base := geo.WaypointBearing(node.pos, target)
		for i := 0; i < s.cfg.Headings; i++ {
			candidate := geo.Step(node.pos, base+float64(i)*spread, step, s.req.Radius)
			key := s.cell(candidate)
			if _, ok := seen[key]; ok {
				continue
			}
			if !s.segmentClear(node.pos, candidate) {
				continue
			}
			seen[key] = struct{}{}
			push(candidate, node.depth+1, node)
		}
	}

	return nil, fmt.Errorf("%w: search exhausted after %d expansions (bound %d steps)",
		ErrNoRouteFound, expansions, s.maxSteps)
}

func reconstruct(n *astarNode) core.Path {
	path := make(core.Path, n.depth+1)
	for cur := n; cur != nil; cur = cur.parent {
		path[cur.depth] = cur.pos
	}
	return path
}
