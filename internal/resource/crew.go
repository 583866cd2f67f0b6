package resource

import "github.com/bonvoyage/voyage/pkg/core"

// MaxCrewLevel caps experience levels counted toward the bonus.
const MaxCrewLevel = 5

// crewRank lists bonus classes in priority order with their percent per level.
// Bonuses do not stack: the first class with a member above level 0 wins.
var crewRank = []struct {
	class    core.CrewClass
	perLevel float64
}{
	{core.CrewPilot, 6},
	{core.CrewDriver, 4},
	{core.CrewScout, 2},
}

// CrewBonus returns the speed bonus in percent for a crew.
func CrewBonus(crew []core.CrewMember) float64 {
	best := make(map[core.CrewClass]int, len(crewRank))
	for _, m := range crew {
		lvl := min(m.Level, MaxCrewLevel)
		if lvl > best[m.Class] {
			best[m.Class] = lvl
		}
	}
	for _, r := range crewRank {
		if lvl := best[r.class]; lvl > 0 {
			return r.perLevel * float64(lvl)
		}
	}
	return 0
}
