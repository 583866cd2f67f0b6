package resource

import (
	"fmt"
	"strings"
)

// Report renders a system check as human-readable lines.
func Report(r Result) []string {
	s := r.Snapshot
	var lines []string

	lines = append(lines, fmt.Sprintf("Average speed: %.2f m/s", r.AverageSpeed))
	if r.AverageSpeed > 0 {
		lines = append(lines, fmt.Sprintf("  Speed base: %.2f m/s", s.MaxSpeedBase))
		if s.Manned {
			lines = append(lines, fmt.Sprintf("  Crew bonus: %.0f%%", s.CrewSpeedBonus))
		} else {
			lines = append(lines, fmt.Sprintf("  Unmanned penalty: %.0f%%", (1-UnmannedSpeedFactor)*100))
		}
		if s.SpeedReduction > 0 {
			penalty := s.SpeedReduction
			if penalty > MaxSpeedReduction*100 {
				penalty = 100
			}
			lines = append(lines, fmt.Sprintf("  Power penalty: %.2f%%", penalty))
		}
		lines = append(lines, fmt.Sprintf("  Speed at night: %.2f m/s", r.AverageSpeedAtNight))
	} else {
		lines = append(lines, "  Propulsion not online")
	}

	lines = append(lines, fmt.Sprintf("Generated power: %.2f (solar %.2f, other %.2f)",
		s.SolarPower+s.OtherPower, s.SolarPower, s.OtherPower))

	required := fmt.Sprintf("Required power: %.2f", s.RequiredPower)
	switch {
	case s.SpeedReduction == 0:
	case s.SpeedReduction <= MaxSpeedReduction*100:
		required += fmt.Sprintf(" (speed reduced by %.2f%%)", s.SpeedReduction)
	default:
		required += " (not enough power)"
	}
	lines = append(lines, required)

	if r.Battery.UseBatteries {
		lines = append(lines, fmt.Sprintf("Batteries: %.0f / %.0f EC", r.Battery.MaxUsedEC, r.Battery.MaxAvailableEC))
	} else {
		lines = append(lines, "Batteries: no")
	}

	if r.FuelCells.Use {
		names := make([]string, 0, len(r.FuelCells.InputResources))
		for _, in := range r.FuelCells.InputResources {
			names = append(names, fmt.Sprintf("%s %.3f/s", in.Name, in.Ratio))
		}
		lines = append(lines, fmt.Sprintf("Fuel cells: %.2f EC/s from %s", r.FuelCells.OutputValue, strings.Join(names, ", ")))
	}
	return lines
}
