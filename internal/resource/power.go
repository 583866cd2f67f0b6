package resource

import (
	"math"

	"github.com/bonvoyage/voyage/pkg/core"
)

// IntegrateBattery advances charge by dt seconds. By day the battery recharges
// up to MaxUsedEC; by night it drains toward zero.
func IntegrateBattery(b core.BatteryModel, dt float64, day bool) core.BatteryModel {
	if !b.UseBatteries {
		return b
	}
	if day {
		b.CurrentEC = math.Min(b.CurrentEC+b.ECPerSecondGenerated*dt, b.MaxUsedEC)
	} else {
		b.CurrentEC = math.Max(b.CurrentEC-b.ECPerSecondConsumed*dt, 0)
	}
	return b
}

// FuelCellsNeeded reports whether fuel cells run this tick: at night, when solar
// surplus alone cannot cover demand, or while the battery is below its budget.
func FuelCellsNeeded(f core.FuelCellModel, b core.BatteryModel, angle float64) bool {
	if !f.Use || !b.UseBatteries {
		return false
	}
	return angle > 90 ||
		b.ECPerSecondGenerated-f.OutputValue <= 0 ||
		b.CurrentEC < b.MaxUsedEC
}

// ConsumeFuel burns inputs for dt seconds and returns the time by which the
// most constrained input overran its supply. When the overrun is positive
// every input is rolled back by that time, so no input exceeds its maximum.
func ConsumeFuel(f *core.FuelCellModel, dt float64) float64 {
	over := 0.0
	for i := range f.InputResources {
		in := &f.InputResources[i]
		in.CurrentAmountUsed += in.Ratio * dt
		if in.Ratio > 0 && in.CurrentAmountUsed > in.MaximumAmountAvailable {
			over = math.Max(over, (in.CurrentAmountUsed-in.MaximumAmountAvailable)/in.Ratio)
		}
	}
	if over > 0 {
		for i := range f.InputResources {
			in := &f.InputResources[i]
			in.CurrentAmountUsed -= in.Ratio * over
			in.CurrentAmountUsed = math.Min(in.CurrentAmountUsed, in.MaximumAmountAvailable)
		}
	}
	return over
}

// CurrentSpeed picks the day or night speed for the sun angle and applies the multiplier.
// Day speed holds at night while the battery still has charge.
func CurrentSpeed(day, night float64, b core.BatteryModel, angle, multiplier float64) float64 {
	if angle <= 90 || (b.UseBatteries && b.CurrentEC > 0) {
		return day * multiplier
	}
	return night * multiplier
}
