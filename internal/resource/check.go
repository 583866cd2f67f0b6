// Package resource computes travel speeds and power budgets from vehicle capabilities,
// and integrates battery charge and fuel-cell consumption over time.
package resource

import (
	"math"
	"sort"

	"github.com/bonvoyage/voyage/pkg/core"
)

const (
	// RequiredPowerShare is the fraction of full propulsion draw needed while cruising.
	RequiredPowerShare = 0.35
	// MaxSpeedReduction is the largest power shortfall tolerated before a vehicle cannot move.
	MaxSpeedReduction = 0.75
	// UnmannedSpeedFactor applies to vehicles without crew.
	UnmannedSpeedFactor = 0.2
)

// Result is the outcome of SystemCheck.
type Result struct {
	Snapshot            core.ResourceSnapshot
	Battery             core.BatteryModel
	FuelCells           core.FuelCellModel
	AverageSpeed        float64
	AverageSpeedAtNight float64
	// DayFeasible is false when daytime power falls short by more than MaxSpeedReduction.
	DayFeasible bool
}

// SystemCheck derives speeds and the battery budget. The battery and fuel-cell
// toggles are taken from the passed models; everything else is recomputed.
// rotationPeriod is the body's rotation period in seconds.
func SystemCheck(caps core.Capabilities, battery core.BatteryModel, fuel core.FuelCellModel, rotationPeriod float64) Result {
	res := Result{DayFeasible: true}

	required := caps.PropulsionPowerDraw * RequiredPowerShare
	solar := caps.SolarPower
	other := caps.OtherPower

	res.FuelCells = aggregateFuelCells(caps, fuel.Use)
	other += res.FuelCells.OutputValue

	manned := len(caps.Crew) > 0
	bonus := 0.0
	if manned {
		bonus = CrewBonus(caps.Crew)
	}

	speed := 0.0
	if caps.PropulsionOnline > 0 {
		speed = caps.MaxSpeedBase * (1 + bonus/100)
	}
	if !manned {
		speed *= UnmannedSpeedFactor
	}

	night := 0.0
	if other > 0 {
		night = speed
	}

	reduction := 0.0
	if required > solar+other {
		reduction = (required - (solar + other)) / required
		if reduction <= MaxSpeedReduction {
			speed *= 1 - reduction
		} else {
			res.DayFeasible = false
		}
	}

	if required > other {
		r := (required - other) / required
		if r <= MaxSpeedReduction {
			night *= 1 - r
		} else {
			night = 0
		}
	}

	res.Battery = sizeBattery(caps, battery.UseBatteries, required, solar, other, rotationPeriod)

	res.AverageSpeed = speed
	res.AverageSpeedAtNight = night
	res.Snapshot = core.ResourceSnapshot{
		SolarPower:       solar,
		OtherPower:       other,
		RequiredPower:    required,
		CrewSpeedBonus:   bonus,
		Manned:           manned,
		MaxSpeedBase:     caps.MaxSpeedBase,
		PropulsionOnline: caps.PropulsionOnline,
		SpeedReduction:   reduction * 100,
	}
	return res
}

// sizeBattery computes how much stored charge the autopilot may use. The budget
// is half the capacity, further limited to what one night consumes and one day
// can recharge. The battery starts full.
func sizeBattery(caps core.Capabilities, use bool, required, solar, other, rotationPeriod float64) core.BatteryModel {
	b := core.BatteryModel{UseBatteries: use}
	if !use {
		return b
	}
	b.MaxAvailableEC = caps.StoredCharge

	if required < solar+other {
		b.ECPerSecondConsumed = math.Max(required-other, 0)
		b.MaxUsedEC = b.MaxAvailableEC / 2
		if b.ECPerSecondConsumed > 0 {
			halfRotation := rotationPeriod / 2
			b.ECPerSecondGenerated = solar + other - required
			b.MaxUsedEC = math.Min(b.MaxUsedEC, b.ECPerSecondConsumed*halfRotation)
			b.MaxUsedEC = math.Min(b.MaxUsedEC, b.ECPerSecondGenerated*halfRotation)
		}
	}
	b.CurrentEC = b.MaxUsedEC
	return b
}

// aggregateFuelCells sums converter output and merges inputs by resource name.
// Inputs are sorted by name so repeated checks produce identical models.
func aggregateFuelCells(caps core.Capabilities, use bool) core.FuelCellModel {
	f := core.FuelCellModel{Use: use}
	if !use {
		return f
	}

	ratios := make(map[string]float64)
	for _, cell := range caps.FuelCells {
		f.OutputValue += cell.Output
		for name, ratio := range cell.Inputs {
			ratios[name] += ratio
		}
	}

	names := make([]string, 0, len(ratios))
	for name := range ratios {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f.InputResources = append(f.InputResources, core.FuelResource{
			Name:                   name,
			Ratio:                  ratios[name],
			MaximumAmountAvailable: caps.FuelAvailable[name],
		})
	}
	return f
}
