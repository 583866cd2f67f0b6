package vehicle

import (
	"context"
	"testing"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/internal/resource"
	"github.com/bonvoyage/voyage/internal/world"
	"github.com/bonvoyage/voyage/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeFixture(t *testing.T, caps core.Capabilities, sun resource.SunModel, setup func(*Controller)) fixture {
	t.Helper()
	f := newFixture(t, caps, sun)
	if setup != nil {
		setup(f.c)
	}
	require.NoError(t, f.c.Activate(context.Background(), ActivateRequest{Target: core.Waypoint{Latitude: 0, Longitude: 1}}))
	return f
}

func TestTick_ConcreteScenario(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(0), nil)

	out, err := f.c.Tick(TickContext{Now: 1000})
	require.NoError(t, err)
	assert.Equal(t, Idle, out.State)
	assert.Equal(t, 1000.0, f.c.VehicleState().LastTimeUpdated)

	out, err = f.c.Tick(TickContext{Now: 2000})
	require.NoError(t, err)
	assert.Equal(t, Moving, out.State)
	assert.Equal(t, 10000.0, out.Distance)
	assert.Equal(t, 10.0, out.Speed)

	s := f.c.VehicleState()
	assert.Equal(t, 10000.0, s.DistanceTravelled)
	assert.Equal(t, 2000.0, s.LastTimeUpdated)

	wantLat, wantLon := geo.Destination(0, 0, geo.Bearing(0, 0, 0, 1), 10000, 600000)
	assert.InDelta(t, wantLat, s.Latitude, 1e-9)
	assert.InDelta(t, wantLon, s.Longitude, 1e-9)
	assert.InDelta(t, 0.954929658, s.Longitude, 1e-6)

	require.Len(t, f.rec.progress, 1)
	assert.Equal(t, "moving", f.rec.progress[0].State)
	assert.Equal(t, 10000.0, f.rec.progress[0].DistanceTravelled)
}

func TestTick_ArrivalIsExact(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(0), nil)
	_, _ = f.c.Tick(TickContext{Now: 1000})
	_, _ = f.c.Tick(TickContext{Now: 2000})

	out, err := f.c.Tick(TickContext{Now: 2100})
	require.NoError(t, err)
	assert.Equal(t, Arrived, out.State)
	assert.InDelta(t, 471.975, out.Distance, 1e-3)

	s := f.c.VehicleState()
	assert.True(t, s.Arrived)
	assert.False(t, s.Active)
	assert.Equal(t, s.DistanceToTarget, s.DistanceTravelled)
	assert.Empty(t, s.Path)
	assert.Equal(t, 0.0, s.Latitude)
	assert.Equal(t, 1.0, s.Longitude)

	require.Len(t, f.rec.arrivals, 1)
	e := f.rec.arrivals[0]
	assert.Equal(t, "v1", e.VehicleID)
	assert.Equal(t, "Rover One", e.VehicleName)
	assert.Equal(t, "Kerbin", e.Body)
	assert.Equal(t, 1.0, e.Longitude)
	assert.Equal(t, 2100.0, e.UniversalTime)

	// settled: further ticks are inert
	out, err = f.c.Tick(TickContext{Now: 5000})
	require.NoError(t, err)
	assert.Equal(t, Arrived, out.State)
	assert.Len(t, f.rec.arrivals, 1)
}

func TestTick_ProgressIsMonotonic(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(0), nil)

	now := 500.0
	last := 0.0
	for i := 0; i < 200 && f.c.VehicleState().Active; i++ {
		now += float64(7 + (i*13)%41)
		_, err := f.c.Tick(TickContext{Now: now})
		require.NoError(t, err)

		s := f.c.VehicleState()
		assert.GreaterOrEqual(t, s.DistanceTravelled, last)
		assert.LessOrEqual(t, s.DistanceTravelled, s.DistanceToTarget)
		last = s.DistanceTravelled
	}
	assert.True(t, f.c.VehicleState().Arrived)
}

func TestTick_NoElapsedTime(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(0), nil)
	_, _ = f.c.Tick(TickContext{Now: 1000})
	_, _ = f.c.Tick(TickContext{Now: 1500})
	before := f.c.VehicleState()

	out, err := f.c.Tick(TickContext{Now: 1500})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Distance)
	assert.Equal(t, before, f.c.VehicleState())
}

func TestTick_Inert(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(0), nil)
	_, _ = f.c.Tick(TickContext{Now: 1000})

	for _, tc := range []TickContext{
		{Now: 2000, Paused: true},
		{Now: 2000, Loaded: true},
	} {
		out, err := f.c.Tick(tc)
		require.NoError(t, err)
		assert.Equal(t, 0.0, out.Distance)
	}
	assert.Equal(t, 0.0, f.c.VehicleState().DistanceTravelled)
	assert.Equal(t, 1000.0, f.c.VehicleState().LastTimeUpdated)

	inactive := newFixture(t, roverCaps(), resource.FixedSun(0))
	_, err := inactive.c.Tick(TickContext{Now: 1000})
	require.NoError(t, err)
	assert.Equal(t, 0.0, inactive.c.VehicleState().LastTimeUpdated)
}

func TestTick_ActiveVesselResetsTimestamp(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(0), nil)
	_, _ = f.c.Tick(TickContext{Now: 1000})

	out, err := f.c.Tick(TickContext{Now: 2000, ActiveVessel: &world.ActiveVessel{ID: "v1", Body: "Kerbin"}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Distance)
	assert.Equal(t, 0.0, f.c.VehicleState().LastTimeUpdated)

	// back in the background the integration window restarts
	out, err = f.c.Tick(TickContext{Now: 3000})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Distance)
	assert.Equal(t, 3000.0, f.c.VehicleState().LastTimeUpdated)
}

func TestTick_SafetyVeto(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(0), nil)
	_, _ = f.c.Tick(TickContext{Now: 1000})

	lat, lon := geo.Destination(0, 0, 90, 10000, 600000)
	blocker := &world.ActiveVessel{ID: "other", Body: "Kerbin", Latitude: lat, Longitude: lon + 0.1}

	out, err := f.c.Tick(TickContext{Now: 2000, ActiveVessel: blocker})
	require.NoError(t, err)
	assert.Equal(t, Idle, out.State)
	assert.Equal(t, 0.0, out.Distance)

	s := f.c.VehicleState()
	assert.Equal(t, 0.0, s.DistanceTravelled)
	assert.Equal(t, 0.0, s.Latitude)
	assert.Equal(t, 0.0, s.Longitude)
	assert.Equal(t, 2000.0, s.LastTimeUpdated)
	assert.Empty(t, f.rec.progress)

	// a vessel on another body does not block
	blocker.Body = "Mun"
	out, err = f.c.Tick(TickContext{Now: 3000, ActiveVessel: blocker})
	require.NoError(t, err)
	assert.Equal(t, Moving, out.State)
}

func TestTick_SafetyVetoAtTarget(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(0), nil)
	_, _ = f.c.Tick(TickContext{Now: 1000})
	_, _ = f.c.Tick(TickContext{Now: 2000})

	blocker := &world.ActiveVessel{ID: "other", Body: "Kerbin", Latitude: 0, Longitude: 1}
	out, err := f.c.Tick(TickContext{Now: 2100, ActiveVessel: blocker})
	require.NoError(t, err)
	assert.Equal(t, Idle, out.State)

	s := f.c.VehicleState()
	assert.True(t, s.Active)
	assert.False(t, s.Arrived)
	assert.Equal(t, 10000.0, s.DistanceTravelled)
	assert.Empty(t, f.rec.arrivals)
}

func TestTick_AwaitingSunlight(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(120), nil)
	_, _ = f.c.Tick(TickContext{Now: 1000})

	out, err := f.c.Tick(TickContext{Now: 2000})
	require.NoError(t, err)
	assert.Equal(t, AwaitingSunlight, out.State)
	assert.Equal(t, 0.0, out.Distance)

	s := f.c.VehicleState()
	assert.True(t, s.Active)
	assert.Equal(t, 0.0, s.DistanceTravelled)
	assert.Equal(t, 2000.0, s.LastTimeUpdated)
}

func TestTick_NightOnBattery(t *testing.T) {
	f := activeFixture(t, roverCaps(), resource.FixedSun(120), func(c *Controller) { c.SetUseBatteries(true) })
	_, _ = f.c.Tick(TickContext{Now: 1000})

	out, err := f.c.Tick(TickContext{Now: 1010})
	require.NoError(t, err)
	assert.Equal(t, Moving, out.State)
	// day speed with the crewed night multiplier while charge lasts
	assert.Equal(t, 2.5, out.Speed)
	assert.Equal(t, 25.0, out.Distance)
	assert.Equal(t, 150.0, f.c.Battery().CurrentEC)

	// battery drained: wait for the sun
	out, err = f.c.Tick(TickContext{Now: 1030})
	require.NoError(t, err)
	assert.Equal(t, AwaitingSunlight, out.State)
	assert.Equal(t, 0.0, f.c.Battery().CurrentEC)
}

func TestTick_UnmannedIgnoresNightMultiplier(t *testing.T) {
	caps := roverCaps()
	caps.Crew = nil
	caps.OtherPower = 50
	f := activeFixture(t, caps, resource.FixedSun(120), nil)
	_, _ = f.c.Tick(TickContext{Now: 1000})

	out, err := f.c.Tick(TickContext{Now: 1100})
	require.NoError(t, err)
	assert.Equal(t, 2.0, out.Speed)
	assert.Equal(t, 200.0, out.Distance)
}

func fuelCellCaps() core.Capabilities {
	caps := roverCaps()
	caps.SolarPower = 0
	caps.StoredCharge = 0
	caps.FuelCells = []core.FuelCellUnit{{Output: 50, Inputs: map[string]float64{"LqdHydrogen": 1}}}
	caps.FuelAvailable = map[string]float64{"LqdHydrogen": 100}
	return caps
}

func TestTick_FuelExhaustion(t *testing.T) {
	f := activeFixture(t, fuelCellCaps(), resource.FixedSun(0), func(c *Controller) { c.SetUseFuelCells(true) })
	_, _ = f.c.Tick(TickContext{Now: 1000})

	out, err := f.c.Tick(TickContext{Now: 2000})
	require.NoError(t, err)
	assert.Equal(t, StoppedOutOfFuel, out.State)
	// the budget of 100 units at 1 unit/s lasts 100 s at 10 m/s
	assert.Equal(t, 1000.0, out.Distance)

	s := f.c.VehicleState()
	assert.False(t, s.Active)
	assert.False(t, s.Arrived)
	assert.Empty(t, s.Path)
	assert.Equal(t, 1000.0, s.DistanceTravelled)

	fuel := f.c.FuelCells()
	require.Len(t, fuel.InputResources, 1)
	assert.Equal(t, 100.0, fuel.InputResources[0].CurrentAmountUsed)
	assert.LessOrEqual(t, fuel.InputResources[0].CurrentAmountUsed, fuel.InputResources[0].MaximumAmountAvailable)

	require.Len(t, f.rec.stops, 1)
	assert.Equal(t, core.StopOutOfFuel, f.rec.stops[0].Reason)
	assert.Equal(t, "v1", f.rec.stops[0].VehicleID)
}

func TestTick_FuelLastsAcrossTicks(t *testing.T) {
	f := activeFixture(t, fuelCellCaps(), resource.FixedSun(0), func(c *Controller) { c.SetUseFuelCells(true) })
	_, _ = f.c.Tick(TickContext{Now: 1000})

	for now := 1040.0; now <= 1080; now += 40 {
		out, err := f.c.Tick(TickContext{Now: now})
		require.NoError(t, err)
		assert.Equal(t, Moving, out.State)
	}
	assert.Equal(t, 80.0, f.c.FuelCells().InputResources[0].CurrentAmountUsed)

	out, err := f.c.Tick(TickContext{Now: 1120})
	require.NoError(t, err)
	assert.Equal(t, StoppedOutOfFuel, out.State)
	assert.Equal(t, 200.0, out.Distance)
	assert.Equal(t, 1000.0, f.c.VehicleState().DistanceTravelled)
	assert.Equal(t, 100.0, f.c.FuelCells().InputResources[0].CurrentAmountUsed)
}

func TestTick_RefreshMidJourneyKeepsFuelUsed(t *testing.T) {
	f := activeFixture(t, fuelCellCaps(), resource.FixedSun(0), func(c *Controller) { c.SetUseFuelCells(true) })
	_, _ = f.c.Tick(TickContext{Now: 1000})
	_, err := f.c.Tick(TickContext{Now: 1080})
	require.NoError(t, err)
	assert.Equal(t, 80.0, f.c.FuelCells().InputResources[0].CurrentAmountUsed)

	require.NoError(t, f.c.Refresh(context.Background()))
	assert.Equal(t, 80.0, f.c.FuelCells().InputResources[0].CurrentAmountUsed)

	out, err := f.c.Tick(TickContext{Now: 1160})
	require.NoError(t, err)
	assert.Equal(t, StoppedOutOfFuel, out.State)
	assert.Equal(t, 200.0, out.Distance)
	assert.Equal(t, 1000.0, f.c.VehicleState().DistanceTravelled)
	assert.Equal(t, 100.0, f.c.FuelCells().InputResources[0].CurrentAmountUsed)
}

func TestCarryOver_ClampsToNewModels(t *testing.T) {
	res := resource.Result{
		Battery: core.BatteryModel{UseBatteries: true, MaxUsedEC: 300, CurrentEC: 300},
		FuelCells: core.FuelCellModel{Use: true, InputResources: []core.FuelResource{
			{Name: "LqdHydrogen", MaximumAmountAvailable: 50},
			{Name: "Oxidizer", MaximumAmountAvailable: 100},
		}},
	}
	battery := core.BatteryModel{UseBatteries: true, MaxUsedEC: 500, CurrentEC: 420}
	fuel := core.FuelCellModel{Use: true, InputResources: []core.FuelResource{
		{Name: "LqdHydrogen", CurrentAmountUsed: 70, MaximumAmountAvailable: 100},
	}}

	carryOver(&res, battery, fuel)

	assert.Equal(t, 300.0, res.Battery.CurrentEC)
	assert.Equal(t, 50.0, res.FuelCells.InputResources[0].CurrentAmountUsed)
	assert.Equal(t, 0.0, res.FuelCells.InputResources[1].CurrentAmountUsed)

	battery.CurrentEC = 120
	carryOver(&res, battery, fuel)
	assert.Equal(t, 120.0, res.Battery.CurrentEC)
}

func TestTick_TransientFaultRestoresState(t *testing.T) {
	rec := core.VehicleRecord{
		ID:   "v2",
		Name: "Broken",
		Body: "Kerbin",
		State: core.VehicleState{
			Active:            true,
			TargetLongitude:   1,
			DistanceToTarget:  50000,
			DistanceTravelled: 20000,
			AverageSpeed:      10,
			LastTimeUpdated:   100,
			Path:              core.Path{{}, {Longitude: 0.1}},
		},
		Battery: core.BatteryModel{UseBatteries: true, MaxUsedEC: 100, CurrentEC: 50, ECPerSecondGenerated: 1},
	}
	rc := &recorder{}
	c := Restore(rec, kerbin, Config{StepDistance: 10000}, Dependencies{Notifier: rc, Progress: rc})
	before := c.Record()

	out, err := c.Tick(TickContext{Now: 200})
	require.ErrorIs(t, err, ErrTransientTick)
	assert.Equal(t, Idle, out.State)

	after := c.Record()
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Battery, after.Battery)
	assert.Empty(t, rc.progress)
}
