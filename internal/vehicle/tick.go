package vehicle

import (
	"fmt"
	"math"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/internal/resource"
	"github.com/bonvoyage/voyage/internal/world"
	"github.com/bonvoyage/voyage/pkg/core"
)

// TickContext carries the host state a tick reads.
type TickContext struct {
	// Now is the universal time in seconds.
	Now float64
	// Loaded is true while the host simulates the vehicle itself.
	Loaded bool
	Paused bool
	// ActiveVessel is the vessel under live control, nil when there is none.
	ActiveVessel *world.ActiveVessel
}

// Outcome describes what a tick did.
type Outcome struct {
	State    State
	Distance float64 // metres advanced this tick
	SunAngle float64
	Speed    float64
}

type checkpoint struct {
	state     core.VehicleState
	battery   core.BatteryModel
	fuelCells core.FuelCellModel
	status    State
}

func (c *Controller) save() checkpoint {
	s := c.state
	s.Path = c.state.Path.Clone()
	return checkpoint{state: s, battery: c.battery, fuelCells: c.fuelCells.Clone(), status: c.status}
}

func (c *Controller) restore(cp checkpoint) {
	c.state = cp.state
	c.battery = cp.battery
	c.fuelCells = cp.fuelCells
	c.status = cp.status
}

// Tick advances the journey to tc.Now. It does nothing while paused, while the
// vehicle is loaded or inactive, and when no time has passed. The first tick
// after activation only records the time.
//
// A returned ErrTransientTick leaves every field as it was before the call.
func (c *Controller) Tick(tc TickContext) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tc.Paused {
		return Outcome{State: c.status}, nil
	}

	if tc.ActiveVessel != nil && tc.ActiveVessel.ID == c.id {
		c.state.LastTimeUpdated = 0
		if c.state.Active {
			c.deps.Logger.Warn("autopilot is active on the vessel under live control", "vehicle", c.id)
		}
		return Outcome{State: c.status}, nil
	}

	if !c.state.Active || tc.Loaded {
		return Outcome{State: c.status}, nil
	}

	if c.state.LastTimeUpdated == 0 {
		c.status = Idle
		c.state.LastTimeUpdated = tc.Now
		return Outcome{State: c.status}, nil
	}

	if tc.Now <= c.state.LastTimeUpdated {
		return Outcome{State: c.status}, nil
	}

	cp := c.save()
	out, err := c.advance(tc)
	if err != nil {
		c.restore(cp)
		c.deps.Logger.Debug("tick aborted", "vehicle", c.id, "error", err)
		return Outcome{State: c.status}, fmt.Errorf("%w: %v", ErrTransientTick, err)
	}

	c.metrics.tick(c.body.Name, out.State, out.Distance)
	return out, nil
}

func (c *Controller) advance(tc TickContext) (Outcome, error) {
	deltaT := tc.Now - c.state.LastTimeUpdated

	angle := c.deps.Sun.Angle(c.state.Latitude, c.state.Longitude, tc.Now)
	if math.IsNaN(angle) {
		return Outcome{}, fmt.Errorf("sun angle undefined at %.4f,%.4f", c.state.Latitude, c.state.Longitude)
	}
	multiplier := resource.DayNightMultiplier(angle, c.state.Manned)
	day := resource.IsDay(angle)
	out := Outcome{SunAngle: angle}

	// fuel cells burn before the battery is integrated so an overrun shortens both
	overrun := 0.0
	if c.battery.UseBatteries {
		if resource.FuelCellsNeeded(c.fuelCells, c.battery, angle) {
			overrun = resource.ConsumeFuel(&c.fuelCells, deltaT)
			deltaT -= overrun
		}
		c.battery = resource.IntegrateBattery(c.battery, deltaT, day)
	}

	charged := c.battery.UseBatteries && c.battery.CurrentEC > 0
	if !day && c.state.AverageSpeedAtNight == 0 && !charged {
		c.status = AwaitingSunlight
		c.state.LastTimeUpdated = tc.Now
		if overrun > 0 {
			c.stopOutOfFuel(tc)
		}
		out.State = c.status
		return out, nil
	}

	speed := resource.CurrentSpeed(c.state.AverageSpeed, c.state.AverageSpeedAtNight, c.battery, angle, multiplier)
	deltaS := speed * deltaT
	c.state.DistanceTravelled += deltaS
	out.Speed = speed

	if c.state.DistanceTravelled >= c.state.DistanceToTarget {
		if !c.moveSafely(c.state.Target(), tc.ActiveVessel) {
			c.state.DistanceTravelled -= deltaS
			c.status = Idle
		} else {
			out.Distance = c.state.DistanceToTarget - (c.state.DistanceTravelled - deltaS)
			c.arrive(tc)
		}
	} else {
		pos, err := c.positionAt(c.state.DistanceTravelled)
		if err != nil {
			return Outcome{}, err
		}
		if !c.moveSafely(pos, tc.ActiveVessel) {
			c.state.DistanceTravelled -= deltaS
			c.status = Idle
		} else {
			out.Distance = deltaS
			c.status = Moving
		}
	}

	c.state.LastTimeUpdated = tc.Now

	if overrun > 0 && !c.state.Arrived {
		c.stopOutOfFuel(tc)
	}

	out.State = c.status
	if out.Distance > 0 {
		c.deps.Progress.RecordProgress(core.ProgressEvent{
			VehicleID:         c.id,
			VehicleName:       c.name,
			Body:              c.body.Name,
			State:             c.status.String(),
			Latitude:          c.state.Latitude,
			Longitude:         c.state.Longitude,
			DistanceTravelled: c.state.DistanceTravelled,
			DistanceToTarget:  c.state.DistanceToTarget,
			Speed:             speed,
			SunAngle:          angle,
			CurrentEC:         c.battery.CurrentEC,
			UniversalTime:     tc.Now,
			Time:              c.deps.Clock(),
		})
	}
	return out, nil
}

// positionAt returns the point at distance d along the stored path.
func (c *Controller) positionAt(d float64) (core.Waypoint, error) {
	path := c.state.Path
	step := int(math.Floor(d / c.cfg.StepDistance))
	if step < 0 || step >= len(path) {
		return core.Waypoint{}, fmt.Errorf("path index %d out of range [0,%d)", step, len(path))
	}
	remainder := math.Mod(d, c.cfg.StepDistance)

	from := path[step]
	next := c.state.Target()
	if step < len(path)-1 {
		next = path[step+1]
	}
	pos := geo.Step(from, geo.WaypointBearing(from, next), remainder, c.body.Radius)
	if math.IsNaN(pos.Latitude) || math.IsNaN(pos.Longitude) {
		return core.Waypoint{}, fmt.Errorf("undefined position at step %d", step)
	}
	return pos, nil
}

// moveSafely places the vehicle at w unless that puts it within the safety
// radius of the vessel under live control.
func (c *Controller) moveSafely(w core.Waypoint, active *world.ActiveVessel) bool {
	if active != nil && (active.Body == "" || active.Body == c.body.Name) {
		p := geo.SurfacePosition(w.Latitude, w.Longitude, 0, c.body.Radius)
		a := geo.SurfacePosition(active.Latitude, active.Longitude, active.Altitude, c.body.Radius)
		if p.Distance(a) <= c.cfg.SafetyRadius {
			return false
		}
	}
	c.state.Latitude = w.Latitude
	c.state.Longitude = w.Longitude
	return true
}

func (c *Controller) arrive(tc TickContext) {
	c.state.DistanceTravelled = c.state.DistanceToTarget
	c.state.Active = false
	c.state.Arrived = true
	c.state.Path = nil
	c.status = Arrived

	c.deps.Logger.Info("vehicle arrived", "vehicle", c.id, "body", c.body.Name,
		"latitude", c.state.Latitude, "longitude", c.state.Longitude)
	c.metrics.arrived(c.body.Name)
	c.deps.Notifier.Arrived(core.ArrivalEvent{
		VehicleID:     c.id,
		VehicleName:   c.name,
		Body:          c.body.Name,
		Latitude:      c.state.TargetLatitude,
		Longitude:     c.state.TargetLongitude,
		UniversalTime: tc.Now,
		Time:          c.deps.Clock(),
		Dewarp:        c.cfg.AutomaticDewarp,
	})
}

func (c *Controller) stopOutOfFuel(tc TickContext) {
	c.state.Active = false
	c.state.Path = nil
	c.status = StoppedOutOfFuel

	c.deps.Logger.Warn("autopilot stopped, not enough fuel", "vehicle", c.id,
		"latitude", c.state.Latitude, "longitude", c.state.Longitude)
	c.metrics.stopped(c.body.Name, string(core.StopOutOfFuel))
	c.deps.Notifier.Stopped(core.StopEvent{
		VehicleID:     c.id,
		VehicleName:   c.name,
		Body:          c.body.Name,
		Reason:        core.StopOutOfFuel,
		Latitude:      c.state.Latitude,
		Longitude:     c.state.Longitude,
		UniversalTime: tc.Now,
		Time:          c.deps.Clock(),
		Dewarp:        c.cfg.AutomaticDewarp,
	})
}
