// Package vehicle drives one vehicle's autopilot while the host is not simulating it.
//
// A Controller owns the persisted journey state of its vehicle together with the
// battery and fuel-cell budgets computed by the last system check. Activate plans
// a route and arms the autopilot; Tick advances the journey by the time elapsed
// since the previous tick.
package vehicle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/bonvoyage/voyage/internal/resource"
	"github.com/bonvoyage/voyage/internal/route"
	"github.com/bonvoyage/voyage/pkg/core"
)

var (
	ErrNoPropulsion         = errors.New("no propulsion online")
	ErrNoElectricPropulsion = errors.New("no electric propulsion online")
	ErrNoFuel               = errors.New("not enough fuel")
	ErrInsufficientPower    = errors.New("not enough power")
	ErrShutdown             = errors.New("vehicle is shut down")
	ErrAlreadyActive        = errors.New("autopilot already active")

	// ErrTransientTick marks a tick aborted on inconsistent geometry. State is
	// unchanged and the next tick retries.
	ErrTransientTick = errors.New("transient tick fault")
)

// State is the simulator state after the most recent tick.
type State int

const (
	Idle State = iota
	Moving
	AwaitingSunlight
	Arrived
	StoppedOutOfFuel
)

func (s State) String() string {
	switch s {
	case Moving:
		return "moving"
	case AwaitingSunlight:
		return "awaiting_sunlight"
	case Arrived:
		return "arrived"
	case StoppedOutOfFuel:
		return "stopped_out_of_fuel"
	default:
		return "idle"
	}
}

// Config holds simulator settings shared by all controllers.
type Config struct {
	// StepDistance is the planner step in metres.
	StepDistance float64
	// SafetyRadius is the clearance kept from the vessel under live control.
	SafetyRadius float64
	// AutomaticDewarp is forwarded to the host in arrival and stop events.
	AutomaticDewarp bool
}

// DefaultConfig returns the simulator defaults.
func DefaultConfig() Config {
	return Config{
		StepDistance: 1000,
		SafetyRadius: 2400,
	}
}

// Dependencies holds the collaborators of a controller
type Dependencies struct {
	Capabilities CapabilityProvider
	Planner      *route.Planner
	Sun          resource.SunModel
	Notifier     Notifier
	Progress     ProgressRecorder
	Logger       *slog.Logger
	// Clock stamps events. Defaults to time.Now.
	Clock func() time.Time
}

// Controller runs the autopilot of one vehicle. All methods are safe for
// concurrent use; ticks of one controller are serialized.
type Controller struct {
	mu sync.Mutex

	id   string
	name string
	body core.Body
	cfg  Config
	deps Dependencies

	state     core.VehicleState
	battery   core.BatteryModel
	fuelCells core.FuelCellModel
	snapshot  core.ResourceSnapshot
	report    []string
	status    State
	metrics   *metrics
}

// New creates an idle controller for a vehicle at the given position.
func New(id, name string, body core.Body, position core.Waypoint, cfg Config, deps Dependencies) *Controller {
	c := newController(cfg, deps)
	c.id = id
	c.name = name
	c.body = body
	c.state.Latitude = position.Latitude
	c.state.Longitude = position.Longitude
	return c
}

// Restore recreates a controller from a stored record.
func Restore(rec core.VehicleRecord, body core.Body, cfg Config, deps Dependencies) *Controller {
	c := newController(cfg, deps)
	c.id = rec.ID
	c.name = rec.Name
	c.body = body
	c.state = rec.State
	c.state.Path = rec.State.Path.Clone()
	c.battery = rec.Battery
	c.fuelCells = rec.FuelCells.Clone()
	c.snapshot = rec.Snapshot
	switch {
	case rec.State.Arrived:
		c.status = Arrived
	default:
		c.status = Idle
	}
	return c
}

func newController(cfg Config, deps Dependencies) *Controller {
	d := DefaultConfig()
	if cfg.StepDistance <= 0 {
		cfg.StepDistance = d.StepDistance
	}
	if cfg.SafetyRadius <= 0 {
		cfg.SafetyRadius = d.SafetyRadius
	}
	if deps.Capabilities == nil {
		deps.Capabilities = NewStaticCapabilities(core.Capabilities{})
	}
	if deps.Planner == nil {
		deps.Planner = route.NewPlanner(route.DefaultConfig())
	}
	if deps.Sun == nil {
		deps.Sun = resource.FixedSun(0)
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Progress == nil {
		deps.Progress = nopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	m, err := newMetrics()
	if err != nil {
		deps.Logger.Warn("simulator metrics disabled", "error", err)
	}

	return &Controller{cfg: cfg, deps: deps, metrics: m}
}

// ID returns the vehicle identifier
func (c *Controller) ID() string { return c.id }

// Name returns the vehicle name
func (c *Controller) Name() string { return c.name }

// Body returns the body the vehicle is on
func (c *Controller) Body() core.Body {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.body
}

// SetBody replaces the body parameters and sun model after the host re-registers
// the body. A nil sun keeps the current model.
func (c *Controller) SetBody(body core.Body, sun resource.SunModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.body = body
	if sun != nil {
		c.deps.Sun = sun
	}
}

// State returns the simulator state after the most recent tick.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// VehicleState returns a copy of the persisted journey state.
func (c *Controller) VehicleState() core.VehicleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Path = c.state.Path.Clone()
	return s
}

// Record exports everything that is stored for this controller.
func (c *Controller) Record() core.VehicleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Path = c.state.Path.Clone()
	return core.VehicleRecord{
		ID:        c.id,
		Name:      c.name,
		Body:      c.body.Name,
		State:     s,
		Battery:   c.battery,
		FuelCells: c.fuelCells.Clone(),
		Snapshot:  c.snapshot,
		UpdatedAt: c.deps.Clock(),
	}
}

// Report returns the status lines of the last system check.
func (c *Controller) Report() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.report...)
}

// SetVehicleType selects rover or ship rules for the next activation.
func (c *Controller) SetVehicleType(t core.VehicleType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Type = t
}

// SetPosition moves an inactive vehicle, for example after the host flew it.
func (c *Controller) SetPosition(w core.Waypoint, heightFromTerrain float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Active {
		return
	}
	c.state.Latitude = w.Latitude
	c.state.Longitude = w.Longitude
	c.state.HeightFromTerrain = heightFromTerrain
}

// ActivateRequest asks the autopilot to drive to Target.
type ActivateRequest struct {
	Target core.Waypoint
	// Terrain overrides the traversability filter. nil allows everything.
	Terrain route.TerrainFilter
}

// Activate runs a system check, validates the vehicle can travel, plans the
// route and arms the autopilot. On error nothing changes.
func (c *Controller) Activate(ctx context.Context, req ActivateRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Shutdown {
		return ErrShutdown
	}
	if c.state.Active {
		return ErrAlreadyActive
	}

	caps, err := c.deps.Capabilities.Capabilities(ctx)
	if err != nil {
		return fmt.Errorf("querying capabilities: %w", err)
	}
	res := resource.SystemCheck(caps, c.battery, c.fuelCells, c.body.RotationPeriod)

	if caps.PropulsionOnline < 1 {
		return ErrNoPropulsion
	}
	if c.state.Type == core.VehicleShip && caps.ElectricPropulsion < 1 {
		return ErrNoElectricPropulsion
	}
	if res.FuelCells.Use {
		for _, in := range res.FuelCells.InputResources {
			if in.MaximumAmountAvailable <= 0 {
				return fmt.Errorf("%w: %s", ErrNoFuel, in.Name)
			}
		}
	}
	if !res.DayFeasible {
		return fmt.Errorf("%w: speed reduced by %.2f%%", ErrInsufficientPower, res.Snapshot.SpeedReduction)
	}

	terrain := req.Terrain
	if terrain == nil {
		terrain = route.AllowAll
	}
	path, err := c.deps.Planner.Plan(ctx, route.Request{
		Origin:       c.state.Position(),
		Target:       req.Target,
		Radius:       c.body.Radius,
		StepDistance: c.cfg.StepDistance,
		Terrain:      terrain,
	})
	if err != nil {
		return fmt.Errorf("planning route: %w", err)
	}

	c.apply(res)
	c.state.Active = true
	c.state.Arrived = false
	c.state.TargetLatitude = req.Target.Latitude
	c.state.TargetLongitude = req.Target.Longitude
	c.state.Path = path
	c.state.DistanceToTarget = route.DistanceToTarget(path, req.Target, c.cfg.StepDistance, c.body.Radius)
	c.state.DistanceTravelled = 0
	c.state.AverageSpeed = res.AverageSpeed
	c.state.AverageSpeedAtNight = res.AverageSpeedAtNight
	c.state.Manned = res.Snapshot.Manned
	c.state.LastTimeUpdated = 0
	c.status = Idle

	c.deps.Logger.Info("autopilot activated",
		"vehicle", c.id,
		"waypoints", len(path),
		"distance", c.state.DistanceToTarget,
		"speed", c.state.AverageSpeed,
		"speedAtNight", c.state.AverageSpeedAtNight)
	return nil
}

// Deactivate stops the autopilot and reruns the system check. The autopilot
// is stopped even when the capability query fails.
func (c *Controller) Deactivate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deactivate(ctx)
}

func (c *Controller) deactivate(ctx context.Context) error {
	c.state.Active = false
	c.state.Path = nil
	c.status = Idle
	return c.refresh(ctx)
}

// Refresh reruns the system check without touching the journey.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh(ctx)
}

func (c *Controller) refresh(ctx context.Context) error {
	caps, err := c.deps.Capabilities.Capabilities(ctx)
	if err != nil {
		return fmt.Errorf("querying capabilities: %w", err)
	}
	c.apply(resource.SystemCheck(caps, c.battery, c.fuelCells, c.body.RotationPeriod))
	return nil
}

// apply installs a system check result. During a journey the fuel already
// burned and the charge already drawn carry over into the new models.
func (c *Controller) apply(res resource.Result) {
	if c.state.Active {
		carryOver(&res, c.battery, c.fuelCells)
	}
	c.battery = res.Battery
	c.fuelCells = res.FuelCells
	c.snapshot = res.Snapshot
	c.report = resource.Report(res)
}

func carryOver(res *resource.Result, battery core.BatteryModel, fuel core.FuelCellModel) {
	if battery.UseBatteries && res.Battery.UseBatteries {
		res.Battery.CurrentEC = math.Min(battery.CurrentEC, res.Battery.MaxUsedEC)
	}

	used := make(map[string]float64, len(fuel.InputResources))
	for _, in := range fuel.InputResources {
		used[in.Name] = in.CurrentAmountUsed
	}
	for i := range res.FuelCells.InputResources {
		in := &res.FuelCells.InputResources[i]
		in.CurrentAmountUsed = math.Min(used[in.Name], in.MaximumAmountAvailable)
	}
}

// SetShutdown toggles the shutdown flag. Shutting down deactivates a running autopilot.
func (c *Controller) SetShutdown(ctx context.Context, shutdown bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Shutdown = shutdown
	if shutdown && c.state.Active {
		return c.deactivate(ctx)
	}
	return nil
}

// UseBatteries reports whether the autopilot draws on stored charge.
func (c *Controller) UseBatteries() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.battery.UseBatteries
}

// SetUseBatteries toggles battery use. Fuel cells need batteries, so
// disabling batteries disables fuel cells.
func (c *Controller) SetUseBatteries(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.battery.UseBatteries = v
	if !v {
		c.fuelCells.Use = false
	}
}

// UseFuelCells reports whether fuel cells run during ticks.
func (c *Controller) UseFuelCells() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fuelCells.Use
}

// SetUseFuelCells toggles fuel cells. Enabling them enables batteries.
func (c *Controller) SetUseFuelCells(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fuelCells.Use = v
	if v {
		c.battery.UseBatteries = true
	}
}

// Battery returns the current battery model
func (c *Controller) Battery() core.BatteryModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.battery
}

// FuelCells returns a copy of the current fuel-cell model
func (c *Controller) FuelCells() core.FuelCellModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fuelCells.Clone()
}
