// Package handlers implements the host commands that drive the fleet of
// vehicle controllers.
package handlers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bonvoyage/voyage/internal/cache"
	"github.com/bonvoyage/voyage/internal/dispatcher"
	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/bonvoyage/voyage/internal/notify"
	"github.com/bonvoyage/voyage/internal/parser"
	"github.com/bonvoyage/voyage/internal/route"
	"github.com/bonvoyage/voyage/internal/storage"
	"github.com/bonvoyage/voyage/internal/vehicle"
	"github.com/bonvoyage/voyage/internal/world"
	"github.com/bonvoyage/voyage/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

var (
	ErrUnknownVehicle = errors.New("unknown vehicle")
	ErrUnknownBody    = errors.New("unknown body")
	ErrNoMetrics      = errors.New("metrics writer not configured")
)

// MetricWriter accepts host metrics. Implemented by influx.Manager.
type MetricWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	World       *world.Context
	Controllers *cache.ControllerCache
	Backend     storage.Backend
	Parser      *parser.Parser
	Planner     *route.Planner
	LogManager  *logging.SlogManager
	// Sink receives every controller event. Nil discards them.
	Sink notify.Sink
	// Simulator settings handed to new controllers.
	Simulator vehicle.Config
	// Terrain holds region maps by body name. Bodies without a map allow
	// every point.
	Terrain map[string]*route.RegionMap
	Metrics MetricWriter
}

// Service provides handler methods for the host commands.
type Service struct {
	deps Dependencies

	mu           sync.Mutex
	capabilities map[string]*vehicle.StaticCapabilities
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.World == nil {
		deps.World = world.NewContext()
	}
	if deps.Controllers == nil {
		deps.Controllers = cache.NewControllerCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.LogManager.Logger())
	}
	if deps.Planner == nil {
		deps.Planner = route.NewPlanner(route.DefaultConfig())
	}
	return &Service{
		deps:         deps,
		capabilities: make(map[string]*vehicle.StaticCapabilities),
	}
}

// World returns the host state shared by all ticks.
func (s *Service) World() *world.Context {
	return s.deps.World
}

// Controllers returns the controller registry.
func (s *Service) Controllers() *cache.ControllerCache {
	return s.deps.Controllers
}

func (s *Service) writeLog(functionName, data, level string) {
	s.deps.LogManager.WriteLog(functionName, data, level)
}

// RegisterHandlers registers all commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	// host state
	d.Register(":BODY:", s.handleBody, dispatcher.Logged())
	d.Register(":ACTIVE:VESSEL:", s.handleActiveVessel)
	d.Register(":PAUSE:", s.handlePause, dispatcher.Logged())

	// vehicle lifecycle
	d.Register(":REGISTER:", s.handleRegister, dispatcher.Logged())
	d.Register(":UNREGISTER:", s.handleUnregister, dispatcher.Logged())
	d.Register(":CAPABILITIES:", s.handleCapabilities, dispatcher.Logged())

	// autopilot control
	d.Register(":ACTIVATE:", s.handleActivate, dispatcher.Logged())
	d.Register(":DEACTIVATE:", s.handleDeactivate, dispatcher.Logged())
	d.Register(":SHUTDOWN:", s.handleShutdown, dispatcher.Logged())
	d.Register(":BATTERIES:", s.handleBatteries, dispatcher.Logged())
	d.Register(":FUELCELLS:", s.handleFuelCells, dispatcher.Logged())

	// simulation
	d.Register(":TICK:", s.handleTick)
	d.Register(":TICK:ALL:", s.handleTickAll)

	// queries
	d.Register(":STATUS:", s.handleStatus)
	d.Register(":ROUTE:", s.handleRoute)
	d.Register(":SAVE:", s.handleSave, dispatcher.Logged())

	// host-side state record
	d.Register(":PERSIST:", s.handlePersist)
	d.Register(":LOAD:", s.handleLoad, dispatcher.Logged())

	// host telemetry, fire and forget
	d.Register(":METRIC:", s.handleMetric, dispatcher.Buffered(1000))
}

func (s *Service) controller(id string) (*vehicle.Controller, error) {
	ctrl, ok := s.deps.Controllers.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVehicle, id)
	}
	return ctrl, nil
}

// provider returns the capability holder of a vehicle, creating it on first use.
func (s *Service) provider(id string) *vehicle.StaticCapabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.capabilities[id]
	if !ok {
		p = vehicle.NewStaticCapabilities(core.Capabilities{})
		s.capabilities[id] = p
	}
	return p
}

func (s *Service) dropProvider(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.capabilities, id)
}

func (s *Service) controllerDeps(id, body string) vehicle.Dependencies {
	deps := vehicle.Dependencies{
		Capabilities: s.provider(id),
		Planner:      s.deps.Planner,
		Sun:          s.deps.World.Sun(body),
		Logger:       s.deps.LogManager.Logger(),
	}
	if s.deps.Sink != nil {
		deps.Notifier = s.deps.Sink
		deps.Progress = s.deps.Sink
	}
	return deps
}

// terrain returns the traversability filter for a vehicle, or nil when its
// body has no region map.
func (s *Service) terrain(ctrl *vehicle.Controller) route.TerrainFilter {
	m, ok := s.deps.Terrain[ctrl.Body().Name]
	if !ok {
		return nil
	}
	return route.ForVehicle(ctrl.VehicleState().Type, m.Classify)
}

// save writes the controller record when a backend is configured.
func (s *Service) save(ctrl *vehicle.Controller) error {
	if s.deps.Backend == nil {
		return nil
	}
	if err := s.deps.Backend.SaveVehicle(ctrl.Record()); err != nil {
		return fmt.Errorf("failed to save vehicle %s: %w", ctrl.ID(), err)
	}
	return nil
}
