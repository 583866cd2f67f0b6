package handlers

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/bonvoyage/voyage/internal/config"
	"github.com/bonvoyage/voyage/internal/dispatcher"
	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/bonvoyage/voyage/internal/resource"
	"github.com/bonvoyage/voyage/internal/route"
	"github.com/bonvoyage/voyage/internal/storage"
	"github.com/bonvoyage/voyage/internal/storage/memory"
	"github.com/bonvoyage/voyage/internal/vehicle"
	"github.com/bonvoyage/voyage/pkg/core"
	"github.com/bonvoyage/voyage/pkg/streaming"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

var _ storage.Backend = (*memory.Backend)(nil)

var kerbin = core.Body{Name: "Kerbin", Radius: 600000, RotationPeriod: 21549.425}

type recorder struct {
	mu       sync.Mutex
	arrivals []core.ArrivalEvent
	stops    []core.StopEvent
	progress []core.ProgressEvent
}

func (r *recorder) Arrived(e core.ArrivalEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arrivals = append(r.arrivals, e)
}

func (r *recorder) Stopped(e core.StopEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops = append(r.stops, e)
}

func (r *recorder) RecordProgress(e core.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, e)
}

type metricWriter struct {
	mu      sync.Mutex
	buckets []string
}

func (m *metricWriter) WritePoint(bucket string, _ *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets = append(m.buckets, bucket)
	return nil
}

type fixture struct {
	svc     *Service
	d       *dispatcher.Dispatcher
	backend *memory.Backend
	sink    *recorder
}

func newFixture(t *testing.T, deps Dependencies) fixture {
	t.Helper()

	logManager := logging.NewSlogManager()
	logManager.Setup(nil, "error", nil)

	f := fixture{backend: memory.New(config.MemoryConfig{}), sink: &recorder{}}
	require.NoError(t, f.backend.Init())

	deps.Backend = f.backend
	deps.Sink = f.sink
	deps.LogManager = logManager
	deps.Simulator = vehicle.Config{StepDistance: 10000}
	f.svc = NewService(deps)
	f.svc.World().SetBody(kerbin, resource.FixedSun(0))

	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	f.svc.RegisterHandlers(d)
	f.d = d
	return f
}

func (f fixture) dispatch(t *testing.T, command string, args ...string) (any, error) {
	t.Helper()
	return f.d.Dispatch(dispatcher.Event{Command: command, Args: args})
}

func roverCapsJSON(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(core.Capabilities{
		SolarPower:          100,
		PropulsionPowerDraw: 100,
		PropulsionOnline:    1,
		MaxSpeedBase:        10,
		StoredCharge:        1000,
		Crew:                []core.CrewMember{{Name: "Bill", Class: core.CrewOther, Level: 1}},
	})
	require.NoError(t, err)
	return string(data)
}

func (f fixture) register(t *testing.T, id string) {
	t.Helper()
	res, err := f.dispatch(t, ":REGISTER:", id, "Rover "+id, "Kerbin", "0", "0", "0.5", "rover", roverCapsJSON(t))
	require.NoError(t, err)
	assert.Equal(t, id, res)
}

func TestRegisterHandlers_Commands(t *testing.T) {
	f := newFixture(t, Dependencies{})
	for _, cmd := range []string{
		":BODY:", ":ACTIVE:VESSEL:", ":PAUSE:", ":REGISTER:", ":UNREGISTER:", ":CAPABILITIES:",
		":ACTIVATE:", ":DEACTIVATE:", ":SHUTDOWN:", ":BATTERIES:", ":FUELCELLS:",
		":TICK:", ":TICK:ALL:", ":STATUS:", ":ROUTE:", ":SAVE:", ":PERSIST:", ":LOAD:", ":METRIC:",
	} {
		assert.True(t, f.d.HasHandler(cmd), cmd)
	}
}

func TestBodyAndHostState(t *testing.T) {
	f := newFixture(t, Dependencies{})

	_, err := f.dispatch(t, ":BODY:", "Mun", "200000", "138984.38")
	require.NoError(t, err)
	b, ok := f.svc.World().Body("Mun")
	require.True(t, ok)
	assert.Equal(t, 200000.0, b.Radius)

	_, err = f.dispatch(t, ":BODY:", "Mun", "-1", "1")
	assert.Error(t, err)

	_, err = f.dispatch(t, ":PAUSE:", "true")
	require.NoError(t, err)
	assert.True(t, f.svc.World().Paused())

	_, err = f.dispatch(t, ":ACTIVE:VESSEL:", "v9", "Kerbin", "1", "2", "70")
	require.NoError(t, err)
	require.NotNil(t, f.svc.World().ActiveVessel())
	assert.Equal(t, "v9", f.svc.World().ActiveVessel().ID)

	_, err = f.dispatch(t, ":ACTIVE:VESSEL:")
	require.NoError(t, err)
	assert.Nil(t, f.svc.World().ActiveVessel())
}

func TestRegister(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.register(t, "v1")

	ctrl, ok := f.svc.Controllers().Get("v1")
	require.True(t, ok)
	assert.Equal(t, "Rover v1", ctrl.Name())
	assert.Equal(t, core.VehicleRover, ctrl.VehicleState().Type)
	assert.Equal(t, 0.5, ctrl.VehicleState().HeightFromTerrain)

	rec, err := f.backend.LoadVehicle("v1")
	require.NoError(t, err)
	assert.Equal(t, "Kerbin", rec.Body)

	// registering again moves the vehicle without replacing it
	_, err = f.dispatch(t, ":REGISTER:", "v1", "Rover v1", "Kerbin", "1", "2")
	require.NoError(t, err)
	again, _ := f.svc.Controllers().Get("v1")
	assert.Same(t, ctrl, again)
	assert.Equal(t, 1.0, again.VehicleState().Latitude)
	assert.Equal(t, 1, f.svc.Controllers().Len())
}

func TestBody_UpdatesRegisteredVehicles(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.register(t, "v1")
	_, err := f.dispatch(t, ":BODY:", "Mun", "200000", "138984.38")
	require.NoError(t, err)

	_, err = f.dispatch(t, ":BODY:", "Kerbin", "600000", "43200")
	require.NoError(t, err)

	ctrl, ok := f.svc.Controllers().Get("v1")
	require.True(t, ok)
	assert.Equal(t, core.Body{Name: "Kerbin", Radius: 600000, RotationPeriod: 43200}, ctrl.Body())
	// the fixture's custom sun survives re-registration
	assert.Equal(t, resource.FixedSun(0), f.svc.World().Sun("Kerbin"))
}

func TestRegister_UnknownBody(t *testing.T) {
	f := newFixture(t, Dependencies{})
	_, err := f.dispatch(t, ":REGISTER:", "v1", "Boat", "Eve", "0", "0")
	assert.ErrorIs(t, err, ErrUnknownBody)
}

func TestUnknownVehicle(t *testing.T) {
	f := newFixture(t, Dependencies{})
	for _, cmd := range []string{":DEACTIVATE:", ":STATUS:", ":ROUTE:", ":UNREGISTER:"} {
		_, err := f.dispatch(t, cmd, "ghost")
		assert.ErrorIs(t, err, ErrUnknownVehicle, cmd)
	}
	_, err := f.dispatch(t, ":TICK:", "ghost", "100")
	assert.ErrorIs(t, err, ErrUnknownVehicle)
	_, err = f.dispatch(t, ":ACTIVATE:", "ghost", "0", "1")
	assert.ErrorIs(t, err, ErrUnknownVehicle)
}

func TestActivateTickAndStatus(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.register(t, "v1")

	report, err := f.dispatch(t, ":ACTIVATE:", "v1", "0", "1")
	require.NoError(t, err)
	assert.NotEmpty(t, report)

	res, err := f.dispatch(t, ":TICK:", "v1", "100")
	require.NoError(t, err)
	assert.Equal(t, "idle", res)

	res, err = f.dispatch(t, ":TICK:", "v1", "1100")
	require.NoError(t, err)
	assert.Equal(t, "moving", res)
	require.Len(t, f.sink.progress, 1)
	assert.Greater(t, f.sink.progress[0].DistanceTravelled, 0.0)

	// the state change is persisted
	rec, err := f.backend.LoadVehicle("v1")
	require.NoError(t, err)
	assert.True(t, rec.State.Active)
	assert.Equal(t, 1100.0, rec.State.LastTimeUpdated)

	res, err = f.dispatch(t, ":STATUS:", "v1")
	require.NoError(t, err)
	status := res.(streaming.StatusPayload)
	assert.Equal(t, "moving", status.State)
	assert.True(t, status.Active)
	assert.Contains(t, status.Report[len(status.Report)-1], "Distance to target")

	res, err = f.dispatch(t, ":ROUTE:", "v1")
	require.NoError(t, err)
	assert.Contains(t, res, `"type":"LineString"`)

	_, err = f.dispatch(t, ":DEACTIVATE:", "v1")
	require.NoError(t, err)
	_, err = f.dispatch(t, ":ROUTE:", "v1")
	assert.Error(t, err)
}

func TestActivate_PreconditionFailure(t *testing.T) {
	f := newFixture(t, Dependencies{})
	_, err := f.dispatch(t, ":REGISTER:", "v1", "Rover", "Kerbin", "0", "0")
	require.NoError(t, err)

	_, err = f.dispatch(t, ":ACTIVATE:", "v1", "0", "1")
	assert.ErrorIs(t, err, vehicle.ErrNoPropulsion)

	_, err = f.dispatch(t, ":CAPABILITIES:", "v1", roverCapsJSON(t))
	require.NoError(t, err)
	_, err = f.dispatch(t, ":ACTIVATE:", "v1", "0", "1")
	assert.NoError(t, err)
}

func TestActivate_TerrainMap(t *testing.T) {
	oceans := &route.RegionMap{Body: "Kerbin", Default: route.BiomeOcean}
	f := newFixture(t, Dependencies{Terrain: map[string]*route.RegionMap{"Kerbin": oceans}})
	f.register(t, "v1")

	// a rover on an all-ocean body has nowhere to go
	_, err := f.dispatch(t, ":ACTIVATE:", "v1", "0", "1")
	assert.ErrorIs(t, err, route.ErrNoRouteFound)
}

func TestTick_ArrivalIsNotifiedAndSaved(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.register(t, "v1")
	_, err := f.dispatch(t, ":ACTIVATE:", "v1", "0", "0.001")
	require.NoError(t, err)

	moved, err := f.svc.TickAll(100)
	require.NoError(t, err)
	assert.Equal(t, 0, moved)

	moved, err = f.svc.TickAll(200)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	require.Len(t, f.sink.arrivals, 1)
	assert.Equal(t, "v1", f.sink.arrivals[0].VehicleID)
	rec, err := f.backend.LoadVehicle("v1")
	require.NoError(t, err)
	assert.True(t, rec.State.Arrived)
	assert.False(t, rec.State.Active)
}

func TestTick_PausedIsInert(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.register(t, "v1")
	_, err := f.dispatch(t, ":ACTIVATE:", "v1", "0", "1")
	require.NoError(t, err)

	_, err = f.dispatch(t, ":PAUSE:", "true")
	require.NoError(t, err)
	_, err = f.dispatch(t, ":TICK:ALL:", "100")
	require.NoError(t, err)
	_, err = f.dispatch(t, ":TICK:ALL:", "1100")
	require.NoError(t, err)

	ctrl, _ := f.svc.Controllers().Get("v1")
	assert.Equal(t, 0.0, ctrl.VehicleState().LastTimeUpdated)
	assert.Empty(t, f.sink.progress)
}

func TestToggles(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.register(t, "v1")
	ctrl, _ := f.svc.Controllers().Get("v1")

	_, err := f.dispatch(t, ":FUELCELLS:", "v1", "true")
	require.NoError(t, err)
	assert.True(t, ctrl.UseFuelCells())
	assert.True(t, ctrl.UseBatteries())

	_, err = f.dispatch(t, ":BATTERIES:", "v1", "false")
	require.NoError(t, err)
	assert.False(t, ctrl.UseFuelCells())

	_, err = f.dispatch(t, ":SHUTDOWN:", "v1", "true")
	require.NoError(t, err)
	assert.True(t, ctrl.VehicleState().Shutdown)
	_, err = f.dispatch(t, ":ACTIVATE:", "v1", "0", "1")
	assert.ErrorIs(t, err, vehicle.ErrShutdown)

	rec, err := f.backend.LoadVehicle("v1")
	require.NoError(t, err)
	assert.True(t, rec.State.Shutdown)
}

func TestSaveAndRestore(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.register(t, "v1")
	f.register(t, "v2")
	_, err := f.dispatch(t, ":ACTIVATE:", "v2", "0", "1")
	require.NoError(t, err)

	res, err := f.dispatch(t, ":SAVE:")
	require.NoError(t, err)
	assert.Equal(t, 2, res)

	// an orphan on a body the new world does not know
	require.NoError(t, f.backend.SaveVehicle(core.VehicleRecord{ID: "v3", Body: "Eve"}))

	svc := NewService(Dependencies{Backend: f.backend, Simulator: vehicle.Config{StepDistance: 10000}})
	svc.World().SetBody(kerbin, nil)
	n, err := svc.Restore()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ctrl, ok := svc.Controllers().Get("v2")
	require.True(t, ok)
	assert.True(t, ctrl.VehicleState().Active)
	assert.NotEmpty(t, ctrl.VehicleState().Path)

	statuses := svc.FleetStatus()
	require.Len(t, statuses, 2)
	assert.Equal(t, "v1", statuses[0].VehicleID)

	// restoring twice does not duplicate controllers
	n, err = svc.Restore()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUnregister(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.register(t, "v1")

	_, err := f.dispatch(t, ":UNREGISTER:", "v1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.svc.Controllers().Len())
	_, err = f.backend.LoadVehicle("v1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMetric(t *testing.T) {
	f := newFixture(t, Dependencies{})
	_, err := f.svc.handleMetric(dispatcher.Event{Args: []string{"host_metrics", "fps"}})
	assert.ErrorIs(t, err, ErrNoMetrics)

	w := &metricWriter{}
	f = newFixture(t, Dependencies{Metrics: w})
	_, err = f.svc.handleMetric(dispatcher.Event{Args: []string{`"host_metrics"`, "fps", "field::float::fps::60"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"host_metrics"}, w.buckets)

	res, err := f.dispatch(t, ":METRIC:", "host_metrics", "fps")
	require.NoError(t, err)
	assert.Equal(t, "queued", res)
}
