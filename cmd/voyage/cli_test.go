package main

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bonvoyage/voyage/internal/config"
	"github.com/bonvoyage/voyage/internal/storage/memory"
	"github.com/bonvoyage/voyage/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCommand(t *testing.T) {
	var out strings.Builder
	err := planCommand([]string{"-from", "0,0", "-to", "0.1,0", "-step", "1000"}, &out)
	require.NoError(t, err)

	lines := strings.SplitN(out.String(), "\n", 2)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "waypoints")
	assert.Contains(t, lines[1], `"type":"LineString"`)
}

func TestPlanCommand_Errors(t *testing.T) {
	var out strings.Builder
	assert.Error(t, planCommand(nil, &out), "missing endpoints")
	assert.Error(t, planCommand([]string{"-from", "x", "-to", "0,0"}, &out), "bad origin")
	assert.Error(t, planCommand([]string{"-from", "0,0", "-to", "0,95"}, &out), "bad target")
	assert.Error(t, planCommand([]string{"-from", "0,0", "-to", "1,0", "-regions", "/nonexistent.json"}, &out), "missing regions")
}

func sampleRecords() []core.VehicleRecord {
	return []core.VehicleRecord{
		{ID: "v1", Name: "Rover One", Body: "Kerbin", State: core.VehicleState{
			Active: true, DistanceToTarget: 5000, DistanceTravelled: 1000, Latitude: 1, Longitude: 2,
		}},
		{ID: "v2", Name: "Boat", Body: "Kerbin", State: core.VehicleState{Arrived: true, Type: core.VehicleShip}},
		{ID: "v3", Name: "Parked", Body: "Mun", State: core.VehicleState{Shutdown: true}},
	}
}

func TestPrintStatus(t *testing.T) {
	var out strings.Builder
	require.NoError(t, printStatus(&out, sampleRecords(), false))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "active")
	assert.Contains(t, lines[2], "arrived")
	assert.Contains(t, lines[3], "shutdown")
}

func TestPrintStatus_JSON(t *testing.T) {
	var out strings.Builder
	require.NoError(t, printStatus(&out, sampleRecords(), true))

	var decoded []core.VehicleRecord
	require.NoError(t, json.Unmarshal([]byte(out.String()), &decoded))
	assert.Len(t, decoded, 3)
	assert.Equal(t, "Boat", decoded[1].Name)
}

func TestExportBackend(t *testing.T) {
	backend := memory.New(config.MemoryConfig{})
	require.NoError(t, backend.Init())
	for _, rec := range sampleRecords() {
		require.NoError(t, backend.SaveVehicle(rec))
	}

	path := filepath.Join(t.TempDir(), "fleet.json.gz")
	n, err := exportBackend(backend, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export memory.FleetExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Len(t, export.Vehicles, 3)
}
