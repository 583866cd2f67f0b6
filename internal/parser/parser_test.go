package parser

import (
	"io"
	"log/slog"
	"testing"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/internal/world"
	"github.com/bonvoyage/voyage/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseIntFromFloat(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"1.00", 1, false},
		{"-3", -3, false},
		{"1.5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseIntFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBody(t *testing.T) {
	p := newTestParser()

	body, err := p.ParseBody([]string{`"Kerbin"`, "600000", "21549.425"})
	require.NoError(t, err)
	assert.Equal(t, core.Body{Name: "Kerbin", Radius: 600000, RotationPeriod: 21549.425}, body)

	_, err = p.ParseBody([]string{"Kerbin", "0", "1"})
	assert.Error(t, err)
	_, err = p.ParseBody([]string{"Kerbin", "NaN", "1"})
	assert.Error(t, err)
	_, err = p.ParseBody([]string{"Kerbin"})
	assert.ErrorIs(t, err, ErrMissingArgs)
}

func TestParseActiveVessel(t *testing.T) {
	p := newTestParser()

	v, err := p.ParseActiveVessel([]string{"v9", "Kerbin", "1.5", "-2", "120"})
	require.NoError(t, err)
	assert.Equal(t, &world.ActiveVessel{ID: "v9", Body: "Kerbin", Latitude: 1.5, Longitude: -2, Altitude: 120}, v)

	v, err = p.ParseActiveVessel(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = p.ParseActiveVessel([]string{`""`})
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = p.ParseActiveVessel([]string{"v9", "Kerbin", "x", "0", "0"})
	assert.Error(t, err)
}

func TestParseFlagAndToggle(t *testing.T) {
	p := newTestParser()

	for _, s := range []string{"true", "True", "TRUE", "1"} {
		b, err := p.ParseFlag([]string{s})
		require.NoError(t, err, s)
		assert.True(t, b, s)
	}
	b, err := p.ParseFlag([]string{"False"})
	require.NoError(t, err)
	assert.False(t, b)

	_, err = p.ParseFlag([]string{"maybe"})
	assert.Error(t, err)

	tg, err := p.ParseToggle([]string{"v1", "true"})
	require.NoError(t, err)
	assert.Equal(t, Toggle{ID: "v1", Value: true}, tg)

	_, err = p.ParseToggle([]string{"v1"})
	assert.ErrorIs(t, err, ErrMissingArgs)
}

func TestParseRegister(t *testing.T) {
	p := newTestParser()

	caps := `"{""solarPower"":100,""propulsionPowerDraw"":100,""propulsionOnline"":1,""maxSpeedBase"":10,""crew"":[{""name"":""Bill"",""class"":""Pilot"",""level"":2}]}"`
	r, err := p.ParseRegister([]string{`"v1"`, `"Rover One"`, "Kerbin", "1.5", "190", "0.8", "1.00", caps})
	require.NoError(t, err)

	assert.Equal(t, "v1", r.ID)
	assert.Equal(t, "Rover One", r.Name)
	assert.Equal(t, "Kerbin", r.Body)
	assert.Equal(t, 1.5, r.Position.Latitude)
	assert.Equal(t, -170.0, r.Position.Longitude)
	assert.Equal(t, 0.8, r.HeightFromTerrain)
	assert.Equal(t, core.VehicleShip, r.Type)
	require.NotNil(t, r.Capabilities)
	assert.Equal(t, 100.0, r.Capabilities.SolarPower)
	require.Len(t, r.Capabilities.Crew, 1)
	assert.Equal(t, core.CrewPilot, r.Capabilities.Crew[0].Class)
}

func TestParseRegister_Minimal(t *testing.T) {
	p := newTestParser()

	r, err := p.ParseRegister([]string{"v1", "Rover", "Mun", "0", "0"})
	require.NoError(t, err)
	assert.Equal(t, core.VehicleRover, r.Type)
	assert.Nil(t, r.Capabilities)

	r, err = p.ParseRegister([]string{"v1", "Boat", "Kerbin", "0", "0", "", "ship"})
	require.NoError(t, err)
	assert.Equal(t, core.VehicleShip, r.Type)
}

func TestParseRegister_Errors(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name string
		data []string
	}{
		{"missing args", []string{"v1", "Rover", "Kerbin"}},
		{"empty id", []string{"", "Rover", "Kerbin", "0", "0"}},
		{"bad latitude", []string{"v1", "Rover", "Kerbin", "x", "0"}},
		{"latitude out of range", []string{"v1", "Rover", "Kerbin", "91", "0"}},
		{"bad height", []string{"v1", "Rover", "Kerbin", "0", "0", "high"}},
		{"bad capabilities", []string{"v1", "Rover", "Kerbin", "0", "0", "0", "0", "{"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseRegister(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestParseCapabilities(t *testing.T) {
	p := newTestParser()

	id, caps, err := p.ParseCapabilities([]string{"v1", `{"storedCharge":1000,"fuelAvailable":{"LqdHydrogen":50}}`})
	require.NoError(t, err)
	assert.Equal(t, "v1", id)
	assert.Equal(t, 1000.0, caps.StoredCharge)
	assert.Equal(t, 50.0, caps.FuelAvailable["LqdHydrogen"])

	_, _, err = p.ParseCapabilities([]string{"v1", "not json"})
	assert.Error(t, err)
}

func TestParseActivate(t *testing.T) {
	p := newTestParser()

	a, err := p.ParseActivate([]string{"v1", "1,0.5"})
	require.NoError(t, err)
	assert.Equal(t, ActivateArgs{ID: "v1", Target: core.Waypoint{Latitude: 0.5, Longitude: 1}}, a)

	a, err = p.ParseActivate([]string{"v1", "0.5", "181"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, a.Target.Latitude)
	assert.InDelta(t, -179.0, a.Target.Longitude, 1e-9)

	_, err = p.ParseActivate([]string{"v1", "nonsense"})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)

	_, err = p.ParseActivate([]string{"v1", "95", "0"})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

func TestParseTick(t *testing.T) {
	p := newTestParser()

	tk, err := p.ParseTick([]string{"v1", "1000.5"})
	require.NoError(t, err)
	assert.Equal(t, TickArgs{ID: "v1", UniversalTime: 1000.5}, tk)

	tk, err = p.ParseTick([]string{"v1", "1000", "true"})
	require.NoError(t, err)
	assert.True(t, tk.Loaded)

	_, err = p.ParseTick([]string{"v1", "later"})
	assert.Error(t, err)

	ut, err := p.ParseUniversalTime([]string{"42"})
	require.NoError(t, err)
	assert.Equal(t, 42.0, ut)
}

func TestParseVehicleID(t *testing.T) {
	p := newTestParser()

	id, err := p.ParseVehicleID([]string{`"v1"`})
	require.NoError(t, err)
	assert.Equal(t, "v1", id)

	_, err = p.ParseVehicleID(nil)
	assert.ErrorIs(t, err, ErrMissingArgs)
	_, err = p.ParseVehicleID([]string{""})
	assert.Error(t, err)
}
