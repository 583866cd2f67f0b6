// Package persist encodes autopilot state as the flat key/value record the host
// stores on the vehicle.
package persist

import (
	"fmt"
	"strconv"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/pkg/core"
)

// Record is the host-side key/value form of a core.VehicleState.
type Record map[string]string

const (
	KeyActive              = "active"
	KeyShutdown            = "shutdown"
	KeyArrived             = "arrived"
	KeyTargetLatitude      = "targetLatitude"
	KeyTargetLongitude     = "targetLongitude"
	KeyDistanceToTarget    = "distanceToTarget"
	KeyDistanceTravelled   = "distanceTravelled"
	KeyAverageSpeed        = "averageSpeed"
	KeyAverageSpeedAtNight = "averageSpeedAtNight"
	KeyLastTimeUpdated     = "lastTimeUpdated"
	KeyPathEncoded         = "pathEncoded"
	KeyManned              = "manned"
	KeyVesselType          = "vesselType"
	KeyHeightFromTerrain   = "vesselHeightFromTerrain"
)

// Keys lists every record key in a stable order.
var Keys = []string{
	KeyActive, KeyShutdown, KeyArrived,
	KeyTargetLatitude, KeyTargetLongitude,
	KeyDistanceToTarget, KeyDistanceTravelled,
	KeyAverageSpeed, KeyAverageSpeedAtNight,
	KeyLastTimeUpdated, KeyPathEncoded, KeyManned,
	KeyVesselType, KeyHeightFromTerrain,
}

// Encode converts state into a record. Position is owned by the host vessel and
// is not part of the record.
func Encode(s core.VehicleState) Record {
	return Record{
		KeyActive:              formatBool(s.Active),
		KeyShutdown:            formatBool(s.Shutdown),
		KeyArrived:             formatBool(s.Arrived),
		KeyTargetLatitude:      formatFloat(s.TargetLatitude),
		KeyTargetLongitude:     formatFloat(s.TargetLongitude),
		KeyDistanceToTarget:    formatFloat(s.DistanceToTarget),
		KeyDistanceTravelled:   formatFloat(s.DistanceTravelled),
		KeyAverageSpeed:        formatFloat(s.AverageSpeed),
		KeyAverageSpeedAtNight: formatFloat(s.AverageSpeedAtNight),
		KeyLastTimeUpdated:     formatFloat(s.LastTimeUpdated),
		KeyPathEncoded:         geo.EncodePath(s.Path),
		KeyManned:              formatBool(s.Manned),
		KeyVesselType:          strconv.Itoa(int(s.Type)),
		KeyHeightFromTerrain:   formatFloat(s.HeightFromTerrain),
	}
}

// Decode parses a record. Missing keys keep their zero value; malformed values
// are an error.
func Decode(r Record) (core.VehicleState, error) {
	var (
		s   core.VehicleState
		err error
	)

	bools := []struct {
		key string
		dst *bool
	}{
		{KeyActive, &s.Active},
		{KeyShutdown, &s.Shutdown},
		{KeyArrived, &s.Arrived},
		{KeyManned, &s.Manned},
	}
	for _, b := range bools {
		v, ok := r[b.key]
		if !ok || v == "" {
			continue
		}
		if *b.dst, err = strconv.ParseBool(v); err != nil {
			return core.VehicleState{}, fmt.Errorf("invalid %s %q: %w", b.key, v, err)
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{KeyTargetLatitude, &s.TargetLatitude},
		{KeyTargetLongitude, &s.TargetLongitude},
		{KeyDistanceToTarget, &s.DistanceToTarget},
		{KeyDistanceTravelled, &s.DistanceTravelled},
		{KeyAverageSpeed, &s.AverageSpeed},
		{KeyAverageSpeedAtNight, &s.AverageSpeedAtNight},
		{KeyLastTimeUpdated, &s.LastTimeUpdated},
		{KeyHeightFromTerrain, &s.HeightFromTerrain},
	}
	for _, f := range floats {
		v, ok := r[f.key]
		if !ok || v == "" {
			continue
		}
		if *f.dst, err = strconv.ParseFloat(v, 64); err != nil {
			return core.VehicleState{}, fmt.Errorf("invalid %s %q: %w", f.key, v, err)
		}
	}

	if v := r[KeyVesselType]; v != "" {
		s.Type = core.ParseVehicleType(v)
	}

	if s.Path, err = geo.DecodePath(r[KeyPathEncoded]); err != nil {
		return core.VehicleState{}, fmt.Errorf("invalid %s: %w", KeyPathEncoded, err)
	}
	return s, nil
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
