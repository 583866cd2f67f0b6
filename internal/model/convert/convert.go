package convert

import (
	"encoding/json"
	"fmt"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/internal/model"
	"github.com/bonvoyage/voyage/pkg/core"
	"gorm.io/datatypes"
)

// fromJSON unmarshals a JSON column into dst. Empty columns leave dst untouched.
func fromJSON(data datatypes.JSON, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// VehicleToCore converts a GORM model.Vehicle back to a core.VehicleRecord.
// The stored geometry is ignored; the scalar columns are authoritative.
func VehicleToCore(v model.Vehicle) (core.VehicleRecord, error) {
	path, err := geo.DecodePath(v.PathEncoded)
	if err != nil {
		return core.VehicleRecord{}, fmt.Errorf("vehicle %s: %w", v.ID, err)
	}

	r := core.VehicleRecord{
		ID:        v.ID,
		Name:      v.Name,
		Body:      v.Body,
		UpdatedAt: v.UpdatedAt,
		State: core.VehicleState{
			Active:              v.Active,
			Shutdown:            v.Shutdown,
			Arrived:             v.Arrived,
			TargetLatitude:      v.TargetLatitude,
			TargetLongitude:     v.TargetLongitude,
			DistanceToTarget:    v.DistanceToTarget,
			DistanceTravelled:   v.DistanceTravelled,
			Path:                path,
			AverageSpeed:        v.AverageSpeed,
			AverageSpeedAtNight: v.AverageSpeedAtNight,
			LastTimeUpdated:     v.LastTimeUpdated,
			Manned:              v.Manned,
			Type:                core.ParseVehicleType(v.VesselType),
			HeightFromTerrain:   v.HeightFromTerrain,
			Latitude:            v.Latitude,
			Longitude:           v.Longitude,
		},
	}

	if err := fromJSON(v.Battery, &r.Battery); err != nil {
		return core.VehicleRecord{}, fmt.Errorf("vehicle %s battery: %w", v.ID, err)
	}
	if err := fromJSON(v.FuelCells, &r.FuelCells); err != nil {
		return core.VehicleRecord{}, fmt.Errorf("vehicle %s fuel cells: %w", v.ID, err)
	}
	if err := fromJSON(v.Snapshot, &r.Snapshot); err != nil {
		return core.VehicleRecord{}, fmt.Errorf("vehicle %s snapshot: %w", v.ID, err)
	}
	return r, nil
}

// VehicleProgressToCore converts a GORM model.VehicleProgress to a core.ProgressEvent.
func VehicleProgressToCore(p model.VehicleProgress) core.ProgressEvent {
	return core.ProgressEvent{
		VehicleID:         p.VehicleID,
		Body:              p.Body,
		State:             p.State,
		Latitude:          p.Latitude,
		Longitude:         p.Longitude,
		DistanceTravelled: p.DistanceTravelled,
		DistanceToTarget:  p.DistanceToTarget,
		Speed:             p.Speed,
		SunAngle:          p.SunAngle,
		CurrentEC:         p.CurrentEC,
		UniversalTime:     p.UniversalTime,
		Time:              p.Time,
	}
}
