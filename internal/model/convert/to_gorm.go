// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/internal/model"
	"github.com/bonvoyage/voyage/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a JSON column, falling back to "{}".
func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToVehicle converts a core.VehicleRecord to a GORM model.Vehicle.
// The route geometry is only set while a path is stored.
func CoreToVehicle(r core.VehicleRecord) model.Vehicle {
	s := r.State
	v := model.Vehicle{
		ID:                  r.ID,
		UpdatedAt:           r.UpdatedAt,
		Name:                r.Name,
		Body:                r.Body,
		VesselType:          s.Type.String(),
		Active:              s.Active,
		Shutdown:            s.Shutdown,
		Arrived:             s.Arrived,
		TargetLatitude:      s.TargetLatitude,
		TargetLongitude:     s.TargetLongitude,
		DistanceToTarget:    s.DistanceToTarget,
		DistanceTravelled:   s.DistanceTravelled,
		AverageSpeed:        s.AverageSpeed,
		AverageSpeedAtNight: s.AverageSpeedAtNight,
		LastTimeUpdated:     s.LastTimeUpdated,
		Manned:              s.Manned,
		HeightFromTerrain:   s.HeightFromTerrain,
		Latitude:            s.Latitude,
		Longitude:           s.Longitude,
		PathEncoded:         geo.EncodePath(s.Path),
		Position:            geo.Coords3857From4326(s.Longitude, s.Latitude),
		Battery:             toJSON(r.Battery),
		FuelCells:           toJSON(r.FuelCells),
		Snapshot:            toJSON(r.Snapshot),
	}
	if len(s.Path) > 0 {
		target := s.Target()
		v.Route = geo.PathToLineString(s.Path, &target)
	}
	return v
}

// CoreToVehicleProgress converts a core.ProgressEvent to a GORM model.VehicleProgress.
func CoreToVehicleProgress(e core.ProgressEvent) model.VehicleProgress {
	return model.VehicleProgress{
		Time:              e.Time,
		VehicleID:         e.VehicleID,
		Body:              e.Body,
		State:             e.State,
		UniversalTime:     e.UniversalTime,
		Position:          geo.Coords3857From4326(e.Longitude, e.Latitude),
		Latitude:          e.Latitude,
		Longitude:         e.Longitude,
		DistanceTravelled: e.DistanceTravelled,
		DistanceToTarget:  e.DistanceToTarget,
		Speed:             e.Speed,
		SunAngle:          e.SunAngle,
		CurrentEC:         e.CurrentEC,
	}
}

// CoreArrivalToJourneyEvent converts a core.ArrivalEvent to a GORM model.JourneyEvent.
func CoreArrivalToJourneyEvent(e core.ArrivalEvent) model.JourneyEvent {
	return model.JourneyEvent{
		Time:          e.Time,
		VehicleID:     e.VehicleID,
		VehicleName:   e.VehicleName,
		Body:          e.Body,
		Kind:          model.EventArrival,
		Latitude:      e.Latitude,
		Longitude:     e.Longitude,
		UniversalTime: e.UniversalTime,
	}
}

// CoreStopToJourneyEvent converts a core.StopEvent to a GORM model.JourneyEvent.
func CoreStopToJourneyEvent(e core.StopEvent) model.JourneyEvent {
	return model.JourneyEvent{
		Time:          e.Time,
		VehicleID:     e.VehicleID,
		VehicleName:   e.VehicleName,
		Body:          e.Body,
		Kind:          model.EventStop,
		Reason:        string(e.Reason),
		Latitude:      e.Latitude,
		Longitude:     e.Longitude,
		UniversalTime: e.UniversalTime,
	}
}
