package handlers

import (
	"errors"
	"fmt"

	"github.com/bonvoyage/voyage/internal/dispatcher"
	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/internal/influx"
	"github.com/bonvoyage/voyage/internal/util"
	"github.com/bonvoyage/voyage/internal/vehicle"
	"github.com/bonvoyage/voyage/pkg/streaming"
)

// Status summarizes one controller.
func Status(ctrl *vehicle.Controller) streaming.StatusPayload {
	st := ctrl.VehicleState()
	return streaming.StatusPayload{
		VehicleID:         ctrl.ID(),
		VehicleName:       ctrl.Name(),
		Body:              ctrl.Body().Name,
		State:             ctrl.State().String(),
		Active:            st.Active,
		Latitude:          st.Latitude,
		Longitude:         st.Longitude,
		DistanceTravelled: st.DistanceTravelled,
		DistanceToTarget:  st.DistanceToTarget,
		Report:            ctrl.Report(),
	}
}

// FleetStatus summarizes every controller, ordered by vehicle ID.
func (s *Service) FleetStatus() []streaming.StatusPayload {
	all := s.deps.Controllers.All()
	out := make([]streaming.StatusPayload, len(all))
	for i, ctrl := range all {
		out[i] = Status(ctrl)
	}
	return out
}

func (s *Service) handleStatus(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseVehicleID(e.Args)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	status := Status(ctrl)
	if status.Active {
		remaining := status.DistanceToTarget - status.DistanceTravelled
		status.Report = append(status.Report, "Distance to target: "+util.FormatDistance(remaining))
	}
	return status, nil
}

// handleRoute returns the remaining route of an active vehicle as a GeoJSON
// LineString that ends at the target.
func (s *Service) handleRoute(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseVehicleID(e.Args)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	st := ctrl.VehicleState()
	if !st.Active {
		return nil, fmt.Errorf("vehicle %s has no active route", id)
	}
	target := st.Target()
	data, err := geo.PathToLineString(st.Path, &target).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode route: %w", err)
	}
	return string(data), nil
}

func (s *Service) handleSave(dispatcher.Event) (any, error) {
	return s.SaveAll()
}

// SaveAll writes every controller record and returns how many were saved.
func (s *Service) SaveAll() (int, error) {
	saved := 0
	var errs []error
	for _, ctrl := range s.deps.Controllers.All() {
		if err := s.save(ctrl); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

// Restore recreates controllers from the backend. Records on unknown bodies
// and vehicles that are already registered are skipped.
func (s *Service) Restore() (int, error) {
	if s.deps.Backend == nil {
		return 0, nil
	}
	records, err := s.deps.Backend.ListVehicles()
	if err != nil {
		return 0, fmt.Errorf("failed to list stored vehicles: %w", err)
	}

	restored := 0
	for _, rec := range records {
		if _, ok := s.deps.Controllers.Get(rec.ID); ok {
			continue
		}
		body, ok := s.deps.World.Body(rec.Body)
		if !ok {
			s.writeLog("restore", fmt.Sprintf("Skipping vehicle %s on unknown body %s", rec.ID, rec.Body), "WARN")
			continue
		}
		s.deps.Controllers.Add(vehicle.Restore(rec, body, s.deps.Simulator, s.controllerDeps(rec.ID, body.Name)))
		restored++
	}
	s.writeLog("restore", fmt.Sprintf("Restored %d of %d vehicles", restored, len(records)), "INFO")
	return restored, nil
}

func (s *Service) handleMetric(e dispatcher.Event) (any, error) {
	if s.deps.Metrics == nil {
		return nil, ErrNoMetrics
	}
	util.CleanArgs(e.Args)
	bucket, point, err := influx.ProcessMetricData(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	return nil, s.deps.Metrics.WritePoint(bucket, point)
}
