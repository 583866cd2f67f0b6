package handlers

import (
	"fmt"

	"github.com/bonvoyage/voyage/internal/dispatcher"
	"github.com/bonvoyage/voyage/internal/persist"
	"github.com/bonvoyage/voyage/internal/vehicle"
)

// handlePersist returns the state of a vehicle as the record the host stores
// on the vessel.
func (s *Service) handlePersist(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseVehicleID(e.Args)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	return persist.Encode(ctrl.VehicleState()), nil
}

func (s *Service) handleLoad(e dispatcher.Event) (any, error) {
	id, rec, err := s.deps.Parser.ParseStateRecord(e.Args)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.LoadRecord(id, rec)
	if err != nil {
		return nil, err
	}
	return ctrl.State().String(), nil
}

// LoadRecord replaces the autopilot state of a registered vehicle with a host
// record. The vehicle keeps its current position and resource models.
func (s *Service) LoadRecord(id string, rec persist.Record) (*vehicle.Controller, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	state, err := persist.Decode(rec)
	if err != nil {
		return nil, fmt.Errorf("vehicle %s: %w", id, err)
	}

	stored := ctrl.Record()
	state.Latitude = stored.State.Latitude
	state.Longitude = stored.State.Longitude
	stored.State = state

	body := ctrl.Body()
	loaded := vehicle.Restore(stored, body, s.deps.Simulator, s.controllerDeps(id, body.Name))
	s.deps.Controllers.Add(loaded)
	s.writeLog(":LOAD:", fmt.Sprintf("Loaded state of %s, active=%t", id, state.Active), "INFO")
	return loaded, s.save(loaded)
}
