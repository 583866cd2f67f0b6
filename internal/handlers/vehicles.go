package handlers

import (
	"context"
	"fmt"

	"github.com/bonvoyage/voyage/internal/dispatcher"
	"github.com/bonvoyage/voyage/internal/parser"
	"github.com/bonvoyage/voyage/internal/vehicle"
)

func (s *Service) handleBody(e dispatcher.Event) (any, error) {
	body, err := s.deps.Parser.ParseBody(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body: %w", err)
	}
	s.deps.World.SetBody(body, nil)

	sun := s.deps.World.Sun(body.Name)
	for _, ctrl := range s.deps.Controllers.All() {
		if ctrl.Body().Name == body.Name {
			ctrl.SetBody(body, sun)
		}
	}
	return nil, nil
}

func (s *Service) handleActiveVessel(e dispatcher.Event) (any, error) {
	v, err := s.deps.Parser.ParseActiveVessel(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse active vessel: %w", err)
	}
	s.deps.World.SetActiveVessel(v)
	return nil, nil
}

func (s *Service) handlePause(e dispatcher.Event) (any, error) {
	paused, err := s.deps.Parser.ParseFlag(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pause flag: %w", err)
	}
	s.deps.World.SetPaused(paused)
	return nil, nil
}

func (s *Service) handleRegister(e dispatcher.Event) (any, error) {
	reg, err := s.deps.Parser.ParseRegister(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse registration: %w", err)
	}
	ctrl, err := s.Register(reg)
	if err != nil {
		return nil, err
	}
	return ctrl.ID(), nil
}

// Register creates a controller for a new vehicle, or updates the position,
// type and capabilities of a known one.
func (s *Service) Register(reg parser.Registration) (*vehicle.Controller, error) {
	body, ok := s.deps.World.Body(reg.Body)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBody, reg.Body)
	}
	if reg.Capabilities != nil {
		s.provider(reg.ID).Set(*reg.Capabilities)
	}

	ctrl, ok := s.deps.Controllers.Get(reg.ID)
	if !ok {
		ctrl = vehicle.New(reg.ID, reg.Name, body, reg.Position, s.deps.Simulator, s.controllerDeps(reg.ID, body.Name))
		s.deps.Controllers.Add(ctrl)
		s.writeLog(":REGISTER:", fmt.Sprintf("Registered vehicle %s (%s) on %s", reg.ID, reg.Name, body.Name), "INFO")
	}
	ctrl.SetVehicleType(reg.Type)
	ctrl.SetPosition(reg.Position, reg.HeightFromTerrain)

	if err := s.save(ctrl); err != nil {
		return ctrl, err
	}
	return ctrl, nil
}

func (s *Service) handleUnregister(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseVehicleID(e.Args)
	if err != nil {
		return nil, err
	}
	if !s.deps.Controllers.Remove(id) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVehicle, id)
	}
	s.dropProvider(id)
	if s.deps.Backend != nil {
		if err := s.deps.Backend.DeleteVehicle(id); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (s *Service) handleCapabilities(e dispatcher.Event) (any, error) {
	id, caps, err := s.deps.Parser.ParseCapabilities(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse capabilities: %w", err)
	}
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	s.provider(id).Set(caps)
	if err := ctrl.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return ctrl.Report(), s.save(ctrl)
}

func (s *Service) handleActivate(e dispatcher.Event) (any, error) {
	args, err := s.deps.Parser.ParseActivate(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse activation: %w", err)
	}
	ctrl, err := s.controller(args.ID)
	if err != nil {
		return nil, err
	}

	err = ctrl.Activate(context.Background(), vehicle.ActivateRequest{
		Target:  args.Target,
		Terrain: s.terrain(ctrl),
	})
	if err != nil {
		s.writeLog(":ACTIVATE:", fmt.Sprintf("Vehicle %s cannot travel: %v", args.ID, err), "WARN")
		return ctrl.Report(), err
	}
	return ctrl.Report(), s.save(ctrl)
}

func (s *Service) handleDeactivate(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseVehicleID(e.Args)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Deactivate(context.Background()); err != nil {
		// the autopilot is off even when the check failed
		s.writeLog(":DEACTIVATE:", fmt.Sprintf("System check failed for %s: %v", id, err), "WARN")
	}
	return nil, s.save(ctrl)
}

func (s *Service) handleShutdown(e dispatcher.Event) (any, error) {
	t, err := s.deps.Parser.ParseToggle(e.Args)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.controller(t.ID)
	if err != nil {
		return nil, err
	}
	if err := ctrl.SetShutdown(context.Background(), t.Value); err != nil {
		s.writeLog(":SHUTDOWN:", fmt.Sprintf("System check failed for %s: %v", t.ID, err), "WARN")
	}
	return nil, s.save(ctrl)
}

func (s *Service) handleBatteries(e dispatcher.Event) (any, error) {
	t, err := s.deps.Parser.ParseToggle(e.Args)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.controller(t.ID)
	if err != nil {
		return nil, err
	}
	ctrl.SetUseBatteries(t.Value)
	return nil, s.save(ctrl)
}

func (s *Service) handleFuelCells(e dispatcher.Event) (any, error) {
	t, err := s.deps.Parser.ParseToggle(e.Args)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.controller(t.ID)
	if err != nil {
		return nil, err
	}
	ctrl.SetUseFuelCells(t.Value)
	return nil, s.save(ctrl)
}
