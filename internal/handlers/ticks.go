package handlers

import (
	"errors"
	"fmt"

	"github.com/bonvoyage/voyage/internal/dispatcher"
	"github.com/bonvoyage/voyage/internal/vehicle"
)

func (s *Service) handleTick(e dispatcher.Event) (any, error) {
	args, err := s.deps.Parser.ParseTick(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tick: %w", err)
	}
	ctrl, err := s.controller(args.ID)
	if err != nil {
		return nil, err
	}
	out, err := s.Tick(ctrl, args.UniversalTime, args.Loaded)
	if err != nil {
		return nil, err
	}
	return out.State.String(), nil
}

func (s *Service) handleTickAll(e dispatcher.Event) (any, error) {
	ut, err := s.deps.Parser.ParseUniversalTime(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse universal time: %w", err)
	}
	return s.TickAll(ut)
}

// Tick advances one controller to ut with the current host state. Transient
// faults are logged and reported as a no-op tick. The record is saved when the
// simulator state changes.
func (s *Service) Tick(ctrl *vehicle.Controller, ut float64, loaded bool) (vehicle.Outcome, error) {
	before := ctrl.State()
	out, err := ctrl.Tick(vehicle.TickContext{
		Now:          ut,
		Loaded:       loaded,
		Paused:       s.deps.World.Paused(),
		ActiveVessel: s.deps.World.ActiveVessel(),
	})
	if errors.Is(err, vehicle.ErrTransientTick) {
		s.writeLog(":TICK:", fmt.Sprintf("Tick of %s skipped: %v", ctrl.ID(), err), "DEBUG")
		return out, nil
	}
	if err != nil {
		return out, err
	}

	if out.State != before {
		if err := s.save(ctrl); err != nil {
			s.writeLog(":TICK:", err.Error(), "ERROR")
		}
	}
	return out, nil
}

// TickAll advances every unloaded controller to ut and returns how many moved.
func (s *Service) TickAll(ut float64) (int, error) {
	moved := 0
	var errs []error
	for _, ctrl := range s.deps.Controllers.All() {
		out, err := s.Tick(ctrl, ut, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("vehicle %s: %w", ctrl.ID(), err))
			continue
		}
		if out.Distance > 0 {
			moved++
		}
	}
	return moved, errors.Join(errs...)
}
