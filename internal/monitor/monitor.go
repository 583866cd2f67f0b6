// Package monitor periodically reports the state of the whole fleet.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bonvoyage/voyage/internal/cache"
	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/bonvoyage/voyage/pkg/streaming"
)

const defaultInterval = 10 * time.Second

// StatusPublisher receives one status message per vehicle and cycle.
// Implemented by notify.MQTTSink.
type StatusPublisher interface {
	PublishStatus(p streaming.StatusPayload)
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Fleet      func() []streaming.StatusPayload
	LogManager *logging.SlogManager
	// Publisher is optional.
	Publisher StatusPublisher
	// StatusFile is rewritten every cycle when set.
	StatusFile string
	Interval   time.Duration
}

// FleetSummary is what one cycle observed.
type FleetSummary struct {
	Time     time.Time                 `json:"time"`
	Total    int                       `json:"total"`
	Active   int                       `json:"active"`
	ByState  map[string]int            `json:"byState"`
	Vehicles []streaming.StatusPayload `json:"vehicles"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
	cycles    cache.SafeCounter
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Cycles returns how many reports have been produced.
func (s *Service) Cycles() int {
	return s.cycles.Value()
}

// GetFleetStatus collects the current state of every vehicle.
func (s *Service) GetFleetStatus() FleetSummary {
	vehicles := s.deps.Fleet()
	summary := FleetSummary{
		Time:     time.Now(),
		Total:    len(vehicles),
		ByState:  make(map[string]int),
		Vehicles: vehicles,
	}
	for _, v := range vehicles {
		summary.ByState[v.State]++
		if v.Active {
			summary.Active++
		}
	}
	return summary
}

// Report runs one cycle: it logs the summary, publishes every vehicle and
// rewrites the status file.
func (s *Service) Report() FleetSummary {
	summary := s.GetFleetStatus()
	s.deps.LogManager.Logger().Debug("Fleet status",
		"function", "fleetStatus",
		"total", summary.Total,
		"active", summary.Active,
	)

	if s.deps.Publisher != nil {
		for _, v := range summary.Vehicles {
			s.deps.Publisher.PublishStatus(v)
		}
	}

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, summary); err != nil {
			s.deps.LogManager.WriteLog("fleetStatus", fmt.Sprintf("Error writing status file: %v", err), "ERROR")
		}
	}

	s.cycles.Inc()
	return summary
}

func writeStatusFile(path string, summary FleetSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.Fleet == nil {
		return fmt.Errorf("monitor: no fleet source")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Report()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
