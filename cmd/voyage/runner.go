package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bonvoyage/voyage/internal/dispatcher"
	"github.com/bonvoyage/voyage/internal/vehicle"
)

// fleetTicker advances every unloaded vehicle. Implemented by handlers.Service.
type fleetTicker interface {
	TickAll(ut float64) (int, error)
}

// clock turns wall-clock time into universal time for a headless fleet.
type clock struct {
	fleet    fleetTicker
	interval time.Duration
	warp     float64
	ut       float64
	logger   *slog.Logger
}

func newClock(fleet fleetTicker, start float64, interval time.Duration, warp float64, logger *slog.Logger) *clock {
	if warp <= 0 {
		warp = 1
	}
	return &clock{fleet: fleet, interval: interval, warp: warp, ut: start, logger: logger}
}

// step advances universal time by one interval and ticks the fleet.
func (c *clock) step() (float64, int, error) {
	c.ut += c.interval.Seconds() * c.warp
	moved, err := c.fleet.TickAll(c.ut)
	return c.ut, moved, err
}

func (c *clock) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ut, moved, err := c.step()
			if err != nil {
				c.logger.Error("Tick failed", "universalTime", ut, "error", err)
				continue
			}
			if moved > 0 {
				c.logger.Debug("Fleet advanced", "universalTime", ut, "moved", moved)
			}
		}
	}
}

// startTime is the latest universal time any controller has seen, so a
// restarted runner continues where the last one stopped.
func startTime(ctrls []*vehicle.Controller) float64 {
	ut := 0.0
	for _, ctrl := range ctrls {
		if t := ctrl.VehicleState().LastTimeUpdated; t > ut {
			ut = t
		}
	}
	return ut
}

type commandLine struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type commandReply struct {
	Command string `json:"command,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// serveCommands reads one JSON command per line from r and writes one JSON
// reply per line to w. Blank lines and lines starting with # are skipped.
func serveCommands(ctx context.Context, r io.Reader, w io.Writer, d *dispatcher.Dispatcher) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var reply commandReply
		var cmd commandLine
		if err := json.Unmarshal([]byte(line), &cmd); err != nil {
			reply.Error = fmt.Sprintf("invalid command: %v", err)
		} else {
			reply.Command = cmd.Command
			result, err := d.Dispatch(dispatcher.Event{Command: cmd.Command, Args: cmd.Args})
			reply.Result = result
			if err != nil {
				reply.Error = err.Error()
			}
		}

		if err := enc.Encode(reply); err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
	}
	return scanner.Err()
}
