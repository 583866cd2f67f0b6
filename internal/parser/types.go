package parser

import "github.com/bonvoyage/voyage/pkg/core"

// Registration announces a vehicle to the autopilot.
type Registration struct {
	ID                string
	Name              string
	Body              string
	Position          core.Waypoint
	HeightFromTerrain float64
	Type              core.VehicleType
	// Capabilities is nil when the host did not send any.
	Capabilities *core.Capabilities
}

// ActivateArgs selects a vehicle and its target.
type ActivateArgs struct {
	ID     string
	Target core.Waypoint
}

// TickArgs advances one vehicle to UniversalTime.
type TickArgs struct {
	ID            string
	UniversalTime float64
	Loaded        bool
}

// Toggle switches a boolean setting of one vehicle.
type Toggle struct {
	ID    string
	Value bool
}
