// pkg/core/vehicle.go
package core

import "time"

// VehicleType selects the surface a vehicle may travel on.
type VehicleType int

const (
	VehicleRover VehicleType = iota
	VehicleShip
)

func (t VehicleType) String() string {
	switch t {
	case VehicleShip:
		return "ship"
	default:
		return "rover"
	}
}

// ParseVehicleType accepts "rover"/"ship" or the numeric form "0"/"1".
func ParseVehicleType(s string) VehicleType {
	switch s {
	case "ship", "1":
		return VehicleShip
	default:
		return VehicleRover
	}
}

// VehicleState is the persisted autopilot state of one vehicle.
//
// While Active, 0 <= DistanceTravelled <= DistanceToTarget. Arrived vehicles
// have DistanceTravelled == DistanceToTarget. Path is empty when inactive.
type VehicleState struct {
	Active   bool `json:"active"`
	Shutdown bool `json:"shutdown"`
	Arrived  bool `json:"arrived"`

	TargetLatitude    float64 `json:"targetLatitude"`
	TargetLongitude   float64 `json:"targetLongitude"`
	DistanceToTarget  float64 `json:"distanceToTarget"`
	DistanceTravelled float64 `json:"distanceTravelled"`
	Path              Path    `json:"path,omitempty"`

	AverageSpeed        float64 `json:"averageSpeed"`
	AverageSpeedAtNight float64 `json:"averageSpeedAtNight"`
	// LastTimeUpdated is universal time in seconds; 0 means unknown.
	LastTimeUpdated float64 `json:"lastTimeUpdated"`
	Manned          bool    `json:"manned"`

	Type              VehicleType `json:"vesselType"`
	HeightFromTerrain float64     `json:"vesselHeightFromTerrain"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Target returns the target as a waypoint.
func (s VehicleState) Target() Waypoint {
	return Waypoint{Latitude: s.TargetLatitude, Longitude: s.TargetLongitude}
}

// Position returns the current position as a waypoint.
func (s VehicleState) Position() Waypoint {
	return Waypoint{Latitude: s.Latitude, Longitude: s.Longitude}
}

// VehicleRecord is everything stored for one controller.
type VehicleRecord struct {
	ID        string           `json:"id" bson:"_id"`
	Name      string           `json:"name" bson:"name"`
	Body      string           `json:"body" bson:"body"`
	State     VehicleState     `json:"state" bson:"state"`
	Battery   BatteryModel     `json:"battery" bson:"battery"`
	FuelCells FuelCellModel    `json:"fuelCells" bson:"fuelCells"`
	Snapshot  ResourceSnapshot `json:"snapshot" bson:"snapshot"`
	UpdatedAt time.Time        `json:"updatedAt" bson:"updatedAt"`
}
