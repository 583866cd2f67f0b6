package core

import "time"

// StopReason explains why an autopilot stopped short of its target.
type StopReason string

const (
	StopOutOfFuel StopReason = "out_of_fuel"
)

// ArrivalEvent is raised once when a vehicle reaches its target.
type ArrivalEvent struct {
	VehicleID     string    `json:"vehicleId"`
	VehicleName   string    `json:"vehicleName"`
	Body          string    `json:"body"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	UniversalTime float64   `json:"universalTime"`
	Time          time.Time `json:"time"`
	Dewarp        bool      `json:"dewarp"`
}

// StopEvent is raised when an autopilot is forced to stop.
type StopEvent struct {
	VehicleID     string     `json:"vehicleId"`
	VehicleName   string     `json:"vehicleName"`
	Body          string     `json:"body"`
	Reason        StopReason `json:"reason"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	UniversalTime float64    `json:"universalTime"`
	Time          time.Time  `json:"time"`
	Dewarp        bool       `json:"dewarp"`
}

// ProgressEvent is emitted after every tick that moved a vehicle.
type ProgressEvent struct {
	VehicleID         string    `json:"vehicleId"`
	VehicleName       string    `json:"vehicleName"`
	Body              string    `json:"body"`
	State             string    `json:"state"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	DistanceTravelled float64   `json:"distanceTravelled"`
	DistanceToTarget  float64   `json:"distanceToTarget"`
	Speed             float64   `json:"speed"`
	SunAngle          float64   `json:"sunAngle"`
	CurrentEC         float64   `json:"currentEC"`
	UniversalTime     float64   `json:"universalTime"`
	Time              time.Time `json:"time"`
}
