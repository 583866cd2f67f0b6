package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Vehicle{},
	&VehicleProgress{},
	&JourneyEvent{},
}

////////////////////////
// VEHICLES
////////////////////////

// Vehicle is the stored autopilot state of one vehicle. The scalar columns are
// authoritative; Position and Route are derived geometry for GIS queries.
type Vehicle struct {
	ID        string         `json:"id" gorm:"primaryKey;size:64"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"deletedAt" gorm:"index"`

	Name       string `json:"name" gorm:"size:128"`
	Body       string `json:"body" gorm:"size:64;index:idx_vehicle_body"`
	VesselType string `json:"vesselType" gorm:"size:16"`

	Active   bool `json:"active" gorm:"index:idx_vehicle_active"`
	Shutdown bool `json:"shutdown"`
	Arrived  bool `json:"arrived"`

	TargetLatitude      float64 `json:"targetLatitude"`
	TargetLongitude     float64 `json:"targetLongitude"`
	DistanceToTarget    float64 `json:"distanceToTarget"`
	DistanceTravelled   float64 `json:"distanceTravelled"`
	AverageSpeed        float64 `json:"averageSpeed"`
	AverageSpeedAtNight float64 `json:"averageSpeedAtNight"`
	LastTimeUpdated     float64 `json:"lastTimeUpdated"` // universal time, 0 when unknown
	Manned              bool    `json:"manned"`
	HeightFromTerrain   float64 `json:"vesselHeightFromTerrain"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	PathEncoded         string  `json:"pathEncoded" gorm:"type:text"` // JSON polyline [[lon,lat],...]

	Position geom.Point      `json:"position"` // EPSG:3857
	Route    geom.LineString `json:"route"`    // lon/lat, ends at the target

	Battery   datatypes.JSON `json:"battery"`
	FuelCells datatypes.JSON `json:"fuelCells"`
	Snapshot  datatypes.JSON `json:"snapshot"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

// VehicleProgress is one tick that moved a vehicle.
type VehicleProgress struct {
	ID            uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time          time.Time `json:"time" gorm:"type:timestamptz;index:idx_progress_time"`
	VehicleID     string    `json:"vehicleId" gorm:"size:64;index:idx_progress_vehicle_id"`
	Body          string    `json:"body" gorm:"size:64"`
	State         string    `json:"state" gorm:"size:32"`
	UniversalTime float64   `json:"universalTime"`

	Position          geom.Point `json:"position"` // EPSG:3857
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	DistanceTravelled float64    `json:"distanceTravelled"`
	DistanceToTarget  float64    `json:"distanceToTarget"`
	Speed             float64    `json:"speed"`
	SunAngle          float64    `json:"sunAngle"`
	CurrentEC         float64    `json:"currentEC"`
}

func (*VehicleProgress) TableName() string {
	return "vehicle_progress"
}

// Journey event kinds
const (
	EventArrival = "arrival"
	EventStop    = "stop"
)

// JourneyEvent records an arrival or a forced stop.
type JourneyEvent struct {
	ID            uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time          time.Time `json:"time" gorm:"type:timestamptz;index:idx_journey_event_time"`
	VehicleID     string    `json:"vehicleId" gorm:"size:64;index:idx_journey_event_vehicle_id"`
	VehicleName   string    `json:"vehicleName" gorm:"size:128"`
	Body          string    `json:"body" gorm:"size:64"`
	Kind          string    `json:"kind" gorm:"size:16"`
	Reason        string    `json:"reason" gorm:"size:32"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	UniversalTime float64   `json:"universalTime"`
}

func (*JourneyEvent) TableName() string {
	return "journey_events"
}
