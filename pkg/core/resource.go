// pkg/core/resource.go
package core

// CrewClass is the role a crew member contributes to the speed bonus.
type CrewClass string

const (
	CrewPilot  CrewClass = "Pilot"
	CrewDriver CrewClass = "Driver" // any trait carrying the autopilot skill
	CrewScout  CrewClass = "Scout"
	CrewOther  CrewClass = "Other"
)

// CrewMember is one person aboard a vehicle.
type CrewMember struct {
	Name  string    `json:"name"`
	Class CrewClass `json:"class"`
	Level int       `json:"level"`
}

// FuelCellUnit is one converter producing electric charge from input resources.
type FuelCellUnit struct {
	Output float64            `json:"output"` // EC per second
	Inputs map[string]float64 `json:"inputs"` // resource name -> units per second
}

// Capabilities are the aggregated values queried from the host vehicle.
type Capabilities struct {
	SolarPower          float64        `json:"solarPower"`
	OtherPower          float64        `json:"otherPower"`
	PropulsionPowerDraw float64        `json:"propulsionPowerDraw"`
	PropulsionOnline    int            `json:"propulsionOnline"`
	ElectricPropulsion  int            `json:"electricPropulsion"`
	MaxSpeedBase        float64        `json:"maxSpeedBase"`
	StoredCharge        float64        `json:"storedCharge"`
	FuelCells           []FuelCellUnit `json:"fuelCells,omitempty"`
	// FuelAvailable maps a resource name to the amount on board.
	FuelAvailable map[string]float64 `json:"fuelAvailable,omitempty"`
	Crew          []CrewMember       `json:"crew,omitempty"`
}

// ResourceSnapshot is the outcome of a system check.
type ResourceSnapshot struct {
	SolarPower       float64 `json:"solarPower"`
	OtherPower       float64 `json:"otherPower"`
	RequiredPower    float64 `json:"requiredPower"`
	CrewSpeedBonus   float64 `json:"crewSpeedBonus"` // percent
	Manned           bool    `json:"manned"`
	MaxSpeedBase     float64 `json:"maxSpeedBase"`
	PropulsionOnline int     `json:"propulsionOnline"`
	// SpeedReduction is the day power shortfall in percent, 0 when power suffices.
	SpeedReduction float64 `json:"speedReduction"`
}

// BatteryModel tracks the share of stored charge the autopilot may use.
// 0 <= CurrentEC <= MaxUsedEC <= MaxAvailableEC.
type BatteryModel struct {
	UseBatteries         bool    `json:"useBatteries"`
	MaxAvailableEC       float64 `json:"maxAvailableEC"`
	MaxUsedEC            float64 `json:"maxUsedEC"`
	CurrentEC            float64 `json:"currentEC"`
	ECPerSecondConsumed  float64 `json:"ecPerSecondConsumed"`
	ECPerSecondGenerated float64 `json:"ecPerSecondGenerated"`
}

// FuelResource is one fuel-cell input tracked across ticks.
type FuelResource struct {
	Name                   string  `json:"name"`
	Ratio                  float64 `json:"ratio"`
	CurrentAmountUsed      float64 `json:"currentAmountUsed"`
	MaximumAmountAvailable float64 `json:"maximumAmountAvailable"`
}

// FuelCellModel aggregates all fuel cells on a vehicle.
type FuelCellModel struct {
	Use            bool           `json:"use"`
	OutputValue    float64        `json:"outputValue"`
	InputResources []FuelResource `json:"inputResources,omitempty"`
}

// Clone returns a deep copy of the model.
func (f FuelCellModel) Clone() FuelCellModel {
	out := f
	if f.InputResources != nil {
		out.InputResources = make([]FuelResource, len(f.InputResources))
		copy(out.InputResources, f.InputResources)
	}
	return out
}
