package transit

type Direction string

const (
	// DirectionEastbound is towards the Washington mainland. Washington State
	// Ferries charge the full round trip on this leg.
	DirectionEastbound Direction = "eastbound"
	// DirectionWestbound is towards the peninsula and islands, free of charge.
	DirectionWestbound Direction = "westbound"
)

type VehicleClass string

const (
	VehicleClassWalkOn     VehicleClass = "walk-on"
	VehicleClassStandard   VehicleClass = "standard"
	VehicleClassSmall      VehicleClass = "small"
	VehicleClassMotorcycle VehicleClass = "motorcycle"
)

// FareQuote is a one-way fare for a single crossing, USD. Produced per request
// and never persisted.
type FareQuote struct {
	Amount   float64 `json:"amount" groups:"basic"`
	FareName string  `json:"fare_name" groups:"basic"`

	Direction    Direction    `json:"direction" groups:"basic"`
	VehicleClass VehicleClass `json:"vehicle_class" groups:"basic"`
}
