package transit

import "time"

type RouteOptionMode string

const (
	RouteOptionModeDriveOnly  RouteOptionMode = "drive_only"
	RouteOptionModeFerryCombo RouteOptionMode = "ferry_combo"
)

type LegKind string

const (
	LegKindDrive LegKind = "drive"
	LegKindSail  LegKind = "sail"
)

type Leg struct {
	Kind LegKind `json:"kind" groups:"basic"`

	From string `json:"from" groups:"basic"`
	To   string `json:"to" groups:"basic"`

	StartTime time.Time `json:"start_time" groups:"basic"`
	EndTime   time.Time `json:"end_time" groups:"basic"`

	Cost float64 `json:"cost" groups:"basic"`
}

// RouteOption is one ranked travel plan. Constructed fresh per planning call,
// no shared state between calls.
type RouteOption struct {
	Mode RouteOptionMode `json:"mode" groups:"basic"`

	Legs []Leg `json:"legs" groups:"basic"`

	TotalCost     float64       `json:"total_cost" groups:"basic"`
	TotalDuration time.Duration `json:"total_duration" groups:"basic"`

	DepartureTime time.Time `json:"departure_time" groups:"basic"`
	ArrivalTime   time.Time `json:"arrival_time" groups:"basic"`

	MeetsBuffer bool `json:"meets_buffer" groups:"basic"`

	// Diagnostics carries non-fatal warnings raised while assembling the
	// option, such as a fare direction mismatch. Not part of the basic group.
	Diagnostics []string `json:"diagnostics,omitempty" groups:"detailed"`
}
