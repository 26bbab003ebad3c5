package transit

import "github.com/kitsapcommute/kitsapcommute/pkg/geo"

type Terminal struct {
	Name        string `json:"name" groups:"basic"`
	DisplayName string `json:"display_name" groups:"basic"`
	Address     string `json:"address" groups:"basic"`

	Location geo.Coordinates `json:"location" groups:"basic"`

	City   string `json:"city" groups:"basic"`
	County string `json:"county" groups:"basic"`
}

type TerminalDistance struct {
	Terminal Terminal `json:"terminal" groups:"basic"`

	DistanceKilometers float64 `json:"distance_kilometers" groups:"basic"`
}
