package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kitsapcommute/kitsapcommute/pkg/directory"
	"github.com/kitsapcommute/kitsapcommute/pkg/geo"
	"github.com/kitsapcommute/kitsapcommute/pkg/maps"
	"github.com/kitsapcommute/kitsapcommute/pkg/schedule"
	"github.com/kitsapcommute/kitsapcommute/pkg/transit"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slices"
)

const (
	DefaultArrivalBufferMinutes = 15
	DefaultMaxOptions           = 3
	DefaultNearbyTerminalCount  = 3

	// Destination side terminals considered per request. Fauntleroy is in West
	// Seattle, so the nearest terminal alone can hide a cheaper crossing.
	destinationTerminalCount = 2

	externalCallTimeout = 10 * time.Second
)

var (
	ErrGeocodeFailed   = errors.New("failed to geocode address")
	ErrNoFeasibleRoute = errors.New("no route meets the arrival buffer")
)

// DriveTimeProvider is the narrow interface onto the external maps API.
type DriveTimeProvider interface {
	Geocode(ctx context.Context, address string) (geo.Coordinates, error)
	DriveTime(ctx context.Context, origin string, destination string, options maps.DriveTimeOptions) (*maps.DriveEstimate, error)
}

// FareProvider is the narrow interface onto the external ferry fares API.
type FareProvider interface {
	Fare(ctx context.Context, date time.Time, departingTerminalID int, arrivingTerminalID int, vehicleClass transit.VehicleClass) (*transit.FareQuote, error)
}

// Planner assembles ranked commute options from the static reference data and
// the external providers. Safe for concurrent use; all fields are read-only
// after construction.
type Planner struct {
	Directory *directory.Directory
	Schedule  *schedule.Table

	DriveTime DriveTimeProvider
	Fares     FareProvider
}

func NewPlanner(terminalDirectory *directory.Directory, scheduleTable *schedule.Table, driveTime DriveTimeProvider, fares FareProvider) *Planner {
	return &Planner{
		Directory: terminalDirectory,
		Schedule:  scheduleTable,
		DriveTime: driveTime,
		Fares:     fares,
	}
}

type Request struct {
	OriginAddress      string
	DestinationAddress string

	EventTime time.Time

	ArrivalBufferMinutes int
	MaxOptions           int
	VehicleClass         transit.VehicleClass
}

func (r *Request) setDefaults() {
	if r.ArrivalBufferMinutes == 0 {
		r.ArrivalBufferMinutes = DefaultArrivalBufferMinutes
	}
	// Non-positive counts fall back to the default rather than slicing with a
	// bad bound downstream.
	if r.MaxOptions <= 0 {
		r.MaxOptions = DefaultMaxOptions
	}
	if r.VehicleClass == "" {
		r.VehicleClass = transit.VehicleClassStandard
	}
}

// Plan returns up to MaxOptions travel plans meeting the arrival buffer,
// ranked by total cost ascending. The drive-only option is always retained
// when the drive time provider succeeds, even if it ranks last.
func (p *Planner) Plan(ctx context.Context, request Request) ([]transit.RouteOption, error) {
	request.setDefaults()

	deadline := request.EventTime.Add(-time.Duration(request.ArrivalBufferMinutes) * time.Minute)

	// Geocoding is on the critical path for every option, so failure here is
	// fatal for the whole request.
	originCoordinates, err := p.geocode(ctx, request.OriginAddress)
	if err != nil {
		return nil, err
	}
	destinationCoordinates, err := p.geocode(ctx, request.DestinationAddress)
	if err != nil {
		return nil, err
	}

	candidates, err := p.ferryCandidates(originCoordinates, destinationCoordinates)
	if err != nil {
		return nil, err
	}

	// The drive-only baseline and every ferry candidate are independent, so
	// evaluate them concurrently.
	evaluationPool := pool.NewWithResults[*transit.RouteOption]()

	evaluationPool.Go(func() *transit.RouteOption {
		return p.driveOnlyOption(ctx, request, deadline)
	})

	for _, candidate := range candidates {
		evaluationPool.Go(func() *transit.RouteOption {
			return p.ferryOption(ctx, request, deadline, candidate)
		})
	}

	var options []transit.RouteOption
	for _, option := range evaluationPool.Wait() {
		if option != nil {
			options = append(options, *option)
		}
	}

	if len(options) == 0 {
		return nil, ErrNoFeasibleRoute
	}

	rankOptions(options)

	return selectOptions(options, request.MaxOptions), nil
}

func (p *Planner) geocode(ctx context.Context, address string) (geo.Coordinates, error) {
	callContext, cancel := context.WithTimeout(ctx, externalCallTimeout)
	defer cancel()

	coordinates, err := p.DriveTime.Geocode(callContext, address)
	if err != nil {
		return geo.Coordinates{}, fmt.Errorf("%w %q: %s", ErrGeocodeFailed, address, err)
	}

	return coordinates, nil
}

func (p *Planner) driveOnlyOption(ctx context.Context, request Request, deadline time.Time) *transit.RouteOption {
	callContext, cancel := context.WithTimeout(ctx, externalCallTimeout)
	defer cancel()

	estimate, err := p.DriveTime.DriveTime(callContext, request.OriginAddress, request.DestinationAddress, maps.DriveTimeOptions{
		ArrivalTime: deadline,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Drive-only baseline unavailable")
		return nil
	}

	departureTime := deadline.Add(-estimate.Duration)

	return &transit.RouteOption{
		Mode: transit.RouteOptionModeDriveOnly,
		Legs: []transit.Leg{
			{
				Kind:      transit.LegKindDrive,
				From:      request.OriginAddress,
				To:        request.DestinationAddress,
				StartTime: departureTime,
				EndTime:   deadline,
				Cost:      estimate.MileageCost,
			},
		},
		TotalCost:     estimate.MileageCost,
		TotalDuration: estimate.Duration,
		DepartureTime: departureTime,
		ArrivalTime:   deadline,
		MeetsBuffer:   true,
	}
}

func rankOptions(options []transit.RouteOption) {
	slices.SortStableFunc(options, func(a, b transit.RouteOption) int {
		if a.TotalCost != b.TotalCost {
			if a.TotalCost < b.TotalCost {
				return -1
			}
			return 1
		}

		// Ties in cost go to the shorter trip. Remaining comparisons keep the
		// ordering fully deterministic across identical requests.
		if a.TotalDuration != b.TotalDuration {
			if a.TotalDuration < b.TotalDuration {
				return -1
			}
			return 1
		}

		if !a.DepartureTime.Equal(b.DepartureTime) {
			if a.DepartureTime.Before(b.DepartureTime) {
				return -1
			}
			return 1
		}

		if len(a.Legs) > 0 && len(b.Legs) > 0 {
			if a.Legs[0].To < b.Legs[0].To {
				return -1
			} else if a.Legs[0].To > b.Legs[0].To {
				return 1
			}
		}

		return 0
	})
}

// selectOptions caps the ranked list at maxOptions while always retaining the
// drive-only fallback.
func selectOptions(options []transit.RouteOption, maxOptions int) []transit.RouteOption {
	if len(options) <= maxOptions {
		return options
	}

	selected := options[:maxOptions:maxOptions]

	driveOnlyIncluded := false
	for _, option := range selected {
		if option.Mode == transit.RouteOptionModeDriveOnly {
			driveOnlyIncluded = true
			break
		}
	}

	if !driveOnlyIncluded {
		for _, option := range options[maxOptions:] {
			if option.Mode == transit.RouteOptionModeDriveOnly {
				selected[len(selected)-1] = option
				break
			}
		}
	}

	return selected
}
