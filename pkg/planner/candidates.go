package planner

import (
	"context"
	"time"

	"github.com/kitsapcommute/kitsapcommute/pkg/directory"
	"github.com/kitsapcommute/kitsapcommute/pkg/geo"
	"github.com/kitsapcommute/kitsapcommute/pkg/maps"
	"github.com/kitsapcommute/kitsapcommute/pkg/transit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ferryCandidate is one origin-terminal/destination-terminal pair served by a
// known route.
type ferryCandidate struct {
	OriginTerminal      transit.Terminal
	DestinationTerminal transit.Terminal

	Route     *transit.Route
	Direction transit.Direction
}

// ferryCandidates pairs the nearest origin-side terminals with the nearest
// destination-side terminals and keeps the pairs a route actually serves.
func (p *Planner) ferryCandidates(originCoordinates geo.Coordinates, destinationCoordinates geo.Coordinates) ([]ferryCandidate, error) {
	originTerminals, err := p.Directory.NearestTerminals(originCoordinates, DefaultNearbyTerminalCount)
	if err != nil {
		return nil, err
	}
	destinationTerminals, err := p.Directory.NearestTerminals(destinationCoordinates, destinationTerminalCount)
	if err != nil {
		return nil, err
	}

	var candidates []ferryCandidate

	for _, originTerminal := range originTerminals {
		for _, destinationTerminal := range destinationTerminals {
			if originTerminal.Terminal.Name == destinationTerminal.Terminal.Name {
				continue
			}

			route, err := p.Schedule.Resolve(originTerminal.Terminal.Name, destinationTerminal.Terminal.Name)
			if err != nil {
				// Not every terminal pair is served. Infeasible, not fatal.
				continue
			}

			// Direction comes from the route's static tags, never from
			// coordinates. If only the reverse key matched, our travel
			// direction is the opposite of the record's.
			candidateDirection := route.Direction()
			if route.Key != transit.RouteKey(originTerminal.Terminal.Name, destinationTerminal.Terminal.Name) {
				candidateDirection = oppositeDirection(candidateDirection)
			}

			candidates = append(candidates, ferryCandidate{
				OriginTerminal:      originTerminal.Terminal,
				DestinationTerminal: destinationTerminal.Terminal,
				Route:               route,
				Direction:           candidateDirection,
			})
		}
	}

	return candidates, nil
}

func oppositeDirection(direction transit.Direction) transit.Direction {
	if direction == transit.DirectionEastbound {
		return transit.DirectionWestbound
	}

	return transit.DirectionEastbound
}

// ferryOption evaluates one candidate end to end. A nil return means the
// candidate is infeasible today and is simply dropped.
func (p *Planner) ferryOption(ctx context.Context, request Request, deadline time.Time, candidate ferryCandidate) *transit.RouteOption {
	candidateLogger := log.With().
		Str("route", candidate.Route.Key).
		Str("direction", string(candidate.Direction)).
		Logger()

	// Destination side drive first: the latest acceptable sailing depends on
	// how long the egress leg takes. Each external call gets its own timeout
	// so a slow lookup cannot starve the ones after it.
	egressContext, cancelEgress := context.WithTimeout(ctx, externalCallTimeout)
	egress, err := p.DriveTime.DriveTime(egressContext, candidate.DestinationTerminal.Address, request.DestinationAddress, maps.DriveTimeOptions{
		ArrivalTime: deadline,
	})
	cancelEgress()
	if err != nil {
		candidateLogger.Warn().Err(err).Msg("Dropping ferry candidate - egress drive lookup failed")
		return nil
	}

	sailing, sailingDeparture, found := p.latestFeasibleSailing(candidate, request.EventTime, deadline, egress.Duration)
	if !found {
		candidateLogger.Debug().Msg("Dropping ferry candidate - no sailing meets the arrival deadline")
		return nil
	}

	accessContext, cancelAccess := context.WithTimeout(ctx, externalCallTimeout)
	access, err := p.DriveTime.DriveTime(accessContext, request.OriginAddress, candidate.OriginTerminal.Address, maps.DriveTimeOptions{
		ArrivalTime: sailingDeparture,
	})
	cancelAccess()
	if err != nil {
		candidateLogger.Warn().Err(err).Msg("Dropping ferry candidate - access drive lookup failed")
		return nil
	}

	fareCost, fareDiagnostics, feasible := p.crossingCost(ctx, request, candidate, candidateLogger)
	if !feasible {
		return nil
	}

	sailingArrival := sailingDeparture.Add(time.Duration(sailing.CrossingMinutes) * time.Minute)
	arrivalTime := sailingArrival.Add(egress.Duration)
	departureTime := sailingDeparture.Add(-access.Duration)

	return &transit.RouteOption{
		Mode: transit.RouteOptionModeFerryCombo,
		Legs: []transit.Leg{
			{
				Kind:      transit.LegKindDrive,
				From:      request.OriginAddress,
				To:        candidate.OriginTerminal.DisplayName,
				StartTime: departureTime,
				EndTime:   sailingDeparture,
				Cost:      access.MileageCost,
			},
			{
				Kind:      transit.LegKindSail,
				From:      candidate.OriginTerminal.DisplayName,
				To:        candidate.DestinationTerminal.DisplayName,
				StartTime: sailingDeparture,
				EndTime:   sailingArrival,
				Cost:      fareCost,
			},
			{
				Kind:      transit.LegKindDrive,
				From:      candidate.DestinationTerminal.DisplayName,
				To:        request.DestinationAddress,
				StartTime: sailingArrival,
				EndTime:   arrivalTime,
				Cost:      egress.MileageCost,
			},
		},
		TotalCost:     access.MileageCost + fareCost + egress.MileageCost,
		TotalDuration: arrivalTime.Sub(departureTime),
		DepartureTime: departureTime,
		ArrivalTime:   arrivalTime,
		MeetsBuffer:   !arrivalTime.After(deadline),
		Diagnostics:   fareDiagnostics,
	}
}

// latestFeasibleSailing scans the day's sailings in descending order and
// returns the last one whose arrival plus the egress drive still meets the
// deadline. A forward next-sailing scan is not enough here: the goal is the
// latest departure that still works, not the earliest.
func (p *Planner) latestFeasibleSailing(candidate ferryCandidate, eventTime time.Time, deadline time.Time, egressDuration time.Duration) (transit.ScheduleEntry, time.Time, bool) {
	sailings, err := p.Schedule.SailingsFor(candidate.Route.Key, eventTime)
	if err != nil {
		// RouteNotFound here means the candidate was generated against data
		// that changed underneath us. Infeasible, never surfaced raw.
		return transit.ScheduleEntry{}, time.Time{}, false
	}

	for i := len(sailings) - 1; i >= 0; i-- {
		departure := sailings[i].Time.OnDate(eventTime)
		arrival := departure.
			Add(time.Duration(sailings[i].CrossingMinutes) * time.Minute).
			Add(egressDuration)

		if !arrival.After(deadline) {
			return sailings[i], departure, true
		}
	}

	return transit.ScheduleEntry{}, time.Time{}, false
}

// crossingCost prices the sail leg. Eastbound (mainland-bound) legs are
// charged; westbound legs are free regardless of what the fare provider says.
func (p *Planner) crossingCost(ctx context.Context, request Request, candidate ferryCandidate, candidateLogger zerolog.Logger) (float64, []string, bool) {
	departingID, err := directory.ResolveTerminalID(candidate.OriginTerminal.Name)
	if err != nil {
		candidateLogger.Warn().Err(err).Msg("Dropping ferry candidate - unknown departing terminal")
		return 0, nil, false
	}
	arrivingID, err := directory.ResolveTerminalID(candidate.DestinationTerminal.Name)
	if err != nil {
		candidateLogger.Warn().Err(err).Msg("Dropping ferry candidate - unknown arriving terminal")
		return 0, nil, false
	}

	fareContext, cancelFare := context.WithTimeout(ctx, externalCallTimeout)
	quote, err := p.Fares.Fare(fareContext, request.EventTime, departingID, arrivingID, request.VehicleClass)
	cancelFare()

	if candidate.Direction == transit.DirectionWestbound {
		// Free direction: the provider result is only a sanity check.
		if err == nil && quote.Amount != 0 {
			warning := "fare direction mismatch: provider returned a nonzero fare for a westbound leg"
			candidateLogger.Warn().Float64("amount", quote.Amount).Msg("Fare direction mismatch on westbound leg")
			return 0, []string{warning}, true
		}

		return 0, nil, true
	}

	if err != nil {
		candidateLogger.Warn().Err(err).Msg("Dropping ferry candidate - fare lookup failed")
		return 0, nil, false
	}

	return quote.Amount, nil, true
}
