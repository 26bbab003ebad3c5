package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kitsapcommute/kitsapcommute/pkg/directory"
	"github.com/kitsapcommute/kitsapcommute/pkg/geo"
	"github.com/kitsapcommute/kitsapcommute/pkg/maps"
	"github.com/kitsapcommute/kitsapcommute/pkg/schedule"
	"github.com/kitsapcommute/kitsapcommute/pkg/transit"
)

type stubDriveTimeProvider struct {
	geocodes map[string]geo.Coordinates
	drives   map[string]*maps.DriveEstimate
}

func (s *stubDriveTimeProvider) Geocode(ctx context.Context, address string) (geo.Coordinates, error) {
	coordinates, found := s.geocodes[address]
	if !found {
		return geo.Coordinates{}, fmt.Errorf("%w: %s", maps.ErrAmbiguousAddress, address)
	}

	return coordinates, nil
}

func (s *stubDriveTimeProvider) DriveTime(ctx context.Context, origin string, destination string, options maps.DriveTimeOptions) (*maps.DriveEstimate, error) {
	estimate, found := s.drives[origin+"|"+destination]
	if !found {
		return nil, fmt.Errorf("no drive estimate from %s to %s", origin, destination)
	}

	return estimate, nil
}

type stubFareProvider struct {
	fares map[string]float64
	err   error
}

func (s *stubFareProvider) Fare(ctx context.Context, date time.Time, departingTerminalID int, arrivingTerminalID int, vehicleClass transit.VehicleClass) (*transit.FareQuote, error) {
	if s.err != nil {
		return nil, s.err
	}

	amount, found := s.fares[fmt.Sprintf("%d-%d", departingTerminalID, arrivingTerminalID)]
	if !found {
		return nil, fmt.Errorf("no fare from %d to %d", departingTerminalID, arrivingTerminalID)
	}

	return &transit.FareQuote{Amount: amount, VehicleClass: vehicleClass}, nil
}

func driveEstimate(minutes int, miles float64) *maps.DriveEstimate {
	return &maps.DriveEstimate{
		Duration:      time.Duration(minutes) * time.Minute,
		DistanceMiles: miles,
		MileageCost:   miles * maps.MileageRate,
	}
}

func testDirectory() *directory.Directory {
	return &directory.Directory{Terminals: []transit.Terminal{
		{
			Name:        "Southworth",
			DisplayName: "Southworth (Port Orchard)",
			Address:     "southworth terminal",
			Location:    geo.Coordinates{Latitude: 47.5120367, Longitude: -122.4974933},
		},
		{
			Name:        "Bremerton",
			DisplayName: "Bremerton (Downtown)",
			Address:     "bremerton terminal",
			Location:    geo.Coordinates{Latitude: 47.56212, Longitude: -122.62392},
		},
		{
			Name:        "Fauntleroy",
			DisplayName: "Fauntleroy (West Seattle)",
			Address:     "fauntleroy terminal",
			Location:    geo.Coordinates{Latitude: 47.5232, Longitude: -122.39548},
		},
		{
			Name:        "Seattle",
			DisplayName: "Seattle (Downtown)",
			Address:     "seattle terminal",
			Location:    geo.Coordinates{Latitude: 47.6026977, Longitude: -122.3385197},
		},
	}}
}

func testSchedule(t *testing.T) *schedule.Table {
	t.Helper()

	table, err := schedule.Load([]byte(`{
  "southworth-fauntleroy": {
    "direction": ["east"],
    "weekday": [
      {"time": "6:40 AM", "crossing_time": 35},
      {"time": "4:25 PM", "crossing_time": 35},
      {"time": "5:05 PM", "crossing_time": 35}
    ],
    "weekend": []
  },
  "bremerton-seattle": {
    "direction": ["east"],
    "weekday": [
      {"time": "3:45 PM", "crossing_time": 60},
      {"time": "4:45 PM", "crossing_time": 60}
    ],
    "weekend": []
  }
}`))
	if err != nil {
		t.Fatalf("failed to load test schedule: %v", err)
	}

	return table
}

// testPlanner models a Port Orchard commuter heading to downtown Seattle.
// Southworth, Bremerton and Fauntleroy are the origin-side terminals;
// Seattle and Fauntleroy are the destination-side ones.
func testPlanner(t *testing.T) *Planner {
	t.Helper()

	driveTimes := &stubDriveTimeProvider{
		geocodes: map[string]geo.Coordinates{
			"home":    {Latitude: 47.53, Longitude: -122.52},
			"library": {Latitude: 47.6067, Longitude: -122.3325},
		},
		drives: map[string]*maps.DriveEstimate{
			"home|library":                driveEstimate(60, 40),
			"home|southworth terminal":    driveEstimate(12, 5),
			"home|bremerton terminal":     driveEstimate(18, 9),
			"fauntleroy terminal|library": driveEstimate(20, 8),
			"seattle terminal|library":    driveEstimate(6, 1),
		},
	}

	fares := &stubFareProvider{
		fares: map[string]float64{
			"20-9": 23.20,
			"4-7":  21.70,
		},
	}

	return NewPlanner(testDirectory(), testSchedule(t), driveTimes, fares)
}

var pacific = time.FixedZone("PDT", -7*60*60)

func TestPlan(t *testing.T) {
	// A Tuesday evening event. The 15 minute default buffer puts the arrival
	// deadline at 5:45 PM.
	eventTime := time.Date(2025, 8, 5, 18, 0, 0, 0, pacific)
	deadline := eventTime.Add(-15 * time.Minute)

	request := Request{
		OriginAddress:      "home",
		DestinationAddress: "library",
		EventTime:          eventTime,
	}

	planner := testPlanner(t)

	options, err := planner.Plan(context.Background(), request)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	t.Run("ranked by total cost ascending", func(t *testing.T) {
		if len(options) != 3 {
			t.Fatalf("got %d options, want 3", len(options))
		}

		expectedCosts := []float64{29.40, 30.80, 33.21}
		for i, expected := range expectedCosts {
			if math.Abs(options[i].TotalCost-expected) > 0.001 {
				t.Errorf("option %d total cost = %.2f, want %.2f", i, options[i].TotalCost, expected)
			}
		}

		if options[0].Mode != transit.RouteOptionModeFerryCombo {
			t.Errorf("cheapest option mode = %s, want ferry_combo", options[0].Mode)
		}
		if options[0].Legs[1].From != "Bremerton (Downtown)" {
			t.Errorf("cheapest option sails from %s, want Bremerton", options[0].Legs[1].From)
		}
		if options[1].Mode != transit.RouteOptionModeDriveOnly {
			t.Errorf("second option mode = %s, want drive_only", options[1].Mode)
		}
		if options[2].Legs[1].From != "Southworth (Port Orchard)" {
			t.Errorf("third option sails from %s, want Southworth", options[2].Legs[1].From)
		}
	})

	t.Run("exactly one drive only option", func(t *testing.T) {
		driveOnly := 0
		for _, option := range options {
			if option.Mode == transit.RouteOptionModeDriveOnly {
				driveOnly++
			}
		}

		if driveOnly != 1 {
			t.Errorf("got %d drive-only options, want exactly 1", driveOnly)
		}
	})

	t.Run("every option meets the arrival buffer", func(t *testing.T) {
		for i, option := range options {
			if !option.MeetsBuffer {
				t.Errorf("option %d does not meet the buffer", i)
			}
			if option.ArrivalTime.After(deadline) {
				t.Errorf("option %d arrives %s, after deadline %s", i, option.ArrivalTime, deadline)
			}
		}
	})

	t.Run("picks the latest feasible sailing", func(t *testing.T) {
		// The 5:05 PM Southworth sailing would arrive at 6:00 PM after the
		// egress drive, past the deadline, so the 4:25 PM sailing is chosen.
		southworth := options[2]

		expectedDeparture := time.Date(2025, 8, 5, 16, 25, 0, 0, pacific)
		if !southworth.Legs[1].StartTime.Equal(expectedDeparture) {
			t.Errorf("southworth sailing departs %s, want %s", southworth.Legs[1].StartTime, expectedDeparture)
		}

		// Bremerton's 4:45 PM sailing also misses the deadline, leaving 3:45 PM.
		bremerton := options[0]

		expectedDeparture = time.Date(2025, 8, 5, 15, 45, 0, 0, pacific)
		if !bremerton.Legs[1].StartTime.Equal(expectedDeparture) {
			t.Errorf("bremerton sailing departs %s, want %s", bremerton.Legs[1].StartTime, expectedDeparture)
		}
	})

	t.Run("ferry option legs are consistent", func(t *testing.T) {
		bremerton := options[0]

		if len(bremerton.Legs) != 3 {
			t.Fatalf("got %d legs, want 3", len(bremerton.Legs))
		}

		expectedKinds := []transit.LegKind{transit.LegKindDrive, transit.LegKindSail, transit.LegKindDrive}
		for i, expected := range expectedKinds {
			if bremerton.Legs[i].Kind != expected {
				t.Errorf("leg %d kind = %s, want %s", i, bremerton.Legs[i].Kind, expected)
			}
		}

		for i := 1; i < len(bremerton.Legs); i++ {
			if !bremerton.Legs[i].StartTime.Equal(bremerton.Legs[i-1].EndTime) {
				t.Errorf("leg %d starts %s, previous ends %s", i, bremerton.Legs[i].StartTime, bremerton.Legs[i-1].EndTime)
			}
		}

		expectedDeparture := time.Date(2025, 8, 5, 15, 27, 0, 0, pacific)
		if !bremerton.DepartureTime.Equal(expectedDeparture) {
			t.Errorf("departure = %s, want %s", bremerton.DepartureTime, expectedDeparture)
		}

		expectedArrival := time.Date(2025, 8, 5, 16, 51, 0, 0, pacific)
		if !bremerton.ArrivalTime.Equal(expectedArrival) {
			t.Errorf("arrival = %s, want %s", bremerton.ArrivalTime, expectedArrival)
		}

		if bremerton.TotalDuration != 84*time.Minute {
			t.Errorf("total duration = %s, want 84m", bremerton.TotalDuration)
		}
	})

	t.Run("identical requests return identical plans", func(t *testing.T) {
		repeat, err := planner.Plan(context.Background(), request)
		if err != nil {
			t.Fatalf("Plan returned error: %v", err)
		}

		if !reflect.DeepEqual(options, repeat) {
			t.Error("two identical requests produced different plans")
		}
	})
}

func TestPlanEarlyMorningFallsBackToDriving(t *testing.T) {
	planner := testPlanner(t)

	// Before the first sailing of the day only driving works.
	options, err := planner.Plan(context.Background(), Request{
		OriginAddress:      "home",
		DestinationAddress: "library",
		EventTime:          time.Date(2025, 8, 5, 6, 30, 0, 0, pacific),
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if len(options) != 1 {
		t.Fatalf("got %d options, want 1", len(options))
	}
	if options[0].Mode != transit.RouteOptionModeDriveOnly {
		t.Errorf("mode = %s, want drive_only", options[0].Mode)
	}

	expectedArrival := time.Date(2025, 8, 5, 6, 15, 0, 0, pacific)
	if !options[0].ArrivalTime.Equal(expectedArrival) {
		t.Errorf("arrival = %s, want %s", options[0].ArrivalTime, expectedArrival)
	}
}

func TestPlanNegativeMaxOptions(t *testing.T) {
	planner := testPlanner(t)

	// A hostile count must not reach the option slicing.
	options, err := planner.Plan(context.Background(), Request{
		OriginAddress:      "home",
		DestinationAddress: "library",
		EventTime:          time.Date(2025, 8, 5, 18, 0, 0, 0, pacific),
		MaxOptions:         -1,
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if len(options) != DefaultMaxOptions {
		t.Errorf("got %d options, want the default %d", len(options), DefaultMaxOptions)
	}
}

func TestPlanGeocodeFailure(t *testing.T) {
	planner := testPlanner(t)

	_, err := planner.Plan(context.Background(), Request{
		OriginAddress:      "nowhere at all",
		DestinationAddress: "library",
		EventTime:          time.Date(2025, 8, 5, 18, 0, 0, 0, pacific),
	})
	if !errors.Is(err, ErrGeocodeFailed) {
		t.Errorf("got %v, want ErrGeocodeFailed", err)
	}
}

func TestPlanNoFeasibleRoute(t *testing.T) {
	planner := testPlanner(t)

	// Geocoding works but every drive lookup fails, so no option survives.
	planner.DriveTime = &stubDriveTimeProvider{
		geocodes: map[string]geo.Coordinates{
			"home":    {Latitude: 47.53, Longitude: -122.52},
			"library": {Latitude: 47.6067, Longitude: -122.3325},
		},
	}

	_, err := planner.Plan(context.Background(), Request{
		OriginAddress:      "home",
		DestinationAddress: "library",
		EventTime:          time.Date(2025, 8, 5, 18, 0, 0, 0, pacific),
	})
	if !errors.Is(err, ErrNoFeasibleRoute) {
		t.Errorf("got %v, want ErrNoFeasibleRoute", err)
	}
}

type deadlineRecordingDriveProvider struct {
	stubDriveTimeProvider

	delay     time.Duration
	deadlines []time.Time
}

func (d *deadlineRecordingDriveProvider) DriveTime(ctx context.Context, origin string, destination string, options maps.DriveTimeOptions) (*maps.DriveEstimate, error) {
	deadline, _ := ctx.Deadline()
	d.deadlines = append(d.deadlines, deadline)

	time.Sleep(d.delay)

	return d.stubDriveTimeProvider.DriveTime(ctx, origin, destination, options)
}

type deadlineRecordingFareProvider struct {
	stubFareProvider

	deadline time.Time
}

func (d *deadlineRecordingFareProvider) Fare(ctx context.Context, date time.Time, departingTerminalID int, arrivingTerminalID int, vehicleClass transit.VehicleClass) (*transit.FareQuote, error) {
	d.deadline, _ = ctx.Deadline()

	return d.stubFareProvider.Fare(ctx, date, departingTerminalID, arrivingTerminalID, vehicleClass)
}

func TestFerryOptionPerCallTimeouts(t *testing.T) {
	driveTimes := &deadlineRecordingDriveProvider{
		stubDriveTimeProvider: stubDriveTimeProvider{
			drives: map[string]*maps.DriveEstimate{
				"home|southworth terminal":    driveEstimate(12, 5),
				"fauntleroy terminal|library": driveEstimate(20, 8),
			},
		},
		delay: 20 * time.Millisecond,
	}
	fares := &deadlineRecordingFareProvider{
		stubFareProvider: stubFareProvider{fares: map[string]float64{"20-9": 23.20}},
	}

	planner := NewPlanner(testDirectory(), testSchedule(t), driveTimes, fares)

	eventTime := time.Date(2025, 8, 5, 18, 0, 0, 0, pacific)
	deadline := eventTime.Add(-15 * time.Minute)

	request := Request{
		OriginAddress:      "home",
		DestinationAddress: "library",
		EventTime:          eventTime,
	}
	request.setDefaults()

	southworth, _ := planner.Directory.Get("Southworth")
	fauntleroy, _ := planner.Directory.Get("Fauntleroy")
	route, err := planner.Schedule.Resolve("Southworth", "Fauntleroy")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	option := planner.ferryOption(context.Background(), request, deadline, ferryCandidate{
		OriginTerminal:      southworth,
		DestinationTerminal: fauntleroy,
		Route:               route,
		Direction:           transit.DirectionEastbound,
	})
	if option == nil {
		t.Fatal("expected a feasible option")
	}

	if len(driveTimes.deadlines) != 2 {
		t.Fatalf("got %d drive lookups, want egress and access", len(driveTimes.deadlines))
	}

	// Each lookup's context deadline is measured from its own start. Under a
	// single shared context all three would carry the same deadline, so a slow
	// first call would eat the budget of the rest.
	if !driveTimes.deadlines[1].After(driveTimes.deadlines[0]) {
		t.Error("access drive lookup shares the egress lookup's timeout budget")
	}
	if !fares.deadline.After(driveTimes.deadlines[1]) {
		t.Error("fare lookup shares the drive lookups' timeout budget")
	}
}

func TestCrossingCost(t *testing.T) {
	eastbound := ferryCandidate{
		OriginTerminal:      transit.Terminal{Name: "Southworth"},
		DestinationTerminal: transit.Terminal{Name: "Fauntleroy"},
		Direction:           transit.DirectionEastbound,
	}
	westbound := ferryCandidate{
		OriginTerminal:      transit.Terminal{Name: "Fauntleroy"},
		DestinationTerminal: transit.Terminal{Name: "Southworth"},
		Direction:           transit.DirectionWestbound,
	}

	request := Request{
		EventTime:    time.Date(2025, 8, 5, 18, 0, 0, 0, pacific),
		VehicleClass: transit.VehicleClassStandard,
	}

	t.Run("eastbound is charged", func(t *testing.T) {
		planner := &Planner{Fares: &stubFareProvider{fares: map[string]float64{"20-9": 23.20}}}

		cost, diagnostics, feasible := planner.crossingCost(context.Background(), request, eastbound, zerolog.Nop())
		if !feasible {
			t.Fatal("expected feasible")
		}
		if cost != 23.20 {
			t.Errorf("cost = %.2f, want 23.20", cost)
		}
		if diagnostics != nil {
			t.Errorf("diagnostics = %v, want none", diagnostics)
		}
	})

	t.Run("eastbound fare failure drops the candidate", func(t *testing.T) {
		planner := &Planner{Fares: &stubFareProvider{err: errors.New("wsdot is down")}}

		if _, _, feasible := planner.crossingCost(context.Background(), request, eastbound, zerolog.Nop()); feasible {
			t.Error("expected infeasible")
		}
	})

	t.Run("westbound is free", func(t *testing.T) {
		planner := &Planner{Fares: &stubFareProvider{fares: map[string]float64{"9-20": 0}}}

		cost, diagnostics, feasible := planner.crossingCost(context.Background(), request, westbound, zerolog.Nop())
		if !feasible {
			t.Fatal("expected feasible")
		}
		if cost != 0 {
			t.Errorf("cost = %.2f, want 0", cost)
		}
		if diagnostics != nil {
			t.Errorf("diagnostics = %v, want none", diagnostics)
		}
	})

	t.Run("westbound survives a fare failure", func(t *testing.T) {
		planner := &Planner{Fares: &stubFareProvider{err: errors.New("wsdot is down")}}

		cost, _, feasible := planner.crossingCost(context.Background(), request, westbound, zerolog.Nop())
		if !feasible {
			t.Fatal("expected feasible")
		}
		if cost != 0 {
			t.Errorf("cost = %.2f, want 0", cost)
		}
	})

	t.Run("westbound nonzero fare is flagged but still free", func(t *testing.T) {
		planner := &Planner{Fares: &stubFareProvider{fares: map[string]float64{"9-20": 11.00}}}

		cost, diagnostics, feasible := planner.crossingCost(context.Background(), request, westbound, zerolog.Nop())
		if !feasible {
			t.Fatal("expected feasible")
		}
		if cost != 0 {
			t.Errorf("cost = %.2f, want 0", cost)
		}
		if len(diagnostics) != 1 {
			t.Fatalf("got %d diagnostics, want 1", len(diagnostics))
		}
		if diagnostics[0] != "fare direction mismatch: provider returned a nonzero fare for a westbound leg" {
			t.Errorf("diagnostic = %q", diagnostics[0])
		}
	})

	t.Run("unknown terminal drops the candidate", func(t *testing.T) {
		planner := &Planner{Fares: &stubFareProvider{}}
		candidate := ferryCandidate{
			OriginTerminal:      transit.Terminal{Name: "Atlantis"},
			DestinationTerminal: transit.Terminal{Name: "Seattle"},
			Direction:           transit.DirectionEastbound,
		}

		if _, _, feasible := planner.crossingCost(context.Background(), request, candidate, zerolog.Nop()); feasible {
			t.Error("expected infeasible")
		}
	})
}

func TestFerryCandidates(t *testing.T) {
	planner := testPlanner(t)

	origin := geo.Coordinates{Latitude: 47.53, Longitude: -122.52}
	destination := geo.Coordinates{Latitude: 47.6067, Longitude: -122.3325}

	candidates, err := planner.ferryCandidates(origin, destination)
	if err != nil {
		t.Fatalf("ferryCandidates returned error: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}

	byRoute := map[string]ferryCandidate{}
	for _, candidate := range candidates {
		byRoute[candidate.Route.Key] = candidate
	}

	for _, routeKey := range []string{"southworth-fauntleroy", "bremerton-seattle"} {
		candidate, found := byRoute[routeKey]
		if !found {
			t.Errorf("missing candidate for route %s", routeKey)
			continue
		}
		if candidate.Direction != transit.DirectionEastbound {
			t.Errorf("route %s direction = %s, want eastbound", routeKey, candidate.Direction)
		}
	}
}

func TestFerryCandidatesReversedKeyFlipsDirection(t *testing.T) {
	// Only the eastbound record exists, so the westbound trip resolves via the
	// reverse key and the direction flips.
	table, err := schedule.Load([]byte(`{
  "southworth-fauntleroy": {
    "direction": ["east"],
    "weekday": [{"time": "4:25 PM", "crossing_time": 35}],
    "weekend": []
  }
}`))
	if err != nil {
		t.Fatalf("failed to load test schedule: %v", err)
	}

	planner := &Planner{Directory: testDirectory(), Schedule: table}

	// West Seattle to Port Orchard.
	candidates, err := planner.ferryCandidates(
		geo.Coordinates{Latitude: 47.525, Longitude: -122.40},
		geo.Coordinates{Latitude: 47.513, Longitude: -122.50},
	)
	if err != nil {
		t.Fatalf("ferryCandidates returned error: %v", err)
	}

	var westbound *ferryCandidate
	for i, candidate := range candidates {
		if candidate.OriginTerminal.Name == "Fauntleroy" && candidate.DestinationTerminal.Name == "Southworth" {
			westbound = &candidates[i]
		}
	}

	if westbound == nil {
		t.Fatal("missing Fauntleroy to Southworth candidate")
	}
	if westbound.Direction != transit.DirectionWestbound {
		t.Errorf("direction = %s, want westbound", westbound.Direction)
	}
}

func TestRankOptions(t *testing.T) {
	options := []transit.RouteOption{
		{Mode: transit.RouteOptionModeDriveOnly, TotalCost: 30.80, TotalDuration: time.Hour},
		{Mode: transit.RouteOptionModeFerryCombo, TotalCost: 29.40, TotalDuration: 84 * time.Minute},
		{Mode: transit.RouteOptionModeFerryCombo, TotalCost: 29.40, TotalDuration: 70 * time.Minute},
	}

	rankOptions(options)

	if options[0].TotalDuration != 70*time.Minute {
		t.Errorf("first option duration = %s, want the shorter of the cost tie", options[0].TotalDuration)
	}
	if options[1].TotalDuration != 84*time.Minute {
		t.Errorf("second option duration = %s", options[1].TotalDuration)
	}
	if options[2].Mode != transit.RouteOptionModeDriveOnly {
		t.Errorf("most expensive option should rank last")
	}
}

func TestSelectOptionsRetainsDriveOnly(t *testing.T) {
	options := []transit.RouteOption{
		{Mode: transit.RouteOptionModeFerryCombo, TotalCost: 10},
		{Mode: transit.RouteOptionModeFerryCombo, TotalCost: 20},
		{Mode: transit.RouteOptionModeFerryCombo, TotalCost: 30},
		{Mode: transit.RouteOptionModeDriveOnly, TotalCost: 40},
	}

	selected := selectOptions(options, 3)

	if len(selected) != 3 {
		t.Fatalf("got %d options, want 3", len(selected))
	}
	if selected[2].Mode != transit.RouteOptionModeDriveOnly {
		t.Errorf("last option mode = %s, want drive_only swapped in", selected[2].Mode)
	}
	if selected[0].TotalCost != 10 || selected[1].TotalCost != 20 {
		t.Error("cheaper ferry options should be untouched")
	}
}
