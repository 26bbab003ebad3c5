package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/kitsapcommute/kitsapcommute/pkg/directory"
	"github.com/kitsapcommute/kitsapcommute/pkg/events"
	"github.com/kitsapcommute/kitsapcommute/pkg/maps"
	"github.com/kitsapcommute/kitsapcommute/pkg/planner"
	"github.com/kitsapcommute/kitsapcommute/pkg/transit"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registrations() []toolRegistration {
	planCommuteTool := &mcp.Tool{
		Name:        "plan_commute",
		Description: "Plans ranked ferry and driving commute options that arrive before an event, with per-leg cost and timing breakdowns",
	}
	findTerminalsTool := &mcp.Tool{
		Name:        "find_nearby_ferry_terminals",
		Description: "Finds the nearest ferry terminals to an address, sorted by distance",
	}
	driveTimeTool := &mcp.Tool{
		Name:        "drive_time",
		Description: "Returns drive time between origin and destination with mileage cost at $0.77 per mile",
	}
	listSailingsTool := &mcp.Tool{
		Name:        "list_ferry_sailings",
		Description: "Returns scheduled ferry sailings for a terminal pair on a date",
	}
	ferryFareTool := &mcp.Tool{
		Name:        "ferry_fare",
		Description: "Returns the one-way ferry fare for a terminal pair and travel date. Eastbound (to mainland) crossings are paid, westbound are free",
	}
	searchEventsTool := &mcp.Tool{
		Name:        "search_events",
		Description: "Searches stored events by time range, topic, title, location or semantic description",
	}
	createEventTool := &mcp.Tool{
		Name:        "create_event",
		Description: "Stores a new event for later search",
	}

	return []toolRegistration{
		{tool: planCommuteTool, install: func(server *mcp.Server) { mcp.AddTool(server, planCommuteTool, s.planCommute) }},
		{tool: findTerminalsTool, install: func(server *mcp.Server) { mcp.AddTool(server, findTerminalsTool, s.findNearbyTerminals) }},
		{tool: driveTimeTool, install: func(server *mcp.Server) { mcp.AddTool(server, driveTimeTool, s.driveTime) }},
		{tool: listSailingsTool, install: func(server *mcp.Server) { mcp.AddTool(server, listSailingsTool, s.listSailings) }},
		{tool: ferryFareTool, install: func(server *mcp.Server) { mcp.AddTool(server, ferryFareTool, s.ferryFare) }},
		{tool: searchEventsTool, install: func(server *mcp.Server) { mcp.AddTool(server, searchEventsTool, s.searchEvents) }},
		{tool: createEventTool, install: func(server *mcp.Server) { mcp.AddTool(server, createEventTool, s.createEvent) }},
	}
}

type planCommuteInput struct {
	Origin        string `json:"origin" jsonschema:"street address of the starting point"`
	Destination   string `json:"destination" jsonschema:"street address of the event"`
	EventTime     string `json:"event_time" jsonschema:"RFC3339 event start time"`
	BufferMinutes int    `json:"buffer_minutes,omitempty" jsonschema:"required arrival slack before the event, default 15"`
	MaxOptions    int    `json:"max_options,omitempty" jsonschema:"maximum route options to return, default 3"`
	VehicleClass  string `json:"vehicle_class,omitempty" jsonschema:"walk-on, standard, small or motorcycle"`
}

type planCommuteOutput struct {
	Options []transit.RouteOption `json:"options"`
}

func (s *Server) planCommute(ctx context.Context, request *mcp.CallToolRequest, input planCommuteInput) (*mcp.CallToolResult, planCommuteOutput, error) {
	eventTime, err := time.Parse(time.RFC3339, input.EventTime)
	if err != nil {
		return nil, planCommuteOutput{}, fmt.Errorf("event_time should be an RFC3339 datetime: %w", err)
	}

	options, err := s.Planner.Plan(ctx, planner.Request{
		OriginAddress:        input.Origin,
		DestinationAddress:   input.Destination,
		EventTime:            eventTime,
		ArrivalBufferMinutes: input.BufferMinutes,
		MaxOptions:           input.MaxOptions,
		VehicleClass:         transit.VehicleClass(input.VehicleClass),
	})
	if err != nil {
		return nil, planCommuteOutput{}, err
	}

	return nil, planCommuteOutput{Options: options}, nil
}

type findNearbyTerminalsInput struct {
	Address    string `json:"address" jsonschema:"street address to search around"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum terminals to return, default 3"`
}

type findNearbyTerminalsOutput struct {
	Terminals []transit.TerminalDistance `json:"terminals"`
}

func (s *Server) findNearbyTerminals(ctx context.Context, request *mcp.CallToolRequest, input findNearbyTerminalsInput) (*mcp.CallToolResult, findNearbyTerminalsOutput, error) {
	maxResults := input.MaxResults
	if maxResults == 0 {
		maxResults = planner.DefaultNearbyTerminalCount
	}

	coordinates, err := s.Planner.DriveTime.Geocode(ctx, input.Address)
	if err != nil {
		return nil, findNearbyTerminalsOutput{}, err
	}

	nearest, err := s.Directory.NearestTerminals(coordinates, maxResults)
	if err != nil {
		return nil, findNearbyTerminalsOutput{}, err
	}

	return nil, findNearbyTerminalsOutput{Terminals: nearest}, nil
}

type driveTimeInput struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departure_time,omitempty" jsonschema:"optional RFC3339 departure time"`
	ArrivalTime   string `json:"arrival_time,omitempty" jsonschema:"optional RFC3339 desired arrival time"`
}

type driveTimeOutput struct {
	DriveMinutes  int     `json:"drive_minutes"`
	DistanceMiles float64 `json:"distance_miles"`
	MileageCost   float64 `json:"mileage_cost"`
	MileageRate   float64 `json:"mileage_rate"`
	InTraffic     bool    `json:"in_traffic"`
}

func (s *Server) driveTime(ctx context.Context, request *mcp.CallToolRequest, input driveTimeInput) (*mcp.CallToolResult, driveTimeOutput, error) {
	var options maps.DriveTimeOptions

	if input.DepartureTime != "" {
		departureTime, err := time.Parse(time.RFC3339, input.DepartureTime)
		if err != nil {
			return nil, driveTimeOutput{}, fmt.Errorf("departure_time should be an RFC3339 datetime: %w", err)
		}
		options.DepartureTime = departureTime
	}
	if input.ArrivalTime != "" {
		arrivalTime, err := time.Parse(time.RFC3339, input.ArrivalTime)
		if err != nil {
			return nil, driveTimeOutput{}, fmt.Errorf("arrival_time should be an RFC3339 datetime: %w", err)
		}
		options.ArrivalTime = arrivalTime
	}

	estimate, err := s.Planner.DriveTime.DriveTime(ctx, input.Origin, input.Destination, options)
	if err != nil {
		return nil, driveTimeOutput{}, err
	}

	return nil, driveTimeOutput{
		DriveMinutes:  int(estimate.Duration.Minutes()),
		DistanceMiles: estimate.DistanceMiles,
		MileageCost:   estimate.MileageCost,
		MileageRate:   maps.MileageRate,
		InTraffic:     estimate.InTraffic,
	}, nil
}

type listSailingsInput struct {
	Origin      string `json:"origin" jsonschema:"ferry terminal name, e.g. Southworth"`
	Destination string `json:"destination" jsonschema:"ferry terminal name, e.g. Fauntleroy"`
	Date        string `json:"date,omitempty" jsonschema:"travel date YYYY-MM-DD, default today"`
}

type listSailingsOutput struct {
	Route     string                  `json:"route"`
	Direction transit.Direction       `json:"direction"`
	Sailings  []transit.ScheduleEntry `json:"sailings"`
}

func (s *Server) listSailings(ctx context.Context, request *mcp.CallToolRequest, input listSailingsInput) (*mcp.CallToolResult, listSailingsOutput, error) {
	date := time.Now()

	if input.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", input.Date)
		if err != nil {
			return nil, listSailingsOutput{}, fmt.Errorf("date should be formatted YYYY-MM-DD: %w", err)
		}
	}

	route, err := s.Schedule.Resolve(input.Origin, input.Destination)
	if err != nil {
		return nil, listSailingsOutput{}, err
	}

	sailings, err := s.Schedule.SailingsFor(route.Key, date)
	if err != nil {
		return nil, listSailingsOutput{}, err
	}

	return nil, listSailingsOutput{
		Route:     route.Key,
		Direction: route.Direction(),
		Sailings:  sailings,
	}, nil
}

type ferryFareInput struct {
	TripDate          string `json:"trip_date" jsonschema:"travel date YYYY-MM-DD"`
	DepartingTerminal string `json:"departing_terminal"`
	ArrivingTerminal  string `json:"arriving_terminal"`
	VehicleClass      string `json:"vehicle_class,omitempty" jsonschema:"walk-on, standard, small or motorcycle, default standard"`
}

type ferryFareOutput struct {
	Route      string            `json:"route"`
	Direction  transit.Direction `json:"direction,omitempty"`
	FareAmount float64           `json:"fare_amount"`
	FareName   string            `json:"fare_name"`
}

func (s *Server) ferryFare(ctx context.Context, request *mcp.CallToolRequest, input ferryFareInput) (*mcp.CallToolResult, ferryFareOutput, error) {
	tripDate, err := time.Parse("2006-01-02", input.TripDate)
	if err != nil {
		return nil, ferryFareOutput{}, fmt.Errorf("trip_date should be formatted YYYY-MM-DD: %w", err)
	}

	departingID, err := directory.ResolveTerminalID(input.DepartingTerminal)
	if err != nil {
		return nil, ferryFareOutput{}, err
	}
	arrivingID, err := directory.ResolveTerminalID(input.ArrivingTerminal)
	if err != nil {
		return nil, ferryFareOutput{}, err
	}

	vehicleClass := transit.VehicleClass(input.VehicleClass)
	if vehicleClass == "" {
		vehicleClass = transit.VehicleClassStandard
	}

	quote, err := s.Planner.Fares.Fare(ctx, tripDate, departingID, arrivingID, vehicleClass)
	if err != nil {
		return nil, ferryFareOutput{}, err
	}

	// WSDOT prices pairs our static table may not carry, so a missing route
	// just leaves the direction unset.
	if route, err := s.Schedule.Resolve(input.DepartingTerminal, input.ArrivingTerminal); err == nil {
		quote.Direction = route.Direction()
		if route.Key != transit.RouteKey(input.DepartingTerminal, input.ArrivingTerminal) {
			if quote.Direction == transit.DirectionEastbound {
				quote.Direction = transit.DirectionWestbound
			} else {
				quote.Direction = transit.DirectionEastbound
			}
		}
	}

	return nil, ferryFareOutput{
		Route:      fmt.Sprintf("%s - %s", input.DepartingTerminal, input.ArrivingTerminal),
		Direction:  quote.Direction,
		FareAmount: quote.Amount,
		FareName:   quote.FareName,
	}, nil
}

type searchEventsInput struct {
	StartTime        string `json:"start_time,omitempty" jsonschema:"RFC3339 range start"`
	EndTime          string `json:"end_time,omitempty" jsonschema:"RFC3339 range end"`
	Topic            string `json:"topic,omitempty"`
	Title            string `json:"title,omitempty"`
	Location         string `json:"location,omitempty"`
	DescriptionQuery string `json:"description_query,omitempty" jsonschema:"free text for hybrid keyword and semantic search"`
	Presenting       *bool  `json:"presenting,omitempty"`
	TopK             int    `json:"top_k,omitempty" jsonschema:"maximum events to return, default 10"`
}

type searchEventsOutput struct {
	Events []events.Event `json:"events"`
}

func (s *Server) searchEvents(ctx context.Context, request *mcp.CallToolRequest, input searchEventsInput) (*mcp.CallToolResult, searchEventsOutput, error) {
	query := events.Query{
		Topic:            input.Topic,
		Title:            input.Title,
		Location:         input.Location,
		DescriptionQuery: input.DescriptionQuery,
		Presenting:       input.Presenting,
		TopK:             input.TopK,
	}

	if input.StartTime != "" {
		startTime, err := time.Parse(time.RFC3339, input.StartTime)
		if err != nil {
			return nil, searchEventsOutput{}, fmt.Errorf("start_time should be an RFC3339 datetime: %w", err)
		}
		query.StartTime = &startTime
	}
	if input.EndTime != "" {
		endTime, err := time.Parse(time.RFC3339, input.EndTime)
		if err != nil {
			return nil, searchEventsOutput{}, fmt.Errorf("end_time should be an RFC3339 datetime: %w", err)
		}
		query.EndTime = &endTime
	}

	matched, err := s.Events.Search(ctx, query)
	if err != nil {
		return nil, searchEventsOutput{}, err
	}

	return nil, searchEventsOutput{Events: matched}, nil
}

type createEventInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Topic       string `json:"topic"`
	StartTime   string `json:"start_time" jsonschema:"RFC3339 event start"`
	EndTime     string `json:"end_time" jsonschema:"RFC3339 event end"`
	URL         string `json:"url,omitempty"`
	Presenting  bool   `json:"presenting,omitempty"`
	TalkTitle   string `json:"talk_title,omitempty"`
}

type createEventOutput struct {
	ID string `json:"id"`
}

func (s *Server) createEvent(ctx context.Context, request *mcp.CallToolRequest, input createEventInput) (*mcp.CallToolResult, createEventOutput, error) {
	startTime, err := time.Parse(time.RFC3339, input.StartTime)
	if err != nil {
		return nil, createEventOutput{}, fmt.Errorf("start_time should be an RFC3339 datetime: %w", err)
	}
	endTime, err := time.Parse(time.RFC3339, input.EndTime)
	if err != nil {
		return nil, createEventOutput{}, fmt.Errorf("end_time should be an RFC3339 datetime: %w", err)
	}

	id, err := s.Events.Create(ctx, events.Event{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Topic:       input.Topic,
		StartTime:   startTime,
		EndTime:     endTime,
		URL:         input.URL,
		Presenting:  input.Presenting,
		TalkTitle:   input.TalkTitle,
	})
	if err != nil {
		return nil, createEventOutput{}, err
	}

	return nil, createEventOutput{ID: id}, nil
}
