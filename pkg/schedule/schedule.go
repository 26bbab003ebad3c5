package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/kitsapcommute/kitsapcommute/pkg/geo"
	"github.com/kitsapcommute/kitsapcommute/pkg/transit"
	"github.com/rs/zerolog/log"
)

var ErrRouteNotFound = errors.New("route not found")

// Table is the static sailing schedule, keyed by directional route key.
// Loaded and validated once at startup, read-only afterwards.
type Table struct {
	Routes map[string]*transit.Route
}

type routeRecord struct {
	Direction []string      `json:"direction"`
	Weekday   []entryRecord `json:"weekday"`
	Weekend   []entryRecord `json:"weekend"`
}

type entryRecord struct {
	Time        string   `json:"time"`
	Annotations []string `json:"annotations"`

	CrossingMinutes int `json:"crossing_time"`
}

func LoadFile(dataDirectory string) (*Table, error) {
	filename := path.Join(dataDirectory, "ferry_schedules.json")

	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule table %s: %w", filename, err)
	}

	return Load(file)
}

func Load(file []byte) (*Table, error) {
	// The shipped schedule file carries // comment lines from hand editing.
	var kept []string
	for _, line := range strings.Split(string(file), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		kept = append(kept, line)
	}

	var records map[string]routeRecord
	if err := json.Unmarshal([]byte(strings.Join(kept, "\n")), &records); err != nil {
		return nil, fmt.Errorf("failed to parse schedule table: %w", err)
	}

	table := &Table{
		Routes: map[string]*transit.Route{},
	}

	for routeKey, record := range records {
		terminals := strings.SplitN(routeKey, "-", 2)
		if len(terminals) != 2 {
			return nil, fmt.Errorf("invalid route key %q", routeKey)
		}

		route := &transit.Route{
			Key:                 routeKey,
			OriginTerminal:      terminals[0],
			DestinationTerminal: terminals[1],
			DirectionTags:       record.Direction,
		}

		var err error
		route.Weekday, err = parseEntries(routeKey, "weekday", record.Weekday)
		if err != nil {
			return nil, err
		}
		route.Weekend, err = parseEntries(routeKey, "weekend", record.Weekend)
		if err != nil {
			return nil, err
		}

		table.Routes[routeKey] = route
	}

	log.Debug().Int("routes", len(table.Routes)).Msg("Loaded static ferry schedule table")

	return table, nil
}

func parseEntries(routeKey string, dayType string, records []entryRecord) ([]transit.ScheduleEntry, error) {
	var entries []transit.ScheduleEntry

	previousMinutes := -1
	for _, record := range records {
		clockTime, err := transit.ParseClockTime(record.Time)
		if err != nil {
			return nil, fmt.Errorf("route %s %s: %w", routeKey, dayType, err)
		}

		if record.CrossingMinutes <= 0 {
			return nil, fmt.Errorf("route %s %s sailing %s missing crossing time", routeKey, dayType, record.Time)
		}

		if clockTime.MinutesIntoDay() < previousMinutes {
			return nil, fmt.Errorf("route %s %s sailings not in ascending order at %s", routeKey, dayType, record.Time)
		}
		previousMinutes = clockTime.MinutesIntoDay()

		entries = append(entries, transit.ScheduleEntry{
			Time:            clockTime,
			Annotations:     record.Annotations,
			CrossingMinutes: record.CrossingMinutes,
		})
	}

	return entries, nil
}

// Resolve finds the route serving a terminal pair, trying both key orderings.
// Route keys are directional strings over an undirected relationship.
func (t *Table) Resolve(originTerminal string, destinationTerminal string) (*transit.Route, error) {
	if route, found := t.Routes[transit.RouteKey(originTerminal, destinationTerminal)]; found {
		return route, nil
	}
	if route, found := t.Routes[transit.RouteKey(destinationTerminal, originTerminal)]; found {
		return route, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, transit.RouteKey(originTerminal, destinationTerminal))
}

// SailingsFor returns the route's sailings for the day type of the given date,
// ascending by departure time.
func (t *Table) SailingsFor(routeKey string, date time.Time) ([]transit.ScheduleEntry, error) {
	route, found := t.Routes[routeKey]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, routeKey)
	}

	if geo.GetDayType(date) == geo.DayTypeWeekend {
		return route.Weekend, nil
	}

	return route.Weekday, nil
}

// NextSailingAtOrAfter returns the first sailing departing at or after the
// given time on that date. A false return means no later sailing that day,
// which is not an error - the caller decides what to do.
func (t *Table) NextSailingAtOrAfter(routeKey string, date time.Time, after time.Time) (transit.ScheduleEntry, bool, error) {
	sailings, err := t.SailingsFor(routeKey, date)
	if err != nil {
		return transit.ScheduleEntry{}, false, err
	}

	for _, sailing := range sailings {
		if !sailing.Time.OnDate(date).Before(after) {
			return sailing, true, nil
		}
	}

	return transit.ScheduleEntry{}, false, nil
}

// LatestSailingAtOrBefore scans sailings in descending order and returns the
// last one departing at or before the deadline.
func (t *Table) LatestSailingAtOrBefore(routeKey string, date time.Time, deadline time.Time) (transit.ScheduleEntry, bool, error) {
	sailings, err := t.SailingsFor(routeKey, date)
	if err != nil {
		return transit.ScheduleEntry{}, false, err
	}

	for i := len(sailings) - 1; i >= 0; i-- {
		if !sailings[i].Time.OnDate(date).After(deadline) {
			return sailings[i], true, nil
		}
	}

	return transit.ScheduleEntry{}, false, nil
}
