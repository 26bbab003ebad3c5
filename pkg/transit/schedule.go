package transit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a timezone-less wall-clock departure time, as published in the
// static schedule files ("8:05 AM").
type ClockTime struct {
	Hour   int `json:"hour" groups:"basic"`
	Minute int `json:"minute" groups:"basic"`
}

func ParseClockTime(value string) (ClockTime, error) {
	fields := strings.Fields(strings.TrimSpace(value))
	if len(fields) != 2 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", value)
	}

	hourMinute := strings.Split(fields[0], ":")
	if len(hourMinute) != 2 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", value)
	}

	hour, err := strconv.Atoi(hourMinute[0])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", value, err)
	}
	minute, err := strconv.Atoi(hourMinute[1])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", value, err)
	}

	if hour < 1 || hour > 12 || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", value)
	}

	switch strings.ToUpper(fields[1]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return ClockTime{}, fmt.Errorf("invalid clock time meridiem %q", value)
	}

	return ClockTime{Hour: hour, Minute: minute}, nil
}

func (c ClockTime) MinutesIntoDay() int {
	return c.Hour*60 + c.Minute
}

// OnDate anchors the wall-clock time to the given calendar date and location.
func (c ClockTime) OnDate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

func (c ClockTime) String() string {
	meridiem := "AM"
	hour := c.Hour

	if hour >= 12 {
		meridiem = "PM"
	}
	if hour > 12 {
		hour -= 12
	}
	if hour == 0 {
		hour = 12
	}

	return fmt.Sprintf("%d:%02d %s", hour, c.Minute, meridiem)
}

type ScheduleEntry struct {
	Time        ClockTime `json:"time" groups:"basic"`
	Annotations []string  `json:"annotations,omitempty" groups:"basic"`

	CrossingMinutes int `json:"crossing_minutes" groups:"basic"`
}

// Route is one directional key ("southworth-fauntleroy") over an undirected
// terminal pair. DirectionTags come from the static schedule file and decide
// fare liability, never coordinates.
type Route struct {
	Key string `json:"key" groups:"basic"`

	OriginTerminal      string `json:"origin_terminal" groups:"basic"`
	DestinationTerminal string `json:"destination_terminal" groups:"basic"`

	DirectionTags []string `json:"direction_tags" groups:"basic"`

	Weekday []ScheduleEntry `json:"weekday" groups:"basic"`
	Weekend []ScheduleEntry `json:"weekend" groups:"basic"`
}

func (r *Route) Direction() Direction {
	for _, tag := range r.DirectionTags {
		if strings.EqualFold(tag, "east") {
			return DirectionEastbound
		}
	}

	return DirectionWestbound
}

// RouteKey builds the canonical directional key for a terminal pair.
func RouteKey(originTerminal string, destinationTerminal string) string {
	return fmt.Sprintf("%s-%s",
		strings.ToLower(strings.TrimSpace(originTerminal)),
		strings.ToLower(strings.TrimSpace(destinationTerminal)),
	)
}
