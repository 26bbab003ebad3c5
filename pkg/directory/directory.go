package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/kitsapcommute/kitsapcommute/pkg/geo"
	"github.com/kitsapcommute/kitsapcommute/pkg/transit"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyDirectory  = errors.New("terminal directory is empty")
	ErrUnknownTerminal = errors.New("unknown terminal")
)

// wsdotTerminalIDs maps canonical terminal names to the numeric IDs the WSDOT
// fares API expects. Fare lookups are priced external calls, so resolution is
// exact match only - never fuzzy.
var wsdotTerminalIDs = map[string]int{
	"anacortes":         1,
	"friday harbor":     2,
	"bainbridge island": 3,
	"bremerton":         4,
	"orcas":             5,
	"shaw":              6,
	"seattle":           7,
	"edmonds":           8,
	"fauntleroy":        9,
	"lopez":             11,
	"kingston":          12,
	"sidney bc":         13,
	"point defiance":    16,
	"southworth":        20,
	"tahlequah":         21,
}

// Directory is the static ferry terminal reference list, loaded once at
// startup and read-only afterwards.
type Directory struct {
	Terminals []transit.Terminal
}

type terminalRecord struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Address     string   `json:"address"`
	Latitude    *float64 `json:"lat"`
	Longitude   *float64 `json:"lng"`
	City        string   `json:"city"`
	County      string   `json:"county"`
}

func LoadFile(dataDirectory string) (*Directory, error) {
	filename := path.Join(dataDirectory, "ferry_terminals.json")

	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read terminal directory %s: %w", filename, err)
	}

	return Load(file)
}

func Load(file []byte) (*Directory, error) {
	var records []terminalRecord
	if err := json.Unmarshal(file, &records); err != nil {
		return nil, fmt.Errorf("failed to parse terminal directory: %w", err)
	}

	directory := &Directory{}

	for _, record := range records {
		if record.Name == "" {
			return nil, errors.New("terminal directory record missing name")
		}
		if record.Latitude == nil || record.Longitude == nil {
			return nil, fmt.Errorf("terminal %s missing lat/lng", record.Name)
		}

		directory.Terminals = append(directory.Terminals, transit.Terminal{
			Name:        record.Name,
			DisplayName: record.DisplayName,
			Address:     record.Address,
			Location: geo.Coordinates{
				Latitude:  *record.Latitude,
				Longitude: *record.Longitude,
			},
			City:   record.City,
			County: record.County,
		})
	}

	log.Debug().Int("terminals", len(directory.Terminals)).Msg("Loaded ferry terminal directory")

	return directory, nil
}

// NearestTerminals returns up to count terminals ordered by great-circle
// distance from the origin, closest first. Ties keep the file order.
func (d *Directory) NearestTerminals(origin geo.Coordinates, count int) ([]transit.TerminalDistance, error) {
	if len(d.Terminals) == 0 {
		return nil, ErrEmptyDirectory
	}

	ranked := make([]transit.TerminalDistance, 0, len(d.Terminals))
	for _, terminal := range d.Terminals {
		ranked = append(ranked, transit.TerminalDistance{
			Terminal:           terminal,
			DistanceKilometers: geo.DistanceKilometers(origin, terminal.Location),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKilometers < ranked[j].DistanceKilometers
	})

	if count > 0 && count < len(ranked) {
		ranked = ranked[:count]
	}

	return ranked, nil
}

// Get looks a terminal up by its canonical name, case-insensitively.
func (d *Directory) Get(name string) (transit.Terminal, bool) {
	for _, terminal := range d.Terminals {
		if strings.EqualFold(terminal.Name, name) {
			return terminal, true
		}
	}

	return transit.Terminal{}, false
}

// ResolveTerminalID resolves a terminal name to its WSDOT fares API ID.
func ResolveTerminalID(name string) (int, error) {
	id, found := wsdotTerminalIDs[strings.ToLower(strings.TrimSpace(name))]
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTerminal, name)
	}

	return id, nil
}
