package directory

import (
	"errors"
	"testing"

	"github.com/kitsapcommute/kitsapcommute/pkg/geo"
)

const testTerminals = `[
  {
    "name": "Bremerton",
    "display_name": "Bremerton (Downtown)",
    "address": "10 Washington Ave, Bremerton, WA 98337, United States",
    "lat": 47.56212,
    "lng": -122.62392,
    "city": "Bremerton",
    "county": "Kitsap"
  },
  {
    "name": "Southworth",
    "display_name": "Southworth (Port Orchard)",
    "address": "11564 SE State Highway 160, Southworth, WA 98386, United States",
    "lat": 47.5120367,
    "lng": -122.4974933,
    "city": "Port Orchard",
    "county": "Kitsap"
  },
  {
    "name": "Seattle",
    "display_name": "Seattle (Downtown)",
    "address": "801 Alaskan Wy, Seattle, WA 98104, United States",
    "lat": 47.6026977,
    "lng": -122.3385197,
    "city": "Seattle",
    "county": "King"
  }
]`

func TestLoad(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		directory, err := Load([]byte(testTerminals))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if len(directory.Terminals) != 3 {
			t.Fatalf("got %d terminals, want 3", len(directory.Terminals))
		}
		if directory.Terminals[0].Name != "Bremerton" {
			t.Errorf("first terminal = %s, want Bremerton", directory.Terminals[0].Name)
		}
		if directory.Terminals[1].Location.Latitude != 47.5120367 {
			t.Errorf("southworth latitude = %f", directory.Terminals[1].Location.Latitude)
		}
	})

	t.Run("missing name fails", func(t *testing.T) {
		_, err := Load([]byte(`[{"address": "somewhere", "lat": 47.5, "lng": -122.5}]`))
		if err == nil {
			t.Error("expected error for record missing name")
		}
	})

	t.Run("missing coordinates fails", func(t *testing.T) {
		_, err := Load([]byte(`[{"name": "Bremerton", "lat": 47.56212}]`))
		if err == nil {
			t.Error("expected error for record missing lng")
		}
	})

	t.Run("malformed json fails", func(t *testing.T) {
		_, err := Load([]byte(`{not json`))
		if err == nil {
			t.Error("expected error for malformed file")
		}
	})
}

func TestNearestTerminals(t *testing.T) {
	directory, err := Load([]byte(testTerminals))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	// A point in Port Orchard, closest to Southworth, then Bremerton.
	origin := geo.Coordinates{Latitude: 47.53, Longitude: -122.52}

	t.Run("orders closest first", func(t *testing.T) {
		ranked, err := directory.NearestTerminals(origin, 2)
		if err != nil {
			t.Fatalf("NearestTerminals returned error: %v", err)
		}

		if len(ranked) != 2 {
			t.Fatalf("got %d terminals, want 2", len(ranked))
		}
		if ranked[0].Terminal.Name != "Southworth" {
			t.Errorf("closest = %s, want Southworth", ranked[0].Terminal.Name)
		}
		if ranked[1].Terminal.Name != "Bremerton" {
			t.Errorf("second = %s, want Bremerton", ranked[1].Terminal.Name)
		}
		if ranked[0].DistanceKilometers > ranked[1].DistanceKilometers {
			t.Errorf("distances not ascending: %f > %f", ranked[0].DistanceKilometers, ranked[1].DistanceKilometers)
		}
	})

	t.Run("count larger than directory returns all", func(t *testing.T) {
		ranked, err := directory.NearestTerminals(origin, 10)
		if err != nil {
			t.Fatalf("NearestTerminals returned error: %v", err)
		}

		if len(ranked) != 3 {
			t.Errorf("got %d terminals, want 3", len(ranked))
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		empty := &Directory{}

		_, err := empty.NearestTerminals(origin, 3)
		if !errors.Is(err, ErrEmptyDirectory) {
			t.Errorf("got %v, want ErrEmptyDirectory", err)
		}
	})
}

func TestGet(t *testing.T) {
	directory, err := Load([]byte(testTerminals))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	terminal, found := directory.Get("southworth")
	if !found {
		t.Fatal("Get(southworth) not found")
	}
	if terminal.DisplayName != "Southworth (Port Orchard)" {
		t.Errorf("display name = %s", terminal.DisplayName)
	}

	if _, found := directory.Get("Atlantis"); found {
		t.Error("Get(Atlantis) should not be found")
	}
}

func TestResolveTerminalID(t *testing.T) {
	tests := []struct {
		name       string
		terminal   string
		expectedID int
		expectErr  bool
	}{
		{"known terminal", "Southworth", 20, false},
		{"case insensitive", "bainbridge island", 3, false},
		{"surrounding whitespace", " Seattle ", 7, false},
		{"unknown terminal", "Atlantis", 0, true},
		{"no fuzzy matching", "Seatle", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ResolveTerminalID(tt.terminal)

			if tt.expectErr {
				if !errors.Is(err, ErrUnknownTerminal) {
					t.Errorf("got %v, want ErrUnknownTerminal", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ResolveTerminalID(%q) returned error: %v", tt.terminal, err)
			}
			if id != tt.expectedID {
				t.Errorf("ResolveTerminalID(%q) = %d, want %d", tt.terminal, id, tt.expectedID)
			}
		})
	}
}
