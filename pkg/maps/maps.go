package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kitsapcommute/kitsapcommute/pkg/geo"
)

const (
	geocodeEndpoint    = "https://maps.googleapis.com/maps/api/geocode/json"
	directionsEndpoint = "https://maps.googleapis.com/maps/api/directions/json"

	metersPerMile = 1609.344

	// MileageRate is the per-mile driving cost used for all mileage pricing.
	MileageRate = 0.77
)

var ErrAmbiguousAddress = errors.New("could not geocode address")

// Client talks to the Google Maps geocoding and directions APIs and returns
// validated typed records. Raw response shapes never leave this package.
type Client struct {
	APIKey string

	HTTPClient *http.Client
	BaseURL    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		APIKey: apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// DriveEstimate is a validated drive time and distance for one leg.
type DriveEstimate struct {
	Duration time.Duration `json:"duration" groups:"basic"`

	DistanceMeters int     `json:"distance_meters" groups:"basic"`
	DistanceMiles  float64 `json:"distance_miles" groups:"basic"`

	MileageCost float64 `json:"mileage_cost" groups:"basic"`

	InTraffic bool `json:"in_traffic" groups:"basic"`
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Latitude  float64 `json:"lat"`
				Longitude float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Legs []struct {
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
			DurationInTraffic *struct {
				Value int `json:"value"`
			} `json:"duration_in_traffic"`
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
}

// Geocode resolves a street address to coordinates. Empty or ambiguous
// results return ErrAmbiguousAddress.
func (c *Client) Geocode(ctx context.Context, address string) (geo.Coordinates, error) {
	query := url.Values{}
	query.Set("address", address)
	query.Set("key", c.APIKey)

	var response geocodeResponse
	if err := c.getJSON(ctx, c.endpoint(geocodeEndpoint), query, &response); err != nil {
		return geo.Coordinates{}, err
	}

	if response.Status != "OK" || len(response.Results) == 0 {
		return geo.Coordinates{}, fmt.Errorf("%w: %s", ErrAmbiguousAddress, address)
	}

	location := response.Results[0].Geometry.Location

	return geo.Coordinates{
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
	}, nil
}

// DriveTimeOptions anchors the estimate to a desired departure or arrival
// time. At most one should be set; arrival wins if both are.
type DriveTimeOptions struct {
	DepartureTime time.Time
	ArrivalTime   time.Time
}

// DriveTime returns the driving duration and distance between two addresses.
func (c *Client) DriveTime(ctx context.Context, origin string, destination string, options DriveTimeOptions) (*DriveEstimate, error) {
	query := url.Values{}
	query.Set("origin", origin)
	query.Set("destination", destination)
	query.Set("key", c.APIKey)

	if !options.ArrivalTime.IsZero() {
		query.Set("arrival_time", strconv.FormatInt(options.ArrivalTime.Unix(), 10))
	} else if !options.DepartureTime.IsZero() {
		query.Set("departure_time", strconv.FormatInt(options.DepartureTime.Unix(), 10))
	}

	var response directionsResponse
	if err := c.getJSON(ctx, c.endpoint(directionsEndpoint), query, &response); err != nil {
		return nil, err
	}

	if response.Status != "OK" || len(response.Routes) == 0 || len(response.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("directions lookup failed for %s to %s: status %s", origin, destination, response.Status)
	}

	leg := response.Routes[0].Legs[0]

	durationSeconds := leg.Duration.Value
	inTraffic := false
	if leg.DurationInTraffic != nil && leg.DurationInTraffic.Value > durationSeconds {
		durationSeconds = leg.DurationInTraffic.Value
		inTraffic = true
	}

	distanceMiles := float64(leg.Distance.Value) / metersPerMile

	return &DriveEstimate{
		Duration:       time.Duration(durationSeconds) * time.Second,
		DistanceMeters: leg.Distance.Value,
		DistanceMiles:  distanceMiles,
		MileageCost:    distanceMiles * MileageRate,
		InTraffic:      inTraffic,
	}, nil
}

func (c *Client) endpoint(liveEndpoint string) string {
	if c.BaseURL == "" {
		return liveEndpoint
	}

	parsed, err := url.Parse(liveEndpoint)
	if err != nil {
		return liveEndpoint
	}

	return c.BaseURL + parsed.Path
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, target any) error {
	// Pure lookups are idempotent so a single retry on transient failure is
	// safe.
	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)

	return backoff.Retry(func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		response, err := c.HTTPClient.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("maps api returned status %d", response.StatusCode)
		}

		if err := json.NewDecoder(response.Body).Decode(target); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode maps api response: %w", err))
		}

		return nil
	}, retryPolicy)
}
