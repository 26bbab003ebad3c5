package wsf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kitsapcommute/kitsapcommute/pkg/transit"
)

const fareLineItemsEndpoint = "https://www.wsdot.wa.gov/ferries/api/fares/rest"

var ErrFareNotFound = errors.New("no matching fare found")

// Client talks to the WSDOT ferries fares REST API.
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

type fareLineItem struct {
	FareLineItem string  `json:"FareLineItem"`
	Amount       float64 `json:"Amount"`
}

// Fare returns the applicable one-way fare for a terminal pair on a date.
// Row selection follows the published fare line item descriptions: an exact
// vehicle class match first, then the standard vehicle and driver row as a
// fallback, then ErrFareNotFound.
func (c *Client) Fare(ctx context.Context, date time.Time, departingTerminalID int, arrivingTerminalID int, vehicleClass transit.VehicleClass) (*transit.FareQuote, error) {
	endpoint := fmt.Sprintf("%s/farelineitems/%s/%d/%d/false",
		c.endpoint(), date.Format("2006-01-02"), departingTerminalID, arrivingTerminalID)

	query := url.Values{}
	query.Set("apiaccesscode", c.APIKey)

	var lineItems []fareLineItem
	if err := c.getJSON(ctx, endpoint, query, &lineItems); err != nil {
		return nil, err
	}

	selected, found := selectLineItem(lineItems, vehicleClass)
	if !found {
		return nil, fmt.Errorf("%w: terminals %d to %d on %s", ErrFareNotFound,
			departingTerminalID, arrivingTerminalID, date.Format("2006-01-02"))
	}

	return &transit.FareQuote{
		Amount:       selected.Amount,
		FareName:     selected.FareLineItem,
		VehicleClass: vehicleClass,
	}, nil
}

func selectLineItem(lineItems []fareLineItem, vehicleClass transit.VehicleClass) (fareLineItem, bool) {
	for _, item := range lineItems {
		description := strings.ToLower(item.FareLineItem)

		switch vehicleClass {
		case transit.VehicleClassWalkOn:
			if strings.Contains(description, "passenger") ||
				(strings.Contains(description, "adult") && !strings.Contains(description, "vehicle")) {
				return item, true
			}
		case transit.VehicleClassMotorcycle:
			if strings.Contains(description, "motorcycle") {
				return item, true
			}
		case transit.VehicleClassSmall:
			if strings.Contains(description, "under 14") || strings.Contains(description, "less than 168") {
				return item, true
			}
		case transit.VehicleClassStandard:
			if strings.Contains(description, "under 22") || strings.Contains(description, "standard veh") {
				return item, true
			}
		}
	}

	// Fall back to any standard vehicle and driver row rather than silently
	// pricing the crossing at zero.
	for _, item := range lineItems {
		description := strings.ToLower(item.FareLineItem)

		if (strings.Contains(description, "under 22") || strings.Contains(description, "standard veh")) &&
			strings.Contains(description, "driver") {
			return item, true
		}
	}

	return fareLineItem{}, false
}

func (c *Client) endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}

	return fareLineItemsEndpoint
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, target any) error {
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

		// A 400 means no direct route exists between the terminals, which is
		// not transient.
		if response.StatusCode == http.StatusBadRequest {
			return backoff.Permanent(fmt.Errorf("%w: no direct route between terminals", ErrFareNotFound))
		}

		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("wsdot fares api returned status %d", response.StatusCode)
		}

		if err := json.NewDecoder(response.Body).Decode(target); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode wsdot fares response: %w", err))
		}

		return nil
	}, retryPolicy)
}
