// Package pricefeed talks to the external price provider. It only produces
// raw price records; turning those into stored observations is the price
// service's job.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Listing is one currently quoted option series on the provider.
type Listing struct {
	FundName          string  `json:"fundName"`
	ExerciseReference float64 `json:"exerciseReference"`
	PriceDate         string  `json:"priceDate"`
	Value             float64 `json:"value"`
}

// HistoryPoint is one historical quote for an option series.
type HistoryPoint struct {
	PriceDate string  `json:"priceDate"`
	Value     float64 `json:"value"`
}

// Client is the contract the price service consumes. Implementations fetch
// data only; they never touch the database.
type Client interface {
	// Listings returns every option series the provider currently quotes.
	Listings(ctx context.Context) ([]Listing, error)

	// History returns all historical quotes for one exercise reference,
	// oldest first.
	History(ctx context.Context, exerciseReference float64) ([]HistoryPoint, error)
}

// HTTPClient fetches quotes from the provider's JSON API. Requests are rate
// limited client-side; the provider throttles aggressively and a burst of
// per-grant history fetches would otherwise get the token banned.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient creates a provider client. The token may be empty for
// providers that serve anonymous quotes.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 3),
	}
}

// Listings implements Client.
func (c *HTTPClient) Listings(ctx context.Context) ([]Listing, error) {
	var listings []Listing
	if err := c.getJSON(ctx, "/v1/listings", nil, &listings); err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return listings, nil
}

// History implements Client.
func (c *HTTPClient) History(ctx context.Context, exerciseReference float64) ([]HistoryPoint, error) {
	params := url.Values{}
	params.Set("exerciseReference", fmt.Sprintf("%g", exerciseReference))

	var points []HistoryPoint
	if err := c.getJSON(ctx, "/v1/history", params, &points); err != nil {
		return nil, fmt.Errorf("failed to fetch history for reference %g: %w", exerciseReference, err)
	}
	return points, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
