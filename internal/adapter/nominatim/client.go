package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vigiapp/vigia/internal/domain"
)

// DefaultBaseURL is the public Nominatim instance. Deployments with their
// own instance override it through config.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client implements geocode.Provider using the Nominatim search API.
// Nominatim's usage policy caps clients at one request per second; the
// throttle lives in the geocode.Gate the caller wraps around this client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. The user agent is mandatory per the
// provider's usage policy.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Resolve converts a free-text place query to coordinates. A nil result
// with nil error means the provider had no match for the query.
func (c *Client) Resolve(ctx context.Context, query string) (*domain.Geo, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}
	fullURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return nil, fmt.Errorf("malformed coordinates in response: lat=%q lon=%q", places[0].Lat, places[0].Lon)
	}

	return &domain.Geo{Lat: lat, Lon: lon}, nil
}

// Nominatim API response types. Coordinates arrive as strings.

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}
