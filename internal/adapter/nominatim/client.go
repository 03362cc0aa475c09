// Package nominatim implements domain.Geocoder against the public Nominatim
// search API. Nominatim's usage policy requires an identifying User-Agent and
// at most one request per second; the client sends the former and the
// geocache resolver enforces the latter.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
)

// Client queries Nominatim for the representative point of a postal code.
// Queries carry a fixed locality qualifier ("75201, Dallas, Texas, USA") so
// short numeric codes resolve inside the target municipality.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	qualifier  string
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. The user agent is mandatory per the
// API's usage policy; an empty one is a setup error.
func NewClient(baseURL, userAgent, qualifier string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if userAgent == "" {
		return nil, errors.New("nominatim: user agent is required")
	}
	if baseURL == "" {
		return nil, errors.New("nominatim: base URL is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		qualifier:  qualifier,
		logger:     logger,
	}, nil
}

// Geocode resolves a postal code to coordinates. An empty result array is a
// valid no-match response, reported as (zero, false, nil); the caller decides
// what a miss means.
func (c *Client) Geocode(ctx context.Context, postalCode string) (domain.Coordinate, bool, error) {
	query := postalCode
	if c.qualifier != "" {
		query = fmt.Sprintf("%s, %s", postalCode, c.qualifier)
	}

	params := url.Values{
		"q":            {query},
		"format":       {"json"},
		"limit":        {"1"},
		"countrycodes": {"us"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Coordinate{}, false, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 {
		return domain.Coordinate{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("parse lat %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("parse lon %q: %w", places[0].Lon, err)
	}

	return domain.Coordinate{Lat: lat, Lon: lon}, true, nil
}

// Nominatim API response types. Coordinates arrive as strings.

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
