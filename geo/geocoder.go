package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"greenbridge/models"
	"greenbridge/utils"
)

const userAgent = "GreenBridge Rice Platform"

// Geocoder resolves free-text addresses to coordinates through a
// Nominatim-compatible search endpoint, restricted to India.
type Geocoder struct {
	baseURL    string
	httpClient *http.Client
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// NewGeocoder creates a Geocoder against baseURL (no trailing /search).
func NewGeocoder(baseURL string, maxRetries int, logger *utils.Logger) *Geocoder {
	return &Geocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   time.Second,
			MaxDelay:    4 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the first match for address. A blank address is an
// InvalidArgument, no match is NotFound, transport and 5xx failures are
// UpstreamUnavailable once retries are spent.
func (g *Geocoder) Geocode(ctx context.Context, address string) (Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Point{}, fmt.Errorf("geocode: empty address: %w", models.ErrInvalidArgument)
	}

	var results []searchResult
	err := g.retry.Do(ctx, "geocode", func(ctx context.Context) error {
		var err error
		results, err = g.search(ctx, address)
		return err
	})
	if err != nil {
		return Point{}, fmt.Errorf("geocode %q: %w: %w", address, models.ErrUpstreamUnavailable, err)
	}
	if len(results) == 0 {
		return Point{}, fmt.Errorf("geocode %q: %w", address, models.ErrNotFound)
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return Point{}, fmt.Errorf("geocode %q: bad coordinates %q,%q: %w",
			address, results[0].Lat, results[0].Lon, models.ErrUpstreamUnavailable)
	}

	p := Point{Lat: lat, Lon: lon}
	g.logger.Debug("[geocoder] %s -> %.4f,%.4f (%s)", address, lat, lon, results[0].DisplayName)
	return p, p.Validate()
}

func (g *Geocoder) search(ctx context.Context, address string) ([]searchResult, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("countrycodes", "in")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %v: %w", err, utils.ErrPermanent)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, utils.ErrPermanent)
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decode response: %v: %w", err, utils.ErrPermanent)
	}
	return results, nil
}
