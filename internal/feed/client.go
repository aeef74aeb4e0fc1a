package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oselight/stripdeck/internal/strips"
	"github.com/oselight/stripdeck/pkg/logger"
)

// Client fetches live aircraft positions from the configured feed
type Client struct {
	httpClient     *http.Client
	sourceURL      string
	stationLat     float64
	stationLon     float64
	searchRadiusNM float64
	logger         *logger.Logger
}

// NewClient creates a new feed client
func NewClient(sourceURL string, stationLat, stationLon, searchRadiusNM float64, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		sourceURL:      sourceURL,
		stationLat:     stationLat,
		stationLon:     stationLon,
		searchRadiusNM: searchRadiusNM,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("feed-client"),
	}
}

// Fetch retrieves the current aircraft set around the station and converts
// it to flight strips. Targets without a callsign are dropped.
func (c *Client) Fetch(ctx context.Context) ([]strips.FlightStrip, error) {
	url := fmt.Sprintf(c.sourceURL, c.stationLat, c.stationLon, c.searchRadiusNM)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching position feed", logger.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload feedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	now := time.Now().UTC()
	result := make([]strips.FlightStrip, 0, len(payload.AC))
	for _, target := range payload.AC {
		callsign := strings.ToUpper(strings.TrimSpace(target.Flight))
		if callsign == "" {
			continue
		}
		result = append(result, strips.FlightStrip{
			Callsign:     callsign,
			AircraftType: target.Type,
			Altitude:     target.AltBaro.Float64(),
			Speed:        target.GS.Float64(),
			VerticalRate: target.BaroRate.Float64(),
			Squawk:       target.Squawk,
			UpdatedAt:    now,
		})
	}

	c.logger.Debug("Fetched position feed",
		logger.Int("targets", len(payload.AC)),
		logger.Int("strips", len(result)))

	return result, nil
}
