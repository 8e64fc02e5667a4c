// Package tomorrow implements the client for the Tomorrow.io timelines API.
package tomorrow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/location"
	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

const moduleName = "fetcher"

// Client issues timeline requests against the provider.
type Client struct {
	endpoint string
	apiKey   string
	fields   []string
	units    string
	timestep string
	extra    map[string]string
	client   *http.Client
}

// NewClient builds a Client from the weather configuration. The API key is
// required.
func NewClient(cfg config.WeatherConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, exception.Configuration(moduleName, "TOMORROW_API_KEY is not set", nil)
	}
	if cfg.APIEndpoint == "" {
		return nil, exception.Configuration(moduleName, "weather API endpoint is not configured", nil)
	}
	return &Client{
		endpoint: cfg.APIEndpoint,
		apiKey:   cfg.APIKey,
		fields:   cfg.Fields,
		units:    cfg.Units,
		timestep: cfg.Timestep,
		extra:    cfg.ExtraParams,
		client:   &http.Client{Timeout: cfg.HTTPTimeout()},
	}, nil
}

// Fetch retrieves the intervals for every location, one request per location
// in list order. A failure on any location aborts the whole fetch.
func (c *Client) Fetch(ctx context.Context, locations []location.Location, window Window) ([]Observation, error) {
	var observations []Observation
	for _, loc := range locations {
		intervals, err := c.fetchOne(ctx, loc, window)
		if err != nil {
			return nil, err
		}
		for _, iv := range intervals {
			observations = append(observations, Observation{Interval: iv, Location: loc})
		}
	}
	return observations, nil
}

func (c *Client) fetchOne(ctx context.Context, loc location.Location, window Window) ([]Interval, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, exception.Upstream(moduleName, "failed to create API request", err)
	}
	req.Header.Set("accept", "application/json")

	query := url.Values{}
	query.Set("apikey", c.apiKey)
	query.Set("fields", strings.Join(c.fields, ","))
	query.Set("units", c.units)
	query.Set("timesteps", c.timestep)
	query.Set("location", loc.Query())
	query.Set("startTime", window.Start)
	query.Set("endTime", window.End)
	for k, v := range c.extra {
		query.Set(k, v)
	}
	req.URL.RawQuery = query.Encode()

	logger.Debugf("Fetching timelines for location %q, window [%s, %s].", loc.Query(), window.Start, window.End)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, exception.Upstream(moduleName, "API call failed for location "+loc.Query(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, exception.Newf(exception.KindUpstream, moduleName,
			"API returned status %d for location %s", resp.StatusCode, loc.Query(),
			errors.New(strings.TrimSpace(string(body))))
	}

	var parsed timelinesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, exception.Schema(moduleName, "failed to decode API response", err)
	}

	intervals, err := parsed.intervals()
	if err != nil {
		return nil, err
	}
	logger.Debugf("Fetched %d intervals for location %q.", len(intervals), loc.Query())
	return intervals, nil
}
