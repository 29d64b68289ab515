package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

//go:generate mockgen -destination=mocks/mock_nasa_client.go -package=mocks neowatch/internal/clients NASAClient

const (
	SourceNEOFeed   = "neo_feed"
	SourceCometFeed = "comet_feed"

	feedDateLayout = "2006-01-02"
	userAgent      = "NEOWatch/1.0"
)

// ErrFeedNotConfigured is returned by FetchComets when no comet feed URL is set.
var ErrFeedNotConfigured = errors.New("feed url not configured")

// FetchError describes a failed call to one of the upstream feeds.
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream returned status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type NEOFeedResponse struct {
	ElementCount     int                    `json:"element_count"`
	NearEarthObjects map[string][]NEOObject `json:"near_earth_objects"`
}

type NEOObject struct {
	ID                             string            `json:"id"`
	NEOReferenceID                 string            `json:"neo_reference_id"`
	Name                           string            `json:"name"`
	NASAJPLURL                     string            `json:"nasa_jpl_url"`
	AbsoluteMagnitudeH             *float64          `json:"absolute_magnitude_h"`
	EstimatedDiameter              EstimatedDiameter `json:"estimated_diameter"`
	IsPotentiallyHazardousAsteroid bool              `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData              []CloseApproach   `json:"close_approach_data"`
	IsSentryObject                 bool              `json:"is_sentry_object"`
	OrbitalData                    json.RawMessage   `json:"orbital_data,omitempty"`
}

type EstimatedDiameter struct {
	Kilometers struct {
		EstimatedDiameterMin float64 `json:"estimated_diameter_min"`
		EstimatedDiameterMax float64 `json:"estimated_diameter_max"`
	} `json:"kilometers"`
}

// CloseApproach keeps the numeric fields as strings, the way the feed sends them.
type CloseApproach struct {
	CloseApproachDate      string `json:"close_approach_date"`
	CloseApproachDateFull  string `json:"close_approach_date_full"`
	EpochDateCloseApproach *int64 `json:"epoch_date_close_approach"`
	RelativeVelocity       struct {
		KilometersPerSecond string `json:"kilometers_per_second"`
	} `json:"relative_velocity"`
	MissDistance struct {
		Astronomical string `json:"astronomical"`
		Kilometers   string `json:"kilometers"`
	} `json:"miss_distance"`
	OrbitingBody string `json:"orbiting_body"`
}

type CometEntry struct {
	Designation     string          `json:"designation"`
	Name            *string         `json:"name"`
	OrbitalElements json.RawMessage `json:"orbital_elements,omitempty"`
	DiscoveryDate   *string         `json:"discovery_date"`
}

type NASAClient interface {
	// FetchNEOFeed returns the decoded feed together with the raw body.
	FetchNEOFeed(ctx context.Context, start, end time.Time) (*NEOFeedResponse, []byte, error)
	FetchComets(ctx context.Context) ([]CometEntry, []byte, error)
}

type nasaClient struct {
	apiKey    string
	neoURL    string
	cometsURL string
	client    *http.Client
}

type NASAConfig struct {
	APIKey    string
	NEOURL    string
	CometsURL string
	Timeout   time.Duration
}

func NewNASAClient(config NASAConfig) NASAClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return NewNASAClientWithHTTP(config, &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:       10,
			IdleConnTimeout:    30 * time.Second,
			DisableCompression: false,
		},
	})
}

// NewNASAClientWithHTTP uses the given http.Client as is.
func NewNASAClientWithHTTP(config NASAConfig, httpClient *http.Client) NASAClient {
	return &nasaClient{
		apiKey:    config.APIKey,
		neoURL:    config.NEOURL,
		cometsURL: config.CometsURL,
		client:    httpClient,
	}
}

func (c *nasaClient) FetchNEOFeed(ctx context.Context, start, end time.Time) (*NEOFeedResponse, []byte, error) {
	params := url.Values{}
	params.Add("start_date", start.UTC().Format(feedDateLayout))
	params.Add("end_date", end.UTC().Format(feedDateLayout))
	if c.apiKey != "" {
		params.Add("api_key", c.apiKey)
	}

	body, err := c.get(ctx, SourceNEOFeed, c.neoURL+"?"+params.Encode())
	if err != nil {
		return nil, nil, err
	}

	var feed NEOFeedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, nil, &FetchError{Source: SourceNEOFeed, Err: fmt.Errorf("decode JSON: %w", err)}
	}
	if feed.NearEarthObjects == nil {
		feed.NearEarthObjects = map[string][]NEOObject{}
	}

	return &feed, body, nil
}

func (c *nasaClient) FetchComets(ctx context.Context) ([]CometEntry, []byte, error) {
	if c.cometsURL == "" {
		return nil, nil, ErrFeedNotConfigured
	}

	body, err := c.get(ctx, SourceCometFeed, c.cometsURL)
	if err != nil {
		return nil, nil, err
	}

	comets, err := decodeComets(body)
	if err != nil {
		return nil, nil, &FetchError{Source: SourceCometFeed, Err: fmt.Errorf("decode JSON: %w", err)}
	}

	return comets, body, nil
}

// decodeComets принимает и {"data": [...]}, и просто массив
func decodeComets(body []byte) ([]CometEntry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var comets []CometEntry
		if err := json.Unmarshal(trimmed, &comets); err != nil {
			return nil, err
		}
		return comets, nil
	}

	var wrapped struct {
		Data []CometEntry `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Data, nil
}

func (c *nasaClient) get(ctx context.Context, source, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Source: source, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error содержит полный URL вместе с api_key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, &FetchError{Source: source, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Source: source, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: source, Err: fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}
