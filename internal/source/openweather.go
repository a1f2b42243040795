package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sia112904/etl-weather-pipeline/internal/models"
)

// OpenWeatherClient fetches current-weather observations from OpenWeatherMap.
type OpenWeatherClient struct {
	baseURL        string
	apiKey         string
	units          string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// terminalError marks HTTP failures that retrying cannot fix.
type terminalError struct {
	msg string
}

func (e *terminalError) Error() string { return e.msg }

// NewOpenWeatherClient creates a new OpenWeatherMap client.
func NewOpenWeatherClient(baseURL, apiKey, units string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *OpenWeatherClient {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = 500 * time.Millisecond
	}
	return &OpenWeatherClient{
		baseURL:        baseURL,
		apiKey:         apiKey,
		units:          units,
		httpClient:     &http.Client{Timeout: timeout},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// currentWeather mirrors the fields of the OpenWeatherMap current-weather
// payload that the pipeline consumes. Pointers distinguish missing fields
// from zero values so the raw reading can carry them as empty text.
type currentWeather struct {
	Name string `json:"name"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Dt *int64 `json:"dt"`
}

// Fetch retrieves one raw reading for a city. The reading is raw text only;
// no normalization happens here.
func (c *OpenWeatherClient) Fetch(ctx context.Context, city string) (models.RawReading, error) {
	if c.apiKey == "" {
		return models.RawReading{}, fmt.Errorf("no API key configured: set source.api_key or OPENWEATHER_API_KEY")
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", c.units)
	endpoint := fmt.Sprintf("%s/weather?%s", c.baseURL, params.Encode())

	body, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return models.RawReading{}, err
	}

	var payload currentWeather
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.RawReading{}, fmt.Errorf("failed to decode weather response: %w", err)
	}

	station := payload.Name
	if station == "" {
		station = city
	}

	raw := models.RawReading{
		Station:   station,
		FetchedAt: strconv.FormatInt(time.Now().Unix(), 10),
	}
	if payload.Main.Temp != nil {
		raw.Temperature = strconv.FormatFloat(*payload.Main.Temp, 'f', -1, 64)
	}
	if payload.Main.Humidity != nil {
		raw.Humidity = strconv.FormatFloat(*payload.Main.Humidity, 'f', -1, 64)
	}
	if payload.Dt != nil {
		raw.Timestamp = strconv.FormatInt(*payload.Dt, 10)
	}
	return raw, nil
}

// doRequest performs a GET with bounded retries and exponential backoff.
// Unauthorized and not-found responses are terminal and are not retried.
func (c *OpenWeatherClient) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelayBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.attempt(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		if _, terminal := err.(*terminalError); terminal {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *OpenWeatherClient) attempt(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &terminalError{msg: "unauthorized: check your API key"}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &terminalError{msg: "city not found"}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
