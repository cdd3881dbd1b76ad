package openmeteo

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

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
)

// hourlyVariables is the fixed variable set requested from the archive API,
// in column order.
const hourlyVariables = "temperature_2m,relative_humidity_2m,wind_speed_10m"

// timestampLayout is the archive API's hourly timestamp format. Timestamps
// are naive but represent UTC instants because every request pins
// timezone=UTC.
const timestampLayout = "2006-01-02T15:04"

// Client fetches historical hourly weather series from the Open-Meteo
// archive API. One request covers one outlet over the full date range.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *slog.Logger
}

// NewClient creates an archive API client. timeout bounds a single request;
// retry governs transient-failure behavior across attempts.
func NewClient(baseURL string, timeout time.Duration, retry RetryPolicy, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry:  retry,
		logger: logger,
	}
}

// FetchLocation retrieves the hourly series for one outlet over the closed
// [startDate, endDate] range (ISO dates) and normalizes it into Reading rows.
// Transient failures (timeout, connection error, 5xx) are retried per the
// client's policy; 4xx responses and malformed payloads fail immediately.
func (c *Client) FetchLocation(ctx context.Context, outlet domain.Outlet, startDate, endDate string) ([]domain.Reading, error) {
	if !outlet.HasValidCoordinates() {
		return nil, fmt.Errorf("outlet %d has no valid coordinates", outlet.ID)
	}

	params := url.Values{
		"latitude":   {strconv.FormatFloat(*outlet.Latitude, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(*outlet.Longitude, 'f', -1, 64)},
		"start_date": {startDate},
		"end_date":   {endDate},
		"hourly":     {hourlyVariables},
		"timezone":   {"UTC"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	var payload response
	err := c.retry.Do(ctx, func() error {
		var attemptErr error
		payload, attemptErr = c.doRequest(ctx, fullURL)
		return attemptErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch outlet %d: %w", outlet.ID, err)
	}

	readings, err := zipHourly(outlet.ID, payload.Hourly)
	if err != nil {
		return nil, fmt.Errorf("fetch outlet %d: %w", outlet.ID, err)
	}

	c.logger.Debug("fetched hourly series",
		"outlet_id", outlet.ID,
		"rows", len(readings),
		"start_date", startDate,
		"end_date", endDate,
	)
	return readings, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return response{}, Permanent(fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection errors are transient.
		return response{}, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return response{}, fmt.Errorf("archive API error: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return response{}, Permanent(fmt.Errorf("archive API error: status %d: %s", resp.StatusCode, body))
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return response{}, Permanent(fmt.Errorf("decode response: %w", err))
	}
	return payload, nil
}

// zipHourly converts the API's parallel arrays into uniform per-timestamp
// rows. All arrays must have the same length as the timestamp array.
func zipHourly(outletID int64, h hourly) ([]domain.Reading, error) {
	n := len(h.Time)
	if len(h.Temperature) != n || len(h.RelativeHumidity) != n || len(h.WindSpeed) != n {
		return nil, fmt.Errorf(
			"parallel array length mismatch: time=%d temperature_2m=%d relative_humidity_2m=%d wind_speed_10m=%d",
			n, len(h.Temperature), len(h.RelativeHumidity), len(h.WindSpeed),
		)
	}

	readings := make([]domain.Reading, 0, n)
	for i := 0; i < n; i++ {
		ts, err := time.ParseInLocation(timestampLayout, h.Time[i], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", h.Time[i], err)
		}
		readings = append(readings, domain.Reading{
			OutletID:         outletID,
			Datetime:         ts,
			Temperature:      h.Temperature[i],
			RelativeHumidity: h.RelativeHumidity[i],
			WindSpeed:        h.WindSpeed[i],
		})
	}
	return readings, nil
}

// Archive API response types.

type response struct {
	Hourly hourly `json:"hourly"`
}

type hourly struct {
	Time             []string   `json:"time"`
	Temperature      []*float64 `json:"temperature_2m"`
	RelativeHumidity []*float64 `json:"relative_humidity_2m"`
	WindSpeed        []*float64 `json:"wind_speed_10m"`
}
