package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/pkg/geospatial"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Options configures the place-search client.
type Options struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	Limit        int
	CountryCodes []string
	// ViewboxRadius biases results toward the search center, in meters.
	ViewboxRadius float64
}

// Client implements ports.PlaceSearchProvider against a
// Nominatim-compatible /search endpoint.
type Client struct {
	httpClient *http.Client
	opts       Options
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("place search: status %d: %s", e.Code, e.Body)
}

// coordinate accepts Nominatim's string-encoded numbers as well as plain ones.
// Anything unparseable decodes as NaN.
type coordinate float64

func (c *coordinate) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			*c = coordinate(math.NaN())
			return nil
		}
		*c = coordinate(value)
		return nil
	}

	var value float64
	if err := json.Unmarshal(data, &value); err == nil {
		*c = coordinate(value)
		return nil
	}
	*c = coordinate(math.NaN())
	return nil
}

type searchResult struct {
	PlaceID     int64      `json:"place_id"`
	OSMType     string     `json:"osm_type"`
	OSMID       int64      `json:"osm_id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Lat         coordinate `json:"lat"`
	Lon         coordinate `json:"lon"`
}

// New creates a place-search client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.UserAgent == "" {
		opts.UserAgent = "gigmap/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.ViewboxRadius <= 0 {
		opts.ViewboxRadius = 25000
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
	}
}

// SearchExternal returns places matching query, biased toward center when it
// is a valid coordinate.
func (c *Client) SearchExternal(ctx context.Context, query string, center domain.Coordinate) ([]domain.ExternalCandidate, error) {
	endpoint := c.opts.BaseURL + "/search?" + c.params(query, center).Encode()

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var payload []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode place search response: %w", err)
	}

	out := make([]domain.ExternalCandidate, 0, len(payload))
	for _, r := range payload {
		out = append(out, r.candidate())
	}
	return out, nil
}

func (c *Client) params(query string, center domain.Coordinate) url.Values {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", strconv.Itoa(c.opts.Limit))
	if len(c.opts.CountryCodes) > 0 {
		q.Set("countrycodes", strings.Join(c.opts.CountryCodes, ","))
	}
	if center.Valid() {
		b := geospatial.BoundingBox(center, c.opts.ViewboxRadius)
		// viewbox is lon1,lat1,lon2,lat2
		q.Set("viewbox", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLon, b.MaxLat, b.MaxLon, b.MinLat))
	}
	return q
}

func (r searchResult) candidate() domain.ExternalCandidate {
	name := r.Name
	address := r.DisplayName
	if name == "" {
		// display_name leads with the place name
		name, _, _ = strings.Cut(r.DisplayName, ",")
		name = strings.TrimSpace(name)
	}

	id := strconv.FormatInt(r.PlaceID, 10)
	if r.OSMType != "" && r.OSMID != 0 {
		id = r.OSMType + "/" + strconv.FormatInt(r.OSMID, 10)
	}

	coord := domain.Coordinate{Lat: float64(r.Lat), Lon: float64(r.Lon)}
	if !coord.Valid() {
		// NaN does not survive JSON encoding; use the placeholder instead
		coord = domain.Coordinate{}
	}

	return domain.ExternalCandidate{
		ExternalID: id,
		Name:       name,
		Address:    address,
		Coordinate: coord,
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries network errors and 429/5xx responses with exponential
// backoff while respecting context cancellation.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxAttempts = 3
	backoff := 100 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) && ctx.Err() == nil {
			retry = true
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}
