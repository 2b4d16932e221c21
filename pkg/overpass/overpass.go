// Package overpass is a minimal client for the Overpass API interpreter
// endpoint, scoped to radius searches for venue nodes.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/spinplate/internal/resilience"
)

// DefaultEndpoints are the public interpreter mirrors, tried in order.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

// Element is a single OSM object in an interpreter response.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *Center           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Center is the representative point the API attaches to ways and relations.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinates returns the element position. Nodes carry lat/lon directly;
// other element types fall back to their center when present.
func (e Element) Coordinates() (lat, lon float64, ok bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}

// Response is the decoded interpreter output.
type Response struct {
	Version   float64   `json:"version"`
	Generator string    `json:"generator"`
	Elements  []Element `json:"elements"`
}

// Client runs queries against a single interpreter endpoint per call.
type Client interface {
	// Interpret posts the query to endpoint and decodes the JSON response.
	Interpret(ctx context.Context, endpoint string, q Query) (*Response, error)
}

// StatusError reports a non-2xx response from an endpoint.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("overpass: %s returned status %d", e.Endpoint, e.StatusCode)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request client timeout. It should be shorter than
// the server-side timeout carried in the query.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent to every endpoint.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithRateLimit sets a per-endpoint request rate. The public mirrors ask
// clients to stay around one request per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *client) {
		c.rps = rate.Limit(rps)
		c.burst = burst
	}
}

type client struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string

	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates an Overpass client.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{},
		timeout:    20 * time.Second,
		userAgent:  "spinplate/1.0",
		rps:        rate.Limit(1),
		burst:      2,
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) limiter(endpoint string) *rate.Limiter {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Host
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(c.rps, c.burst)
		c.limiters[host] = lim
	}
	return lim
}

// Interpret posts the form-encoded query and decodes the response. Non-2xx
// statuses are returned as *StatusError, wrapped as transient when the status
// is one a different mirror might not share.
func (c *client) Interpret(ctx context.Context, endpoint string, q Query) (*Response, error) {
	if err := c.limiter(endpoint).Wait(ctx); err != nil {
		return nil, eris.Wrapf(err, "overpass: rate limit %s", endpoint)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	form := url.Values{"data": {q.String()}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrapf(err, "overpass: build request for %s", endpoint)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "overpass: request %s", endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		serr := &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(serr, resp.StatusCode)
		}
		return nil, serr
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrapf(err, "overpass: decode response from %s", endpoint)
	}
	return &out, nil
}
