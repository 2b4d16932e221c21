package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spinplate/internal/discovery"
	"github.com/sells-group/spinplate/internal/model"
	"github.com/sells-group/spinplate/internal/resilience"
	"github.com/sells-group/spinplate/internal/selection"
	"github.com/sells-group/spinplate/internal/service"
	"github.com/sells-group/spinplate/internal/store"
)

type discoverFunc func(ctx context.Context, lat, lon, maxRadius float64) (*discovery.Result, error)

func (f discoverFunc) Discover(ctx context.Context, lat, lon, maxRadius float64) (*discovery.Result, error) {
	return f(ctx, lat, lon, maxRadius)
}

func cand(id string, dt model.DiningType, miles float64) model.Candidate {
	return model.Candidate{
		ID: id, Name: "Venue " + id, DiningType: dt, DistanceMiles: &miles,
		Latitude: 30.27, Longitude: -97.74, Address: "1 Main St, Austin",
	}
}

var fixture = []model.Candidate{
	cand("osm-1", model.DiningDineIn, 1),
	cand("osm-2", model.DiningBar, 3),
	cand("osm-3", model.DiningBoth, 5),
	cand("osm-4", model.DiningTakeout, 7),
}

func fixtureDiscoverer() discoverFunc {
	return func(context.Context, float64, float64, float64) (*discovery.Result, error) {
		return &discovery.Result{Candidates: fixture, RadiusMiles: 10, Endpoint: "https://overpass.test"}, nil
	}
}

func newTestServer(t *testing.T, d discovery.Discoverer, opts ...Option) (*httptest.Server, *service.Service) {
	t.Helper()
	svc := service.New(d, store.NewMemory(),
		service.WithSelection(selection.New(selection.WithRand(rand.New(rand.NewPCG(3, 4))))))
	srv := httptest.NewServer(NewHandler(svc, opts...).Router())
	t.Cleanup(srv.Close)
	return srv, svc
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func discoverFixture(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/discover", `{"latitude":30.27,"longitude":-97.74}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer())
	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_EndpointStates(t *testing.T) {
	breakers := resilience.NewEndpointBreakers(resilience.DefaultCircuitBreakerConfig())
	breakers.For("https://overpass.test")
	srv, _ := newTestServer(t, fixtureDiscoverer(), WithBreakers(breakers))

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Endpoints []resilience.EndpointState `json:"endpoints"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Endpoints, 1)
	assert.Equal(t, "closed", body.Endpoints[0].State)
}

type badPinger struct{}

func (badPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_Degraded(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer(), WithPinger(badPinger{}))
	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDiscover(t *testing.T) {
	srv, svc := newTestServer(t, fixtureDiscoverer())

	resp := do(t, http.MethodPost, srv.URL+"/discover", `{"latitude":30.27,"longitude":-97.74,"max_radius_miles":10}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body discoverResponse
	decode(t, resp, &body)
	assert.Equal(t, 4, body.Count)
	assert.Equal(t, 10.0, body.RadiusMiles)
	assert.Len(t, svc.Candidates(), 4)
}

func TestDiscover_Errors(t *testing.T) {
	tests := []struct {
		name   string
		d      discoverFunc
		body   string
		status int
	}{
		{
			name: "exhausted sources",
			d: func(context.Context, float64, float64, float64) (*discovery.Result, error) {
				return nil, eris.Wrap(discovery.ErrExhaustedSources, "discovery: 9 attempts")
			},
			body:   `{"latitude":1,"longitude":1}`,
			status: http.StatusBadGateway,
		},
		{
			name:   "bad coordinate",
			d:      fixtureDiscoverer(),
			body:   `{"latitude":100,"longitude":1}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad body",
			d:      fixtureDiscoverer(),
			body:   `{"lat":`,
			status: http.StatusBadRequest,
		},
		{
			name: "unexpected",
			d: func(context.Context, float64, float64, float64) (*discovery.Result, error) {
				return nil, errors.New("boom")
			},
			body:   `{"latitude":1,"longitude":1}`,
			status: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.d)
			resp := do(t, http.MethodPost, srv.URL+"/discover", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestDiscover_Empty(t *testing.T) {
	srv, _ := newTestServer(t, discoverFunc(func(context.Context, float64, float64, float64) (*discovery.Result, error) {
		return &discovery.Result{RadiusMiles: 15}, nil
	}))

	resp := do(t, http.MethodPost, srv.URL+"/discover", `{"latitude":1,"longitude":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body discoverResponse
	decode(t, resp, &body)
	assert.Equal(t, 0, body.Count)
	assert.Equal(t, "no restaurants found", body.Message)
}

func TestListCandidates(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer())
	discoverFixture(t, srv)

	resp := do(t, http.MethodGet, srv.URL+"/candidates?type=takeout&max_distance=6", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count      int               `json:"count"`
		Candidates []model.Candidate `json:"candidates"`
	}
	decode(t, resp, &body)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "osm-3", body.Candidates[0].ID)
}

func TestListCandidates_GeoJSON(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer())
	discoverFixture(t, srv)

	resp := do(t, http.MethodGet, srv.URL+"/candidates?format=geojson&type=bar", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	decode(t, resp, &fc)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "osm-2", fc.Features[0].ID)
	assert.Equal(t, []float64{-97.74, 30.27}, fc.Features[0].Geometry.Coordinates)
}

func TestListCandidates_BadParams(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer())
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/candidates?type=brunch", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/candidates?max_distance=far", "").StatusCode)
}

func TestCountAndFacets(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer())
	discoverFixture(t, srv)

	resp := do(t, http.MethodPut, srv.URL+"/facets", `{"facets":["dine-in"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var facets map[string][]string
	decode(t, resp, &facets)
	assert.Equal(t, []string{"dine-in"}, facets["facets"])

	resp = do(t, http.MethodGet, srv.URL+"/candidates/count?max_distance=4", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var one selection.DistanceCount
	decode(t, resp, &one)
	assert.Equal(t, 1, one.Count)

	resp = do(t, http.MethodGet, srv.URL+"/candidates/count", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all struct {
		Options []selection.DistanceCount `json:"options"`
	}
	decode(t, resp, &all)
	assert.Equal(t, []selection.DistanceCount{{Miles: 2, Count: 1}, {Miles: 4, Count: 1}, {Miles: 8, Count: 2}}, all.Options)

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPut, srv.URL+"/facets", `{"facets":["brunch"]}`).StatusCode)
}

func TestPick(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer())
	discoverFixture(t, srv)

	resp := do(t, http.MethodPost, srv.URL+"/pick", `{"facets":["bar"],"max_distance":4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body pickResponse
	decode(t, resp, &body)
	assert.Equal(t, "osm-2", body.ID)
	assert.Contains(t, body.MapsURL, "google.com/maps")

	resp = do(t, http.MethodPost, srv.URL+"/pick", `{"facets":["bar"],"max_distance":2}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// No body uses the default distance of 4 miles.
	resp = do(t, http.MethodPost, srv.URL+"/pick", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &body)
	assert.LessOrEqual(t, body.Distance(), 4.0)
}

func TestVisitsLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer())
	discoverFixture(t, srv)

	resp := do(t, http.MethodPost, srv.URL+"/visits", `{"candidate_id":"osm-2","user_rating":4,"notes":"good beer"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var v model.VisitRecord
	decode(t, resp, &v)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, model.DiningBar, v.DiningTypeAtVisit)
	assert.Equal(t, "Venue osm-2", v.CandidateName)

	resp = do(t, http.MethodPatch, srv.URL+"/visits/"+v.ID, `{"rating":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.VisitRecord
	decode(t, resp, &updated)
	assert.Equal(t, 5, updated.UserRating)
	assert.Equal(t, "good beer", updated.Notes)

	resp = do(t, http.MethodGet, srv.URL+"/visits", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Visits []visitView `json:"visits"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Visits, 1)
	assert.Equal(t, "Today", list.Visits[0].Label)

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPatch, srv.URL+"/visits/"+v.ID, `{"rating":9}`).StatusCode)
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, srv.URL+"/visits/"+v.ID, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodDelete, srv.URL+"/visits/"+v.ID, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPatch, srv.URL+"/visits/nope", `{"rating":1}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, srv.URL+"/visits", `{"user_rating":2}`).StatusCode)
}

func TestLocation(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer())

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/location", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPut, srv.URL+"/location", `{"latitude":95,"longitude":0}`).StatusCode)
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodPut, srv.URL+"/location", `{"latitude":47.6,"longitude":-122.3}`).StatusCode)

	resp := do(t, http.MethodGet, srv.URL+"/location", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var coord model.Coordinate
	decode(t, resp, &coord)
	assert.Equal(t, 47.6, coord.Latitude)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, fixtureDiscoverer(), WithCORSOrigins([]string{"https://app.example.com"}))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/candidates", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
