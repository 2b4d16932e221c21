package discovery

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sells-group/spinplate/internal/geo"
	"github.com/sells-group/spinplate/pkg/overpass"
)

type call struct {
	endpoint string
	miles    float64
}

// mockClient implements overpass.Client with a per-call handler.
type mockClient struct {
	mu      sync.Mutex
	calls   []call
	handler func(ctx context.Context, endpoint string, miles float64) (*overpass.Response, error)
}

func (m *mockClient) Interpret(ctx context.Context, endpoint string, q overpass.Query) (*overpass.Response, error) {
	miles := math.Round(q.RadiusMeters / geo.MetersPerMile)
	m.mu.Lock()
	m.calls = append(m.calls, call{endpoint: endpoint, miles: miles})
	m.mu.Unlock()
	return m.handler(ctx, endpoint, miles)
}

func (m *mockClient) Calls() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]call, len(m.calls))
	copy(out, m.calls)
	return out
}

func ptr(v float64) *float64 { return &v }

// restaurant builds a fully addressed restaurant node offset north of the
// origin by dLat degrees.
func restaurant(id int64, name string, dLat float64) overpass.Element {
	return overpass.Element{
		Type: "node",
		ID:   id,
		Lat:  ptr(originLat + dLat),
		Lon:  ptr(originLon),
		Tags: map[string]string{
			"name":             name,
			"amenity":          "restaurant",
			"cuisine":          "italian",
			"addr:housenumber": fmt.Sprint(id),
			"addr:street":      "Congress Ave",
			"addr:city":        "Austin",
		},
	}
}

func restaurants(n int, startID int64) []overpass.Element {
	out := make([]overpass.Element, n)
	for i := 0; i < n; i++ {
		// Reverse order so the pipeline has to sort.
		out[i] = restaurant(startID+int64(i), fmt.Sprintf("Place %d", i), float64(n-i)*0.01)
	}
	return out
}
