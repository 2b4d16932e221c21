package overpass

import (
	"fmt"
	"strconv"
	"strings"
)

// Selector is one tag filter in a venue query, e.g. amenity=restaurant.
type Selector struct {
	Key   string
	Value string
}

// VenueSelectors are the node filters used to find places to eat and drink.
var VenueSelectors = []Selector{
	{"amenity", "restaurant"},
	{"amenity", "fast_food"},
	{"amenity", "bar"},
	{"amenity", "pub"},
	{"amenity", "cafe"},
	{"amenity", "biergarten"},
	{"amenity", "nightclub"},
	{"microbrewery", "yes"},
	{"craft", "brewery"},
}

// Query describes a radius search around a coordinate.
type Query struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	// TimeoutSecs is the server-side evaluation limit sent in the query header.
	TimeoutSecs int
	// Limit caps the number of elements returned.
	Limit     int
	Selectors []Selector
}

// Default query bounds.
const (
	DefaultTimeoutSecs = 25
	DefaultLimit       = 300
)

// String renders the query in Overpass QL.
func (q Query) String() string {
	timeout := q.TimeoutSecs
	if timeout <= 0 {
		timeout = DefaultTimeoutSecs
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	selectors := q.Selectors
	if len(selectors) == 0 {
		selectors = VenueSelectors
	}

	around := fmt.Sprintf("(around:%s,%s,%s)",
		formatFloat(q.RadiusMeters), formatFloat(q.Latitude), formatFloat(q.Longitude))

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeout)
	for _, s := range selectors {
		fmt.Fprintf(&b, "  node[%q=%q]%s;\n", s.Key, s.Value, around)
	}
	fmt.Fprintf(&b, ");\nout body %d;\n", limit)
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
