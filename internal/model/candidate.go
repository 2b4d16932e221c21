// Package model defines the venue, facet, and visit types shared across spinplate.
package model

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// DiningType is the consumer-facing category a venue is classified into.
type DiningType string

const (
	DiningDineIn  DiningType = "dine-in"
	DiningTakeout DiningType = "takeout"
	DiningBar     DiningType = "bar"
	DiningBoth    DiningType = "both"
)

// Valid reports whether d is one of the four known dining types.
func (d DiningType) Valid() bool {
	switch d {
	case DiningDineIn, DiningTakeout, DiningBar, DiningBoth:
		return true
	default:
		return false
	}
}

// Facet is a user-selectable dining filter. "both" is never a facet.
type Facet string

const (
	FacetDineIn  Facet = "dine-in"
	FacetTakeout Facet = "takeout"
	FacetBar     Facet = "bar"
)

// ParseFacet converts a string into a Facet.
func ParseFacet(s string) (Facet, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dine-in", "dinein", "dine_in":
		return FacetDineIn, nil
	case "takeout", "take-out", "takeaway":
		return FacetTakeout, nil
	case "bar":
		return FacetBar, nil
	default:
		return "", eris.Errorf("unknown facet: %q (valid: dine-in, takeout, bar)", s)
	}
}

// ParseFacets parses a list of facet names, dropping duplicates and blanks.
func ParseFacets(values []string) ([]Facet, error) {
	var out []Facet
	seen := make(map[Facet]bool, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		f, err := ParseFacet(v)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// MatchesFacets reports whether a venue of this dining type satisfies the
// facet selection. An empty selection matches everything. A venue tagged
// "both" satisfies dine-in or takeout, never bar.
func (d DiningType) MatchesFacets(facets []Facet) bool {
	if len(facets) == 0 {
		return true
	}
	for _, f := range facets {
		switch {
		case d == DiningBoth && (f == FacetDineIn || f == FacetTakeout):
			return true
		case string(d) == string(f):
			return true
		}
	}
	return false
}

// PriceTier is a 1 (cheap) to 4 (expensive) price estimate.
type PriceTier int

const (
	PriceBudget   PriceTier = 1
	PriceModerate PriceTier = 2
	PricePricey   PriceTier = 3
	PriceLuxury   PriceTier = 4
)

// Candidate is a discovered venue. Candidates live for one discovery run.
type Candidate struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	CuisineLabel  string     `json:"cuisine"`
	DiningType    DiningType `json:"dining_type"`
	PriceTier     PriceTier  `json:"price_tier"`
	ImageRef      string     `json:"image_ref"`
	Description   string     `json:"description"`
	Latitude      float64    `json:"latitude"`
	Longitude     float64    `json:"longitude"`
	DistanceMiles *float64   `json:"distance_miles,omitempty"`
	Address       string     `json:"address,omitempty"`
	Rating        float64    `json:"rating"`
}

// Distance returns the computed distance in miles, or 0 when it has not
// been computed yet.
func (c Candidate) Distance() float64 {
	if c.DistanceMiles == nil {
		return 0
	}
	return *c.DistanceMiles
}

// MapsURL returns a map search link for the venue.
func (c Candidate) MapsURL() string {
	q := c.Name
	if c.Address != "" {
		q += ", " + c.Address
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}
