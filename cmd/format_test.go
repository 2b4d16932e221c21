package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/spinplate/internal/model"
)

func TestFormatCandidates(t *testing.T) {
	d := 1.24
	cands := []model.Candidate{
		{
			ID:            "osm-101",
			Name:          "Taqueria Arandas",
			DiningType:    model.DiningBoth,
			CuisineLabel:  "Mexican",
			PriceTier:     model.PriceBudget,
			DistanceMiles: &d,
			Address:       "834 E Riverside Dr, Austin",
		},
		{ID: "osm-102", Name: "The Brewery Tap Room With A Very Long Name Indeed", DiningType: model.DiningBar, PriceTier: model.PriceModerate},
	}

	var buf bytes.Buffer
	formatCandidates(&buf, cands)

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Taqueria Arandas")
	assert.Contains(t, out, "both")
	assert.Contains(t, out, "1.2")
	assert.Contains(t, out, "$$")
	assert.Contains(t, out, "The Brewery Tap Room With A...")
}

func TestFormatPick(t *testing.T) {
	d := 0.4
	var buf bytes.Buffer
	formatPick(&buf, 2, model.Candidate{
		Name: "Cafe Luna", CuisineLabel: "Coffee Shop", DiningType: model.DiningDineIn,
		PriceTier: model.PriceBudget, DistanceMiles: &d, Address: "12 Elm St",
	})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "#2  Cafe Luna"))
	assert.Contains(t, out, "0.4 mi  12 Elm St")
	assert.Contains(t, out, "google.com/maps")
}

func TestFormatVisits(t *testing.T) {
	now := time.Date(2026, 6, 15, 20, 0, 0, 0, time.UTC)
	visits := []model.VisitRecord{
		{ID: "v-1", CandidateName: "Cafe Luna", VisitedAt: now.Add(-2 * time.Hour), UserRating: 4, DiningTypeAtVisit: model.DiningDineIn},
		{ID: "v-2", CandidateID: "osm-9", VisitedAt: now.Add(-3 * 24 * time.Hour), DiningTypeAtVisit: model.DiningBar},
	}

	var buf bytes.Buffer
	formatVisits(&buf, visits, now)

	out := buf.String()
	assert.Contains(t, out, "Cafe Luna")
	assert.Contains(t, out, "Today")
	assert.Contains(t, out, "****")
	assert.Contains(t, out, "osm-9")
	assert.Contains(t, out, "3 days ago")
}

func TestPriceSymbolAndStars(t *testing.T) {
	assert.Equal(t, "?", priceSymbol(0))
	assert.Equal(t, "$$$", priceSymbol(model.PricePricey))
	assert.Equal(t, "-", stars(0))
	assert.Equal(t, "*****", stars(5))
	assert.Equal(t, "abc", truncate("abc", 3))
}
