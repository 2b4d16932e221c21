package selection

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spinplate/internal/model"
)

func visit(id string, rating int) model.VisitRecord {
	return model.VisitRecord{
		ID:                id,
		CandidateID:       "osm-" + id,
		VisitedAt:         time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC),
		UserRating:        rating,
		Notes:             "first note",
		DiningTypeAtVisit: model.DiningDineIn,
	}
}

func TestAddVisit_Prepends(t *testing.T) {
	s := newTestStore(1)
	require.NoError(t, s.AddVisit(visit("1", 0)))
	require.NoError(t, s.AddVisit(visit("2", 4)))

	got := s.Visits()
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "1", got[1].ID)
}

func TestAddVisit_Validation(t *testing.T) {
	s := newTestStore(1)
	assert.True(t, errors.Is(s.AddVisit(visit("", 0)), ErrInvalidVisit))
	assert.True(t, errors.Is(s.AddVisit(visit("x", 6)), ErrInvalidVisit))
	assert.Error(t, s.AddVisit(visit("x", -1)))
	assert.Empty(t, s.Visits())
}

func TestRemoveVisit(t *testing.T) {
	s := newTestStore(1)
	require.NoError(t, s.AddVisit(visit("1", 0)))
	require.NoError(t, s.AddVisit(visit("2", 0)))

	before := s.Visits()
	require.NoError(t, s.RemoveVisit("1"))
	assert.Len(t, before, 2, "earlier snapshots are unaffected")

	got := s.Visits()
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	err := s.RemoveVisit("missing")
	assert.True(t, errors.Is(err, ErrVisitNotFound))
}

func TestUpdateVisitRating(t *testing.T) {
	s := newTestStore(1)
	require.NoError(t, s.AddVisit(visit("1", 0)))

	require.NoError(t, s.UpdateVisitRating("1", 4, nil))
	v, err := s.Visit("1")
	require.NoError(t, err)
	assert.Equal(t, 4, v.UserRating)
	assert.Equal(t, "first note", v.Notes, "omitted notes are preserved")

	notes := ""
	require.NoError(t, s.UpdateVisitRating("1", 5, &notes))
	v, err = s.Visit("1")
	require.NoError(t, err)
	assert.Equal(t, 5, v.UserRating)
	assert.Empty(t, v.Notes, "explicit empty notes overwrite")

	assert.Error(t, s.UpdateVisitRating("1", 9, nil))
	assert.True(t, errors.Is(s.UpdateVisitRating("nope", 1, nil), ErrVisitNotFound))

	_, err = s.Visit("nope")
	assert.True(t, errors.Is(err, ErrVisitNotFound))
}

func TestHistoryRestore(t *testing.T) {
	s := newTestStore(1)
	require.NoError(t, s.AddVisit(visit("1", 3)))

	h := s.History()
	assert.Equal(t, model.HistoryVersion, h.Version)
	require.Len(t, h.Visits, 1)

	other := newTestStore(2)
	other.Restore(h)
	assert.Equal(t, s.Visits(), other.Visits())

	// Restoring leaves candidates and ring alone.
	other.Ingest(uniform(3, model.DiningBar, 1))
	other.Restore(model.History{})
	assert.Empty(t, other.Visits())
	assert.Equal(t, 3, other.Len())
}
