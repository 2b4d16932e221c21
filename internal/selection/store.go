// Package selection holds the current candidate set and visit history and
// draws random picks that avoid recently shown venues.
package selection

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spinplate/internal/model"
)

// MinRingCapacity is the smallest anti-repeat window.
const MinRingCapacity = 5

// RingFraction is the share of the filtered set kept in the anti-repeat window.
const RingFraction = 0.8

// ErrVisitNotFound is returned when a visit id is unknown.
var ErrVisitNotFound = eris.New("visit not found")

// ErrInvalidVisit is returned for a visit that fails validation.
var ErrInvalidVisit = eris.New("invalid visit")

// RingCapacity returns max(5, floor(0.8*n)).
func RingCapacity(n int) int {
	c := int(math.Floor(float64(n) * RingFraction))
	if c < MinRingCapacity {
		return MinRingCapacity
	}
	return c
}

// Option configures a Store.
type Option func(*Store)

// WithRand sets the random source used for shuffling and picks.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) {
		s.rng = r
	}
}

// Store is the selection state. The candidate slice is replaced wholesale
// by Ingest and never mutated afterwards, so readers holding the read lock
// always see one complete set.
type Store struct {
	mu         sync.RWMutex
	candidates []model.Candidate
	ring       []string
	facets     []model.Facet
	visits     []model.VisitRecord
	ingestedAt time.Time
	rng        *rand.Rand
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(time.Now().Unix()))), //nolint:gosec
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest replaces the candidate set with a shuffled copy of cands and
// clears the recently-shown ring.
func (s *Store) Ingest(cands []model.Candidate) {
	next := make([]model.Candidate, len(cands))
	copy(next, cands)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(next) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		next[i], next[j] = next[j], next[i]
	}
	s.candidates = next
	s.ring = nil
	s.ingestedAt = time.Now()
}

// Candidates returns the current set in display order.
func (s *Store) Candidates() []model.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.candidates)
}

// Len returns the size of the current set.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candidates)
}

// IngestedAt returns when the current set was loaded, zero if never.
func (s *Store) IngestedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ingestedAt
}

// Filter returns candidates matching facets within maxDistance miles. Empty
// facets match everything; a non-positive maxDistance disables the distance
// check. The distance bound is inclusive.
func (s *Store) Filter(facets []model.Facet, maxDistance float64) []model.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.candidates, facets, maxDistance)
}

func filter(cands []model.Candidate, facets []model.Facet, maxDistance float64) []model.Candidate {
	out := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if !c.DiningType.MatchesFacets(facets) {
			continue
		}
		if maxDistance > 0 && c.Distance() > maxDistance {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SetFacets sets the active facet selection used by Count.
func (s *Store) SetFacets(facets []model.Facet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facets = slices.Clone(facets)
}

// Facets returns the active facet selection.
func (s *Store) Facets() []model.Facet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.facets)
}

// Count returns the filtered size for maxDistance under the active facets.
func (s *Store) Count(maxDistance float64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(filter(s.candidates, s.facets, maxDistance))
}

// DistanceCount is a preview of how many candidates one distance option holds.
type DistanceCount struct {
	Miles float64 `json:"miles"`
	Count int     `json:"count"`
}

// Counts returns Count for each distance option, in order.
func (s *Store) Counts(options []float64) []DistanceCount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DistanceCount, len(options))
	for i, miles := range options {
		out[i] = DistanceCount{Miles: miles, Count: len(filter(s.candidates, s.facets, miles))}
	}
	return out
}

// PickRandom draws a candidate from the filtered set, skipping ids in the
// recently-shown window. It returns nil when nothing matches.
func (s *Store) PickRandom(facets []model.Facet, maxDistance float64) *model.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := filter(s.candidates, facets, maxDistance)
	if len(filtered) == 0 {
		return nil
	}

	capacity := RingCapacity(len(filtered))
	window := s.ring
	if len(window) > capacity {
		window = window[:capacity]
	}

	pool := make([]model.Candidate, 0, len(filtered))
	for _, c := range filtered {
		if !slices.Contains(window, c.ID) {
			pool = append(pool, c)
		}
	}

	if len(pool) == 0 {
		var last string
		if len(s.ring) > 0 {
			last = s.ring[0]
		}
		for _, c := range filtered {
			if c.ID != last {
				pool = append(pool, c)
			}
		}
		if len(pool) == 0 {
			pool = filtered
		}
		s.ring = nil
		if last != "" {
			s.ring = []string{last}
		}
	}

	pick := pool[s.rng.IntN(len(pool))]
	s.record(pick.ID, capacity)
	return &pick
}

func (s *Store) record(id string, capacity int) {
	next := make([]string, 0, capacity)
	next = append(next, id)
	for _, r := range s.ring {
		if len(next) == capacity {
			break
		}
		if r != id {
			next = append(next, r)
		}
	}
	s.ring = next
}

// Ring returns the recently-shown ids, most recent first.
func (s *Store) Ring() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ring)
}
