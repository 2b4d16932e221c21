// Package service is the consumer contract: it ties discovery, the
// selection store, the location cache, and visit persistence together.
package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/spinplate/internal/discovery"
	"github.com/sells-group/spinplate/internal/location"
	"github.com/sells-group/spinplate/internal/model"
	"github.com/sells-group/spinplate/internal/selection"
	"github.com/sells-group/spinplate/internal/store"
)

// ErrNoCandidates reports a discovery run that succeeded but kept nothing.
var ErrNoCandidates = eris.New("no restaurants found")

// DefaultDiscoverTimeout bounds a shared discovery run.
const DefaultDiscoverTimeout = 90 * time.Second

// DefaultDistanceOptions are the distance choices offered to the user, in miles.
var DefaultDistanceOptions = []float64{2, 4, 8}

// Option configures a Service.
type Option func(*Service)

// WithSelection replaces the selection store.
func WithSelection(sel *selection.Store) Option {
	return func(s *Service) {
		s.selection = sel
	}
}

// WithLocationCache replaces the location cache.
func WithLocationCache(c *location.Cache) Option {
	return func(s *Service) {
		s.location = c
	}
}

// WithDistanceOptions sets the preview distances and the default pick distance.
func WithDistanceOptions(options []float64, defaultMiles float64) Option {
	return func(s *Service) {
		if len(options) > 0 {
			s.distanceOptions = slices.Clone(options)
		}
		s.defaultDistance = defaultMiles
	}
}

// WithClock overrides time.Now for visit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithDiscoverTimeout bounds each discovery run. The run is detached from
// the caller that started it, so this is what eventually stops it.
func WithDiscoverTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.discoverTimeout = d
		}
	}
}

// WithIDFunc overrides visit id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// Service implements the discovery and selection workflow.
type Service struct {
	discoverer discovery.Discoverer
	history    store.Store
	selection  *selection.Store
	location   *location.Cache

	distanceOptions []float64
	defaultDistance float64
	discoverTimeout time.Duration
	now             func() time.Time
	newID           func() string

	group singleflight.Group

	// persistMu orders visit mutations with their saves.
	persistMu sync.Mutex
}

// New creates a Service. history may be nil, in which case visits live only
// in memory.
func New(d discovery.Discoverer, history store.Store, opts ...Option) *Service {
	s := &Service{
		discoverer:      d,
		history:         history,
		distanceOptions: slices.Clone(DefaultDistanceOptions),
		defaultDistance: 4,
		discoverTimeout: DefaultDiscoverTimeout,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.selection == nil {
		s.selection = selection.New()
	}
	if s.location == nil {
		s.location = location.NewCache()
	}
	return s
}

// Start restores the persisted visit history.
func (s *Service) Start(ctx context.Context) error {
	if s.history == nil {
		return nil
	}
	h, err := s.history.Load(ctx)
	if err != nil {
		return eris.Wrap(err, "service: load history")
	}
	s.selection.Restore(h)
	zap.L().Info("visit history restored", zap.Int("visits", len(h.Visits)))
	return nil
}

// Discover fetches candidates around (lat, lon) and replaces the current
// set. Concurrent calls for the same coordinate and radius share one run,
// which ingests once and keeps going if the caller that started it leaves.
// A run that keeps nothing still replaces the set and returns ErrNoCandidates.
func (s *Service) Discover(ctx context.Context, lat, lon, maxRadiusMiles float64) (*discovery.Result, error) {
	if s.discoverer == nil {
		return nil, eris.New("service: no discoverer configured")
	}
	coord := model.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return nil, eris.Wrap(err, "service: discover")
	}

	key := fmt.Sprintf("%.5f,%.5f,%g", lat, lon, maxRadiusMiles)
	ch := s.group.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.discoverTimeout)
		defer cancel()

		res, err := s.discoverer.Discover(runCtx, lat, lon, maxRadiusMiles)
		if err != nil {
			return nil, err
		}
		s.selection.Ingest(res.Candidates)
		s.location.Set(lat, lon)
		return res, nil
	})

	var out singleflight.Result
	select {
	case out = <-ch:
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "service: discover")
	}
	if out.Err != nil {
		return nil, out.Err
	}
	res := out.Val.(*discovery.Result)
	if out.Shared {
		zap.L().Debug("discover shared in-flight run", zap.String("key", key))
	}

	if len(res.Candidates) == 0 {
		return res, eris.Wrap(ErrNoCandidates, "service: discover")
	}
	return res, nil
}

// Candidates returns the whole current set in display order.
func (s *Service) Candidates() []model.Candidate {
	return s.selection.Candidates()
}

// Filter returns candidates matching facets within maxDistance miles.
func (s *Service) Filter(facets []model.Facet, maxDistance float64) []model.Candidate {
	return s.selection.Filter(facets, maxDistance)
}

// Count returns how many candidates match the active facets within maxDistance.
func (s *Service) Count(maxDistance float64) int {
	return s.selection.Count(maxDistance)
}

// CountsByDistance returns the count for each configured distance option.
func (s *Service) CountsByDistance() []selection.DistanceCount {
	return s.selection.Counts(s.distanceOptions)
}

// DistanceOptions returns the configured distance choices.
func (s *Service) DistanceOptions() []float64 {
	return slices.Clone(s.distanceOptions)
}

// DefaultDistance returns the distance used when a pick names none.
func (s *Service) DefaultDistance() float64 {
	return s.defaultDistance
}

// SetFacets sets the active facet selection.
func (s *Service) SetFacets(facets []model.Facet) {
	s.selection.SetFacets(facets)
}

// Facets returns the active facet selection.
func (s *Service) Facets() []model.Facet {
	return s.selection.Facets()
}

// PickRandom draws an anti-repeat pick. It returns nil when nothing matches.
func (s *Service) PickRandom(facets []model.Facet, maxDistance float64) *model.Candidate {
	return s.selection.PickRandom(facets, maxDistance)
}

// CachedLocation returns the cached coordinate if it is still fresh.
func (s *Service) CachedLocation() *model.Coordinate {
	return s.location.Get()
}

// SetCachedLocation stores a coordinate with the current time.
func (s *Service) SetCachedLocation(lat, lon float64) error {
	coord := model.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return eris.Wrap(err, "service: set location")
	}
	s.location.Set(lat, lon)
	return nil
}

// ResolveLocation returns a fresh cached coordinate or asks loc for one.
func (s *Service) ResolveLocation(ctx context.Context, loc location.Locator) (model.Coordinate, bool, error) {
	return s.location.Resolve(ctx, loc)
}
