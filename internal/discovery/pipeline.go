// Package discovery finds nearby venues by walking a radius ladder across an
// ordered list of Overpass endpoints and normalizing the raw elements into
// classified candidates.
package discovery

import (
	"context"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spinplate/internal/classify"
	"github.com/sells-group/spinplate/internal/geo"
	"github.com/sells-group/spinplate/internal/model"
	"github.com/sells-group/spinplate/internal/resilience"
	"github.com/sells-group/spinplate/pkg/overpass"
)

// ErrExhaustedSources is returned when every endpoint at every radius tier
// failed or came back empty.
var ErrExhaustedSources = eris.New("unable to fetch")

// Config controls the radius ladder and endpoint list.
type Config struct {
	Endpoints []string
	// RadiusLadder is the ascending list of search radii in miles.
	RadiusLadder []float64
	// MaxRadiusMiles caps the requested radius.
	MaxRadiusMiles float64
	// LargeResult is the candidate count that stops escalation early.
	LargeResult int
	// QueryTimeoutSecs is the server-side timeout written into each query.
	QueryTimeoutSecs int
	// ResultLimit caps elements returned per query.
	ResultLimit int
}

// DefaultConfig returns the ladder and mirrors used by the mobile app.
func DefaultConfig() Config {
	return Config{
		Endpoints:        append([]string(nil), overpass.DefaultEndpoints...),
		RadiusLadder:     []float64{5, 10, 15},
		MaxRadiusMiles:   15,
		LargeResult:      50,
		QueryTimeoutSecs: overpass.DefaultTimeoutSecs,
		ResultLimit:      overpass.DefaultLimit,
	}
}

// Discoverer is the contract the service layer depends on.
type Discoverer interface {
	Discover(ctx context.Context, lat, lon, maxRadiusMiles float64) (*Result, error)
}

// Attempt records one endpoint call within a run.
type Attempt struct {
	Endpoint    string                 `json:"endpoint"`
	RadiusMiles float64                `json:"radius_miles"`
	Elements    int                    `json:"elements"`
	Kept        int                    `json:"kept"`
	Failure     resilience.FailureKind `json:"failure,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Duration    time.Duration          `json:"duration"`
}

// Result is the outcome of a successful run.
type Result struct {
	Candidates  []model.Candidate `json:"candidates"`
	RadiusMiles float64           `json:"radius_miles"`
	Endpoint    string            `json:"endpoint"`
	Attempts    []Attempt         `json:"attempts"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClassifier overrides the default rule set.
func WithClassifier(c *classify.Classifier) Option {
	return func(p *Pipeline) {
		p.classifier = c
	}
}

// WithImageCatalog overrides the embedded image catalog.
func WithImageCatalog(cat *classify.ImageCatalog) Option {
	return func(p *Pipeline) {
		p.images = cat
	}
}

// WithBreakers enables per-endpoint circuit breakers.
func WithBreakers(b *resilience.EndpointBreakers) Option {
	return func(p *Pipeline) {
		p.breakers = b
	}
}

// WithRand sets the source for synthetic ratings.
func WithRand(r *rand.Rand) Option {
	return func(p *Pipeline) {
		p.rng = r
	}
}

// Pipeline runs discovery. It is safe for concurrent use; each Discover call
// owns its own image picker.
type Pipeline struct {
	client     overpass.Client
	cfg        Config
	classifier *classify.Classifier
	images     *classify.ImageCatalog
	breakers   *resilience.EndpointBreakers

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewPipeline creates a Pipeline over the given Overpass client.
func NewPipeline(client overpass.Client, cfg Config, opts ...Option) *Pipeline {
	def := DefaultConfig()
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = def.Endpoints
	}
	if len(cfg.RadiusLadder) == 0 {
		cfg.RadiusLadder = def.RadiusLadder
	}
	if cfg.MaxRadiusMiles <= 0 {
		cfg.MaxRadiusMiles = def.MaxRadiusMiles
	}
	if cfg.LargeResult <= 0 {
		cfg.LargeResult = def.LargeResult
	}
	if cfg.QueryTimeoutSecs <= 0 {
		cfg.QueryTimeoutSecs = def.QueryTimeoutSecs
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = def.ResultLimit
	}

	p := &Pipeline{
		client:     client,
		cfg:        cfg,
		classifier: classify.Default(),
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)), //nolint:gosec
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.images == nil {
		p.images = classify.DefaultImageCatalog()
	}
	return p
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Discover searches around (lat, lon) out to maxRadiusMiles. A non-positive
// maxRadiusMiles means the configured cap. Candidates come back sorted by
// ascending distance. Partial results from a smaller tier are a success;
// only a run that produced nothing at all fails, with ErrExhaustedSources.
func (p *Pipeline) Discover(ctx context.Context, lat, lon, maxRadiusMiles float64) (*Result, error) {
	target := p.cfg.MaxRadiusMiles
	if maxRadiusMiles > 0 && maxRadiusMiles < target {
		target = maxRadiusMiles
	}

	log := zap.L().With(
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Float64("target_miles", target),
	)

	picker := p.images.NewPicker()
	res := &Result{}

	for _, radius := range p.cfg.RadiusLadder {
		if radius > target && len(res.Candidates) > 0 {
			break
		}

		q := overpass.Query{
			Latitude:     lat,
			Longitude:    lon,
			RadiusMeters: geo.MilesToMeters(radius),
			TimeoutSecs:  p.cfg.QueryTimeoutSecs,
			Limit:        p.cfg.ResultLimit,
		}

		for _, endpoint := range p.cfg.Endpoints {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "discovery: canceled")
			}

			log.Debug("querying endpoint", zap.String("endpoint", endpoint), zap.Float64("radius_miles", radius))
			start := time.Now()
			resp, err := p.interpret(ctx, endpoint, q)
			attempt := Attempt{Endpoint: endpoint, RadiusMiles: radius, Duration: time.Since(start)}

			if err != nil {
				attempt.Failure = resilience.Classify(err)
				attempt.Error = err.Error()
				res.Attempts = append(res.Attempts, attempt)
				if ctx.Err() != nil {
					return nil, eris.Wrap(ctx.Err(), "discovery: canceled")
				}
				log.Warn("endpoint failed, trying next",
					zap.String("endpoint", endpoint),
					zap.Float64("radius_miles", radius),
					zap.String("kind", string(attempt.Failure)),
					zap.Error(err),
				)
				continue
			}

			cands := p.normalize(resp.Elements, lat, lon, picker)
			attempt.Elements = len(resp.Elements)
			attempt.Kept = len(cands)
			res.Attempts = append(res.Attempts, attempt)

			if len(cands) > 0 {
				res.Candidates = cands
				res.RadiusMiles = radius
				res.Endpoint = endpoint
				if len(cands) >= p.cfg.LargeResult || radius >= target {
					log.Info("discovery complete",
						zap.String("endpoint", endpoint),
						zap.Float64("radius_miles", radius),
						zap.Int("candidates", len(cands)),
					)
					return res, nil
				}
			}
			// A parseable response ends the tier, even when it kept nothing.
			break
		}
	}

	if len(res.Candidates) > 0 {
		log.Info("discovery complete with partial tier",
			zap.String("endpoint", res.Endpoint),
			zap.Float64("radius_miles", res.RadiusMiles),
			zap.Int("candidates", len(res.Candidates)),
		)
		return res, nil
	}

	log.Warn("discovery exhausted every endpoint", zap.Int("attempts", len(res.Attempts)))
	return nil, eris.Wrapf(ErrExhaustedSources, "discovery: %d attempts", len(res.Attempts))
}

func (p *Pipeline) interpret(ctx context.Context, endpoint string, q overpass.Query) (*overpass.Response, error) {
	if p.breakers == nil {
		return p.client.Interpret(ctx, endpoint, q)
	}
	return resilience.ExecuteVal(ctx, p.breakers.For(endpoint), func(ctx context.Context) (*overpass.Response, error) {
		return p.client.Interpret(ctx, endpoint, q)
	})
}

// normalize filters elements and converts the survivors into candidates
// sorted by distance from (lat, lon).
func (p *Pipeline) normalize(elements []overpass.Element, lat, lon float64, picker *classify.ImagePicker) []model.Candidate {
	out := make([]model.Candidate, 0, len(elements))
	seen := make(map[int64]bool, len(elements))

	for _, el := range elements {
		tags := classify.Tags(el.Tags)
		name := tags.Get("name")
		if name == "" {
			continue
		}
		elLat, elLon, ok := el.Coordinates()
		if !ok {
			continue
		}
		if !p.classifier.IsBarVenue(tags) && !classify.HasStreetAddress(tags) {
			continue
		}
		if seen[el.ID] {
			continue
		}
		seen[el.ID] = true

		rawCuisine := tags.Get("cuisine")
		labelSource := rawCuisine
		if labelSource == "" {
			labelSource = tags.Get("amenity")
		}

		dist := geo.RoundTenth(geo.DistanceMiles(lat, lon, elLat, elLon))
		addr, _ := classify.FormatAddress(tags)

		out = append(out, model.Candidate{
			ID:            "osm-" + strconv.FormatInt(el.ID, 10),
			Name:          name,
			CuisineLabel:  classify.FormatCuisineLabel(labelSource),
			DiningType:    p.classifier.DiningType(tags),
			PriceTier:     p.classifier.PriceTier(tags),
			ImageRef:      picker.Assign(labelSource, el.ID),
			Description:   classify.Description(rawCuisine),
			Latitude:      elLat,
			Longitude:     elLon,
			DistanceMiles: &dist,
			Address:       addr,
			Rating:        p.rating(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance() < out[j].Distance()
	})
	return out
}

func (p *Pipeline) rating() float64 {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return 3.5 + p.rng.Float64()*1.5
}
