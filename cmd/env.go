package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spinplate/internal/classify"
	"github.com/sells-group/spinplate/internal/db"
	"github.com/sells-group/spinplate/internal/discovery"
	"github.com/sells-group/spinplate/internal/location"
	"github.com/sells-group/spinplate/internal/resilience"
	"github.com/sells-group/spinplate/internal/service"
	"github.com/sells-group/spinplate/internal/store"
	"github.com/sells-group/spinplate/pkg/overpass"
)

// appEnv holds everything the discover/spin/visits/serve commands share.
type appEnv struct {
	Store    store.Store
	Breakers *resilience.EndpointBreakers
	Service  *service.Service
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

func initPipeline() (*discovery.Pipeline, *resilience.EndpointBreakers, error) {
	rules, err := classify.LoadRuleSet(cfg.Discovery.RulesPath)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load classification rules")
	}

	client := overpass.NewClient(
		overpass.WithTimeout(cfg.Overpass.RequestTimeout()),
		overpass.WithUserAgent(cfg.Overpass.UserAgent),
		overpass.WithRateLimit(cfg.Overpass.RatePerSec, cfg.Overpass.Burst),
	)
	breakers := resilience.NewEndpointBreakers(resilience.BreakerConfigFrom(
		cfg.Discovery.BreakerFailureThreshold,
		cfg.Discovery.BreakerResetSecs,
	))

	p := discovery.NewPipeline(client, discovery.Config{
		Endpoints:        cfg.Overpass.Endpoints,
		RadiusLadder:     cfg.Discovery.RadiusLadder,
		MaxRadiusMiles:   cfg.Discovery.MaxRadiusMiles,
		LargeResult:      cfg.Discovery.LargeResult,
		QueryTimeoutSecs: cfg.Overpass.QueryTimeoutSecs,
		ResultLimit:      cfg.Overpass.ResultLimit,
	},
		discovery.WithClassifier(classify.New(rules)),
		discovery.WithBreakers(breakers),
	)
	return p, breakers, nil
}

// initEnv validates config for mode and wires the service. Discovery is
// skipped for withPipeline=false; the store is always opened so visit
// history is restored. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string, withPipeline bool) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{}
	var d discovery.Discoverer
	if withPipeline {
		p, breakers, err := initPipeline()
		if err != nil {
			return nil, err
		}
		d = p
		env.Breakers = breakers
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env.Store = st

	env.Service = service.New(d, st,
		service.WithDistanceOptions(cfg.Selection.DistanceOptions, cfg.Selection.DefaultDistance),
		service.WithLocationCache(location.NewCache(location.WithTTL(cfg.Location.TTL()))),
	)
	if err := env.Service.Start(ctx); err != nil {
		env.Close()
		return nil, err
	}

	zap.L().Debug("environment ready",
		zap.String("mode", mode),
		zap.String("store", cfg.Store.Driver),
		zap.Int("endpoints", len(cfg.Overpass.Endpoints)),
	)
	return env, nil
}
