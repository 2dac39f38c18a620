package cli

import (
	"fmt"

	"github.com/ppiankov/truescope/internal/cache"
	"github.com/ppiankov/truescope/internal/claims"
	"github.com/ppiankov/truescope/internal/enrich"
	"github.com/ppiankov/truescope/internal/logging"
	"github.com/ppiankov/truescope/internal/metrics"
	"github.com/ppiankov/truescope/internal/model"
	"github.com/ppiankov/truescope/internal/store"
)

// app is the claim stack shared by serve and import
type app struct {
	store   *store.SQLite
	claims  *claims.Service
	metrics *metrics.Metrics
	logger  logging.Logger
}

func newApp(cfg *model.Config, logger logging.Logger) (*app, error) {
	st, err := store.Open(cfg.Store.Path, store.WithBusyTimeout(cfg.Store.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	m := metrics.New()

	var enricher enrich.Enricher = enrich.Nop{}
	if cfg.Enrich.Enabled {
		enricher = enrich.New(cfg.Enrich,
			enrich.WithCache(cache.New(cfg.Enrich.Cache), cfg.Enrich.Cache.TTL),
			enrich.WithObserver(m),
			enrich.WithLogger(logger),
		)
	}

	svc := claims.NewService(st, enricher,
		claims.WithMetrics(m),
		claims.WithLogger(logger),
	)

	return &app{store: st, claims: svc, metrics: m, logger: logger}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("close store")
	}
}
