package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shipper-match/internal/config"
	"github.com/sells-group/shipper-match/internal/match"
	"github.com/sells-group/shipper-match/internal/resilience"
	"github.com/sells-group/shipper-match/internal/store"
	"github.com/sells-group/shipper-match/pkg/apollo"
)

// matchEnv holds the store, engine and sink shared by the serve, match and
// batch commands.
type matchEnv struct {
	Store  store.Store
	Engine *match.Engine
	Sink   *match.Sink
}

// Close flushes pending search logs and releases the store.
func (me *matchEnv) Close() {
	me.Sink.Wait()
	if me.Store != nil {
		_ = me.Store.Close()
	}
}

// initEnv validates config for mode, opens and migrates the store and builds
// the engine. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*matchEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	weights, err := loadWeights(cfg.Match)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	engine := match.NewEngine(st, initVerifier(cfg.Apollo), match.WithWeights(weights))
	return &matchEnv{
		Store:  st,
		Engine: engine,
		Sink:   match.NewSink(st),
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "shipper.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// loadWeights prefers a standalone weights profile over the inline scoring
// section.
func loadWeights(mc config.MatchConfig) (config.ScoringConfig, error) {
	if mc.WeightsFile == "" {
		return mc.Scoring, nil
	}
	w, err := match.LoadWeights(mc.WeightsFile)
	if err != nil {
		return config.ScoringConfig{}, err
	}
	if errs := w.Problems(); len(errs) > 0 {
		return config.ScoringConfig{}, eris.New("config: weights file " + mc.WeightsFile + ": " + strings.Join(errs, "; "))
	}
	zap.L().Info("loaded scoring weights", zap.String("path", mc.WeightsFile))
	return w, nil
}

// initVerifier builds the Apollo contact verifier. Without an API key every
// verification reports failed and scores as "no contact".
func initVerifier(ac config.ApolloConfig) match.ContactVerifier {
	if ac.Key == "" {
		zap.L().Warn("apollo key not set; contact verification disabled")
		return nil
	}

	timeout := time.Duration(ac.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := apollo.NewClient(ac.Key,
		apollo.WithBaseURL(ac.BaseURL),
		apollo.WithHTTPClient(&http.Client{Timeout: timeout}),
		apollo.WithRateLimit(ac.RatePerSec),
	)

	settings := resilience.SettingsFrom(ac.BreakerFailureThreshold, ac.BreakerResetSecs)
	settings.OnStateChange = func(from, to resilience.State) {
		zap.L().Warn("apollo circuit breaker state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return match.NewApolloVerifier(client, resilience.NewBreaker(settings))
}
