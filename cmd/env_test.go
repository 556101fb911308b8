package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shipper-match/internal/config"
	"github.com/sells-group/shipper-match/internal/match"
	"github.com/sells-group/shipper-match/internal/model"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "shipper.db")
	c.Server.Port = 8080
	c.Batch.MaxConcurrent = 4
	c.Learn.MinVotes = 3
	c.Match.RequestTimeoutSecs = 5
	c.Match.Scoring = match.DefaultWeights()
	return c
}

func TestInitEnv_SQLite(t *testing.T) {
	withConfig(t, sqliteConfig(t))

	env, err := initEnv(context.Background(), "match")
	require.NoError(t, err)
	defer env.Close()

	m := env.Engine.BestMatch(context.Background(), match.ConfidenceFactors{HSCode: "8471600000", Country: "South Korea"})
	assert.Equal(t, "Samsung Electronics Co Ltd", m.CompanyName)
	assert.Equal(t, 5, m.ConfidenceScore)
}

func TestInitEnv_LearnedMappingFromStore(t *testing.T) {
	withConfig(t, sqliteConfig(t))

	env, err := initEnv(context.Background(), "match")
	require.NoError(t, err)
	defer env.Close()

	override := 80
	_, err = env.Store.UpsertMappings(context.Background(), []model.HSMapping{{
		HSCode: "8471600000", Country: "South Korea", CompanyName: "LG Electronics Inc", ConfidenceOverride: &override,
	}})
	require.NoError(t, err)

	m := env.Engine.BestMatch(context.Background(), match.ConfidenceFactors{HSCode: "8471600000", Country: "south korea"})
	assert.Equal(t, "LG Electronics Inc", m.CompanyName)
	assert.Equal(t, 80, m.ConfidenceScore)
	assert.Equal(t, match.StrategyLearnedMapping, m.Strategy)
}

func TestInitEnv_InvalidConfig(t *testing.T) {
	c := sqliteConfig(t)
	c.Store.Driver = "mysql"
	withConfig(t, c)

	_, err := initEnv(context.Background(), "match")
	require.Error(t, err)
}

func TestLoadWeights_PrefersFile(t *testing.T) {
	mc := config.MatchConfig{Scoring: match.DefaultWeights()}

	w, err := loadWeights(mc)
	require.NoError(t, err)
	assert.Equal(t, 75, w.Threshold)

	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  threshold: 85\n"), 0o644))
	mc.WeightsFile = path

	w, err = loadWeights(mc)
	require.NoError(t, err)
	assert.Equal(t, 85, w.Threshold)

	mc.WeightsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = loadWeights(mc)
	assert.Error(t, err)
}

func TestLoadWeights_RejectsOutOfRangeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  threshold: 150\n  pattern_base: -10\n"), 0o644))

	_, err := loadWeights(config.MatchConfig{Scoring: match.DefaultWeights(), WeightsFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match.scoring.threshold must be between 1 and 100")
	assert.Contains(t, err.Error(), "match.scoring.pattern_base must be between 0 and 100")
}

func TestInitVerifier(t *testing.T) {
	assert.Nil(t, initVerifier(config.ApolloConfig{}))

	v := initVerifier(config.ApolloConfig{Key: "k", BaseURL: "http://127.0.0.1:1", TimeoutSecs: 1, RatePerSec: 0})
	require.NotNil(t, v)
	_, ok := v.(*match.ApolloVerifier)
	assert.True(t, ok)
}
