package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 3, cfg.Learn.MinVotes)
	assert.Equal(t, "https://api.apollo.io", cfg.Apollo.BaseURL)
	assert.Equal(t, 10, cfg.Apollo.TimeoutSecs)
	assert.InDelta(t, 5.0, cfg.Apollo.RatePerSec, 0.001)
	assert.Equal(t, 20, cfg.Match.RequestTimeoutSecs)

	s := cfg.Match.Scoring
	assert.Equal(t, 75, s.Threshold)
	assert.Equal(t, 60, s.DirectBase)
	assert.Equal(t, 15, s.DirectVerified)
	assert.Equal(t, 15, s.DirectKeyword)
	assert.Equal(t, 10, s.DirectPortZip)
	assert.Equal(t, 75, s.MappingDefault)
	assert.Equal(t, 15, s.MappingVerified)
	assert.Equal(t, 10, s.MappingKeyword)
	assert.Equal(t, 30, s.PatternBase)
	assert.Equal(t, 25, s.PatternMapping)
	assert.Equal(t, 15, s.PatternKeyword)
	assert.Equal(t, 20, s.PatternPortZip)
	assert.Equal(t, 10, s.PatternCountryPort)
	assert.Equal(t, 15, s.PatternVerified)
	assert.Equal(t, 25, s.PatternUnverified)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: shipper.db
log:
  level: debug
  format: console
server:
  port: 9090
match:
  scoring:
    threshold: 80
    pattern_unverified_penalty: 30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "shipper.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 80, cfg.Match.Scoring.Threshold)
	assert.Equal(t, 30, cfg.Match.Scoring.PatternUnverified)
	// Defaults still apply for unset values
	assert.Equal(t, 60, cfg.Match.Scoring.DirectBase)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("SHIPPER_STORE_DRIVER", "postgres")
	t.Setenv("SHIPPER_LOG_LEVEL", "warn")
	t.Setenv("SHIPPER_APOLLO_KEY", "apollo-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "apollo-key", cfg.Apollo.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/shipper"
	cfg.Server.Port = 8080
	cfg.Batch.MaxConcurrent = 8
	cfg.Learn.MinVotes = 3
	cfg.Match.RequestTimeoutSecs = 20
	cfg.Match.Scoring = ScoringConfig{
		Threshold:          75,
		DirectBase:         60,
		DirectVerified:     15,
		DirectKeyword:      15,
		DirectPortZip:      10,
		MappingDefault:     75,
		MappingVerified:    15,
		MappingKeyword:     10,
		PatternBase:        30,
		PatternMapping:     25,
		PatternKeyword:     15,
		PatternPortZip:     20,
		PatternCountryPort: 10,
		PatternVerified:    15,
		PatternUnverified:  25,
	}
	return cfg
}

func TestValidate_AllModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"serve", "match", "batch", "migrate", "learn"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("match")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "sqlite"
	assert.NoError(t, cfg.Validate("match"))
}

func TestValidate_UnsupportedDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql" is not supported`)
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_BatchConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrent = 0
	err := cfg.Validate("batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.max_concurrent must be between 1 and 64")

	cfg.Batch.MaxConcurrent = 65
	assert.Error(t, cfg.Validate("batch"))

	cfg.Batch.MaxConcurrent = 64
	assert.NoError(t, cfg.Validate("batch"))
}

func TestValidate_LearnMinVotes(t *testing.T) {
	cfg := validDefaults()
	cfg.Learn.MinVotes = 0

	err := cfg.Validate("learn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "learn.min_votes must be >= 1")
}

func TestValidate_ScoringBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Match.Scoring.Threshold = 0
	cfg.Match.Scoring.PatternUnverified = -5

	err := cfg.Validate("match")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match.scoring.threshold must be between 1 and 100")
	assert.Contains(t, err.Error(), "match.scoring.pattern_unverified_penalty must be between 0 and 100")

	// Migrations do not depend on scoring.
	assert.NoError(t, cfg.Validate("migrate"))
}

func TestScoringProblems(t *testing.T) {
	s := ScoringConfig{Threshold: 75}
	assert.Empty(t, s.Problems())

	s.Threshold = 101
	s.DirectBase = 120
	assert.ElementsMatch(t, []string{
		"match.scoring.threshold must be between 1 and 100",
		"match.scoring.direct_base must be between 0 and 100",
	}, s.Problems())
}
