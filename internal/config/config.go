package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Apollo ApolloConfig `yaml:"apollo" mapstructure:"apollo"`
	Match  MatchConfig  `yaml:"match" mapstructure:"match"`
	Learn  LearnConfig  `yaml:"learn" mapstructure:"learn"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ApolloConfig holds Apollo contact-directory settings.
type ApolloConfig struct {
	Key                     string  `yaml:"key" mapstructure:"key"`
	BaseURL                 string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs             int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec              float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	BreakerFailureThreshold int     `yaml:"breaker_failure_threshold" mapstructure:"breaker_failure_threshold"`
	BreakerResetSecs        int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// MatchConfig configures the company matcher.
type MatchConfig struct {
	Scoring            ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	WeightsFile        string        `yaml:"weights_file" mapstructure:"weights_file"`
	RequestTimeoutSecs int           `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// ScoringConfig holds the point values and short-circuit threshold used by
// the match strategies. Penalties are stored as positive numbers.
type ScoringConfig struct {
	Threshold int `yaml:"threshold" mapstructure:"threshold"`

	DirectBase     int `yaml:"direct_base" mapstructure:"direct_base"`
	DirectVerified int `yaml:"direct_verified" mapstructure:"direct_verified"`
	DirectKeyword  int `yaml:"direct_keyword" mapstructure:"direct_keyword"`
	DirectPortZip  int `yaml:"direct_port_zip" mapstructure:"direct_port_zip"`

	MappingDefault  int `yaml:"mapping_default" mapstructure:"mapping_default"`
	MappingVerified int `yaml:"mapping_verified" mapstructure:"mapping_verified"`
	MappingKeyword  int `yaml:"mapping_keyword" mapstructure:"mapping_keyword"`

	PatternBase        int `yaml:"pattern_base" mapstructure:"pattern_base"`
	PatternMapping     int `yaml:"pattern_mapping" mapstructure:"pattern_mapping"`
	PatternKeyword     int `yaml:"pattern_keyword" mapstructure:"pattern_keyword"`
	PatternPortZip     int `yaml:"pattern_port_zip" mapstructure:"pattern_port_zip"`
	PatternCountryPort int `yaml:"pattern_country_port" mapstructure:"pattern_country_port"`
	PatternVerified    int `yaml:"pattern_verified" mapstructure:"pattern_verified"`
	PatternUnverified  int `yaml:"pattern_unverified_penalty" mapstructure:"pattern_unverified_penalty"`
}

// LearnConfig configures promotion of user corrections into mappings.
type LearnConfig struct {
	MinVotes int `yaml:"min_votes" mapstructure:"min_votes"`
}

// BatchConfig configures CSV batch matching.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SHIPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("batch.max_concurrent", 8)
	v.SetDefault("learn.min_votes", 3)
	v.SetDefault("apollo.base_url", "https://api.apollo.io")
	v.SetDefault("apollo.timeout_secs", 10)
	v.SetDefault("apollo.rate_per_sec", 5)
	v.SetDefault("apollo.breaker_failure_threshold", 5)
	v.SetDefault("apollo.breaker_reset_secs", 30)
	v.SetDefault("match.request_timeout_secs", 20)
	v.SetDefault("match.scoring.threshold", 75)
	v.SetDefault("match.scoring.direct_base", 60)
	v.SetDefault("match.scoring.direct_verified", 15)
	v.SetDefault("match.scoring.direct_keyword", 15)
	v.SetDefault("match.scoring.direct_port_zip", 10)
	v.SetDefault("match.scoring.mapping_default", 75)
	v.SetDefault("match.scoring.mapping_verified", 15)
	v.SetDefault("match.scoring.mapping_keyword", 10)
	v.SetDefault("match.scoring.pattern_base", 30)
	v.SetDefault("match.scoring.pattern_mapping", 25)
	v.SetDefault("match.scoring.pattern_keyword", 15)
	v.SetDefault("match.scoring.pattern_port_zip", 20)
	v.SetDefault("match.scoring.pattern_country_port", 10)
	v.SetDefault("match.scoring.pattern_verified", 15)
	v.SetDefault("match.scoring.pattern_unverified_penalty", 25)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by a command mode.
// Modes: "serve", "match", "batch", "migrate", "learn".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Match.RequestTimeoutSecs <= 0 {
			errs = append(errs, "match.request_timeout_secs must be > 0")
		}
	case "batch":
		if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 64 {
			errs = append(errs, "batch.max_concurrent must be between 1 and 64")
		}
	case "learn":
		if c.Learn.MinVotes < 1 {
			errs = append(errs, "learn.min_votes must be >= 1")
		}
	case "match", "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if mode != "migrate" {
		errs = append(errs, c.Match.Scoring.Problems()...)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// Problems lists out-of-range weights. An empty result means the profile is
// usable.
func (s ScoringConfig) Problems() []string {
	var errs []string
	if s.Threshold <= 0 || s.Threshold > 100 {
		errs = append(errs, "match.scoring.threshold must be between 1 and 100")
	}
	points := map[string]int{
		"direct_base":                s.DirectBase,
		"direct_verified":            s.DirectVerified,
		"direct_keyword":             s.DirectKeyword,
		"direct_port_zip":            s.DirectPortZip,
		"mapping_default":            s.MappingDefault,
		"mapping_verified":           s.MappingVerified,
		"mapping_keyword":            s.MappingKeyword,
		"pattern_base":               s.PatternBase,
		"pattern_mapping":            s.PatternMapping,
		"pattern_keyword":            s.PatternKeyword,
		"pattern_port_zip":           s.PatternPortZip,
		"pattern_country_port":       s.PatternCountryPort,
		"pattern_verified":           s.PatternVerified,
		"pattern_unverified_penalty": s.PatternUnverified,
	}
	for name, p := range points {
		if p < 0 || p > 100 {
			errs = append(errs, fmt.Sprintf("match.scoring.%s must be between 0 and 100", name))
		}
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
