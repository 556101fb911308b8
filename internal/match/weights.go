package match

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/shipper-match/internal/config"
)

// DefaultWeights returns the point values the matcher ships with.
func DefaultWeights() config.ScoringConfig {
	return config.ScoringConfig{
		Threshold: 75,

		DirectBase:     60,
		DirectVerified: 15,
		DirectKeyword:  15,
		DirectPortZip:  10,

		MappingDefault:  75,
		MappingVerified: 15,
		MappingKeyword:  10,

		PatternBase:        30,
		PatternMapping:     25,
		PatternKeyword:     15,
		PatternPortZip:     20,
		PatternCountryPort: 10,
		PatternVerified:    15,
		PatternUnverified:  25,
	}
}

// LoadWeights reads a scoring profile from a YAML file with a top-level
// "scoring" key. Keys missing from the file keep their default values.
func LoadWeights(path string) (config.ScoringConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.ScoringConfig{}, eris.Wrapf(err, "match: read weights %s", path)
	}

	wrapper := struct {
		Scoring config.ScoringConfig `yaml:"scoring"`
	}{Scoring: DefaultWeights()}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return config.ScoringConfig{}, eris.Wrap(err, "match: parse weights")
	}
	return wrapper.Scoring, nil
}
