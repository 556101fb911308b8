package match

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/shipper-match/internal/config"
)

// Engine scores candidate companies for trade records. It holds no mutable
// state; one Engine serves concurrent callers.
type Engine struct {
	mappings MappingSource
	verifier ContactVerifier
	weights  config.ScoringConfig
	log      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the default point values and threshold.
func WithWeights(w config.ScoringConfig) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

// WithLogger sets the engine logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// NewEngine creates an Engine. A nil mapping source or verifier makes the
// corresponding evidence always negative.
func NewEngine(mappings MappingSource, verifier ContactVerifier, opts ...Option) *Engine {
	e := &Engine{
		mappings: mappings,
		verifier: verifier,
		weights:  DefaultWeights(),
		log:      zap.L(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.mappings == nil {
		e.mappings = noMappings{}
	}
	if e.verifier == nil {
		e.verifier = noVerifier{}
	}
	e.log = e.log.With(zap.String("component", "match"))
	return e
}

// Weights returns the scoring configuration in use.
func (e *Engine) Weights() config.ScoringConfig {
	return e.weights
}

// BestMatch returns the best company match for a trade record. Strategies run
// in priority order (direct consignee, learned mapping, pattern inference);
// the first of the first two to reach the threshold is returned, otherwise
// the pattern inference result is. BestMatch never fails: unavailable
// evidence counts as negative and "nothing found" is EmptyMatch.
func (e *Engine) BestMatch(ctx context.Context, f ConfidenceFactors) CompanyMatch {
	f = f.trimmed()
	if f.HSCode == "" && f.Country == "" {
		return EmptyMatch()
	}

	if m, attempted := e.DirectConsignee(ctx, f); attempted && m.ConfidenceScore >= e.weights.Threshold {
		return m
	}

	if m := e.LearnedMapping(ctx, f); !m.IsEmpty() && m.ConfidenceScore >= e.weights.Threshold {
		return m
	}

	return e.PatternInference(ctx, f)
}

// DirectConsignee scores the declared consignee name. It reports false when
// the record carries no consignee name.
func (e *Engine) DirectConsignee(ctx context.Context, f ConfidenceFactors) (CompanyMatch, bool) {
	f = f.trimmed()
	if f.ConsigneeName == "" {
		return EmptyMatch(), false
	}
	w := e.weights

	m := CompanyMatch{
		CompanyName:       f.ConsigneeName,
		Strategy:          StrategyDirectConsignee,
		ConfidenceSources: []string{SourceDirectConsignee},
	}
	score := w.DirectBase

	if e.verify(ctx, f.ConsigneeName).Verified() {
		m.ApolloVerified = true
		score += w.DirectVerified
		m.ConfidenceSources = append(m.ConfidenceSources, SourceApolloVerified)
	}
	if CommodityKeywordMatch(f) {
		m.CommodityKeywordMatch = true
		score += w.DirectKeyword
		m.ConfidenceSources = append(m.ConfidenceSources, SourceCommodityKeyword)
	}
	if PortZipMatch(f) {
		m.PortZipMatch = true
		score += w.DirectPortZip
		m.ConfidenceSources = append(m.ConfidenceSources, SourcePortZip)
	}

	m.ConfidenceScore = clamp(score)
	return m, true
}

// LearnedMapping scores the highest-confidence learned mapping for the HS
// code and country. Without a mapping it returns EmptyMatch.
func (e *Engine) LearnedMapping(ctx context.Context, f ConfidenceFactors) CompanyMatch {
	f = f.trimmed()
	lookup := e.topMapping(ctx, f)
	if !lookup.Found() {
		return EmptyMatch()
	}
	w := e.weights

	// The strategy tag doubles as the source for HSMappingMatch; no separate
	// SourceHSMapping entry is added here.
	m := CompanyMatch{
		CompanyName:       lookup.Mapping.CompanyName,
		Strategy:          StrategyLearnedMapping,
		HSMappingMatch:    true,
		ConfidenceSources: []string{SourceLearnedMapping},
	}
	score := lookup.Mapping.Confidence(w.MappingDefault)

	if e.verify(ctx, m.CompanyName).Verified() {
		m.ApolloVerified = true
		score += w.MappingVerified
		m.ConfidenceSources = append(m.ConfidenceSources, SourceApolloVerified)
	}
	if CommodityKeywordMatch(f) {
		m.CommodityKeywordMatch = true
		score += w.MappingKeyword
		m.ConfidenceSources = append(m.ConfidenceSources, SourceCommodityKeyword)
	}
	// Reported for the caller; it carries no points in this strategy.
	if PortZipMatch(f) {
		m.PortZipMatch = true
		m.ConfidenceSources = append(m.ConfidenceSources, SourcePortZip)
	}

	m.ConfidenceScore = clamp(score)
	return m
}

// PatternInference infers a company from static tables and scores the
// supporting evidence. A missing contact is negative evidence.
func (e *Engine) PatternInference(ctx context.Context, f ConfidenceFactors) CompanyMatch {
	f = f.trimmed()
	inf := InferCompany(f)
	if inf.CompanyName == "" {
		return EmptyMatch()
	}
	w := e.weights

	// The mapping check and the contact lookup are independent; run them
	// together and join before scoring.
	var (
		hasMapping   bool
		verification Verification
		g            errgroup.Group
	)
	g.Go(func() error {
		hasMapping = e.hasMapping(ctx, f)
		return nil
	})
	g.Go(func() error {
		verification = e.verify(ctx, inf.CompanyName)
		return nil
	})
	_ = g.Wait()

	m := CompanyMatch{
		CompanyName:       inf.CompanyName,
		Strategy:          StrategyPatternInference,
		ConfidenceSources: []string{SourcePatternInference},
	}
	score := w.PatternBase

	if hasMapping {
		m.HSMappingMatch = true
		score += w.PatternMapping
		m.ConfidenceSources = append(m.ConfidenceSources, SourceHSMapping)
	}
	if CommodityKeywordMatch(f) {
		m.CommodityKeywordMatch = true
		score += w.PatternKeyword
		m.ConfidenceSources = append(m.ConfidenceSources, SourceCommodityKeyword)
	}
	if PortZipMatch(f) {
		m.PortZipMatch = true
		score += w.PatternPortZip
		m.ConfidenceSources = append(m.ConfidenceSources, SourcePortZip)
	}
	if CountryPortMatch(f) {
		m.CountryPortMatch = true
		score += w.PatternCountryPort
		m.ConfidenceSources = append(m.ConfidenceSources, SourceCountryPort)
	}
	if verification.Verified() {
		m.ApolloVerified = true
		score += w.PatternVerified
		m.ConfidenceSources = append(m.ConfidenceSources, SourceApolloVerified)
	} else {
		score -= w.PatternUnverified
		m.ConfidenceSources = append(m.ConfidenceSources, SourceNoApolloContact)
	}

	m.ConfidenceScore = clamp(score)
	return m
}

func (e *Engine) verify(ctx context.Context, companyName string) Verification {
	if companyName == "" {
		return VerificationResult(0)
	}
	v := e.verifier.Verify(ctx, companyName)
	if v.Status == VerificationFailed {
		e.log.Debug("contact verification unavailable",
			zap.String("company", companyName),
			zap.Error(v.Err),
		)
	}
	return v
}

func (e *Engine) topMapping(ctx context.Context, f ConfidenceFactors) MappingLookup {
	if f.HSCode == "" || f.Country == "" {
		return MappingLookup{}
	}
	m, err := e.mappings.TopMapping(ctx, f.HSCode, f.Country)
	if err != nil {
		e.log.Warn("mapping lookup failed",
			zap.String("hs_code", f.HSCode),
			zap.String("country", f.Country),
			zap.Error(err),
		)
		return MappingLookup{Err: err}
	}
	return MappingLookup{Mapping: m}
}

func (e *Engine) hasMapping(ctx context.Context, f ConfidenceFactors) bool {
	if f.HSCode == "" || f.Country == "" {
		return false
	}
	ok, err := e.mappings.HasMapping(ctx, f.HSCode, f.Country)
	if err != nil {
		e.log.Warn("mapping existence check failed",
			zap.String("hs_code", f.HSCode),
			zap.String("country", f.Country),
			zap.Error(err),
		)
		return false
	}
	return ok
}
