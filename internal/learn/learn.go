// Package learn promotes agreeing user corrections into learned HS mappings.
package learn

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shipper-match/internal/match"
	"github.com/sells-group/shipper-match/internal/model"
)

const (
	baseConfidence = 70
	perVote        = 5
	maxConfidence  = 95
)

// Store is the persistence the promoter reads votes from and writes mappings to.
type Store interface {
	CorrectionVotes(ctx context.Context) ([]model.CorrectionVote, error)
	UpsertMappings(ctx context.Context, mappings []model.HSMapping) (int64, error)
}

// Result summarizes a promotion run.
type Result struct {
	Groups   int               `json:"groups"`
	Promoted []model.HSMapping `json:"promoted"`
	Skipped  int               `json:"skipped"`
	Upserted int64             `json:"upserted"`
}

// Promoter turns correction feedback into learned mappings.
type Promoter struct {
	store    Store
	minVotes int
	dryRun   bool
}

// NewPromoter creates a Promoter. minVotes below 1 is treated as 1.
func NewPromoter(store Store, minVotes int, dryRun bool) *Promoter {
	if minVotes < 1 {
		minVotes = 1
	}
	return &Promoter{store: store, minVotes: minVotes, dryRun: dryRun}
}

// Confidence is the override assigned to a mapping backed by votes agreeing
// corrections.
func Confidence(votes int) int {
	return min(maxConfidence, baseConfidence+perVote*votes)
}

type groupKey struct {
	hsCode  string
	country string
	name    string
}

type group struct {
	votes int
	// spellings counts each raw company name in the group.
	spellings map[string]int
	country   string
}

// Run groups corrections by HS code, country and normalized company name,
// and upserts every group with at least minVotes votes.
func (p *Promoter) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "learn"))

	votes, err := p.store.CorrectionVotes(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "learn: load correction votes")
	}

	groups := make(map[groupKey]*group)
	for _, v := range votes {
		name := match.NormalizeName(v.CompanyName)
		if name == "" || strings.TrimSpace(v.HSCode) == "" {
			continue
		}
		key := groupKey{
			hsCode:  strings.TrimSpace(v.HSCode),
			country: strings.ToLower(strings.TrimSpace(v.Country)),
			name:    name,
		}
		g, ok := groups[key]
		if !ok {
			g = &group{spellings: make(map[string]int), country: strings.TrimSpace(v.Country)}
			groups[key] = g
		}
		g.votes += v.Votes
		g.spellings[strings.TrimSpace(v.CompanyName)] += v.Votes
	}

	res := &Result{Groups: len(groups)}
	for key, g := range groups {
		if g.votes < p.minVotes {
			res.Skipped++
			continue
		}
		confidence := Confidence(g.votes)
		res.Promoted = append(res.Promoted, model.HSMapping{
			HSCode:             key.hsCode,
			Country:            g.country,
			CompanyName:        preferredSpelling(g.spellings),
			ConfidenceOverride: &confidence,
			Source:             model.MappingSourceFeedback,
		})
	}
	sort.Slice(res.Promoted, func(i, j int) bool {
		a, b := res.Promoted[i], res.Promoted[j]
		if a.HSCode != b.HSCode {
			return a.HSCode < b.HSCode
		}
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		return a.CompanyName < b.CompanyName
	})

	log.Info("correction groups evaluated",
		zap.Int("groups", res.Groups),
		zap.Int("promoted", len(res.Promoted)),
		zap.Int("skipped", res.Skipped),
		zap.Int("min_votes", p.minVotes),
		zap.Bool("dry_run", p.dryRun),
	)

	if p.dryRun || len(res.Promoted) == 0 {
		return res, nil
	}

	n, err := p.store.UpsertMappings(ctx, res.Promoted)
	if err != nil {
		return nil, eris.Wrap(err, "learn: upsert mappings")
	}
	res.Upserted = n
	return res, nil
}

// preferredSpelling picks the most-voted raw spelling, breaking ties by
// lexical order.
func preferredSpelling(spellings map[string]int) string {
	var best string
	bestVotes := -1
	for name, n := range spellings {
		if n > bestVotes || (n == bestVotes && name < best) {
			best, bestVotes = name, n
		}
	}
	return best
}
