// Package store persists learned HS mappings and the search and feedback
// audit trail.
package store

import (
	"context"

	"github.com/sells-group/shipper-match/internal/model"
)

// Store defines the persistence interface for the matcher. It satisfies
// match.MappingSource and match.AuditStore.
type Store interface {
	// Learned mappings
	TopMapping(ctx context.Context, hsCode, country string) (*model.HSMapping, error)
	HasMapping(ctx context.Context, hsCode, country string) (bool, error)
	UpsertMappings(ctx context.Context, mappings []model.HSMapping) (int64, error)

	// Audit trail (append-only)
	AppendSearchLog(ctx context.Context, entry *model.SearchLog) error
	AppendFeedback(ctx context.Context, fb *model.CompanyFeedback) error
	CorrectionVotes(ctx context.Context) ([]model.CorrectionVote, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// dedupeMappings collapses repeated (hs_code, country, company_name) keys,
// keeping the entry with the highest override. NULL overrides rank last.
// First-seen order is preserved.
func dedupeMappings(mappings []model.HSMapping) []model.HSMapping {
	type key struct{ hs, country, company string }
	pos := make(map[key]int, len(mappings))
	out := make([]model.HSMapping, 0, len(mappings))
	for _, m := range mappings {
		k := key{m.HSCode, m.Country, m.CompanyName}
		i, seen := pos[k]
		if !seen {
			pos[k] = len(out)
			out = append(out, m)
			continue
		}
		if overrideRank(m.ConfidenceOverride) > overrideRank(out[i].ConfidenceOverride) {
			out[i] = m
		}
	}
	return out
}

func overrideRank(v *int) int {
	if v == nil {
		return -1
	}
	return *v
}
