package match

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/shipper-match/internal/model"
)

// AuditStore appends search and feedback records.
type AuditStore interface {
	AppendSearchLog(ctx context.Context, entry *model.SearchLog) error
	AppendFeedback(ctx context.Context, fb *model.CompanyFeedback) error
}

// Sink records searches and user feedback for later learning. It never
// influences a score and never returns store errors to the caller.
type Sink struct {
	store   AuditStore
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewSink creates a Sink writing to store. A nil store drops every record.
func NewSink(store AuditStore) *Sink {
	return &Sink{
		store:   store,
		timeout: 5 * time.Second,
		log:     zap.L().With(zap.String("component", "match_sink")),
		now:     time.Now,
	}
}

// LogSearch records a search in the background. The write outlives ctx
// cancellation but is bounded by the sink timeout; failures are logged.
func (s *Sink) LogSearch(ctx context.Context, term string, filters map[string]any, resultCount int, avgConfidence float64) {
	if s == nil || s.store == nil {
		return
	}
	entry := &model.SearchLog{
		ID:            uuid.New().String(),
		SearchTerm:    strings.TrimSpace(term),
		Filters:       maps.Clone(filters),
		ResultCount:   resultCount,
		AvgConfidence: avgConfidence,
		CreatedAt:     s.now().UTC(),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := s.store.AppendSearchLog(writeCtx, entry); err != nil {
			s.log.Warn("search log write failed",
				zap.String("search_term", entry.SearchTerm),
				zap.Error(err),
			)
		}
	}()
}

// SubmitFeedback records a user verdict on a match and reports whether it
// was stored. Invalid feedback and store failures report false.
func (s *Sink) SubmitFeedback(ctx context.Context, originalCompany string, correctedCompany *string, hsCode, country string, confidenceAtTime int, feedbackType model.FeedbackType) bool {
	if s == nil || s.store == nil {
		return false
	}

	fb := &model.CompanyFeedback{
		ID:               uuid.New().String(),
		OriginalCompany:  strings.TrimSpace(originalCompany),
		HSCode:           strings.TrimSpace(hsCode),
		Country:          strings.TrimSpace(country),
		ConfidenceAtTime: clamp(confidenceAtTime),
		FeedbackType:     feedbackType,
		CreatedAt:        s.now().UTC(),
	}
	if correctedCompany != nil {
		corrected := strings.TrimSpace(*correctedCompany)
		if corrected != "" {
			fb.CorrectedCompany = &corrected
		}
	}

	if err := fb.Validate(); err != nil {
		s.log.Warn("feedback rejected", zap.Error(err))
		return false
	}

	if err := s.store.AppendFeedback(ctx, fb); err != nil {
		s.log.Error("feedback write failed",
			zap.String("original_company", fb.OriginalCompany),
			zap.String("feedback_type", string(fb.FeedbackType)),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Wait blocks until background search-log writes have finished.
func (s *Sink) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}
