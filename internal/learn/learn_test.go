package learn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shipper-match/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CorrectionVotes(ctx context.Context) ([]model.CorrectionVote, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CorrectionVote), args.Error(1)
}

func (m *mockStore) UpsertMappings(ctx context.Context, mappings []model.HSMapping) (int64, error) {
	args := m.Called(ctx, mappings)
	return args.Get(0).(int64), args.Error(1)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 75, Confidence(1))
	assert.Equal(t, 85, Confidence(3))
	assert.Equal(t, 95, Confidence(5))
	assert.Equal(t, 95, Confidence(40))
}

func TestPromoter_GroupsSpellings(t *testing.T) {
	st := &mockStore{}
	st.On("CorrectionVotes", mock.Anything).Return([]model.CorrectionVote{
		{HSCode: "8471600000", Country: "South Korea", CompanyName: "LG Electronics Inc", Votes: 2},
		{HSCode: "8471600000", Country: "south korea", CompanyName: "LG ELECTRONICS, INC.", Votes: 1},
		{HSCode: "8471600000", Country: "South Korea", CompanyName: "Acme Corp", Votes: 1},
		{HSCode: "8528520000", Country: "Taiwan", CompanyName: "Innolux Corp", Votes: 4},
	}, nil)
	st.On("UpsertMappings", mock.Anything, mock.Anything).Return(int64(2), nil)

	res, err := NewPromoter(st, 3, false).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Groups)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, int64(2), res.Upserted)
	require.Len(t, res.Promoted, 2)

	lg := res.Promoted[0]
	assert.Equal(t, "8471600000", lg.HSCode)
	assert.Equal(t, "LG Electronics Inc", lg.CompanyName)
	assert.Equal(t, 85, *lg.ConfidenceOverride)
	assert.Equal(t, model.MappingSourceFeedback, lg.Source)

	innolux := res.Promoted[1]
	assert.Equal(t, "Innolux Corp", innolux.CompanyName)
	assert.Equal(t, 90, *innolux.ConfidenceOverride)

	st.AssertCalled(t, "UpsertMappings", mock.Anything, res.Promoted)
}

func TestPromoter_DryRun(t *testing.T) {
	st := &mockStore{}
	st.On("CorrectionVotes", mock.Anything).Return([]model.CorrectionVote{
		{HSCode: "8517130000", Country: "China", CompanyName: "Xiaomi Corp", Votes: 5},
	}, nil)

	res, err := NewPromoter(st, 3, true).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Promoted, 1)
	assert.Zero(t, res.Upserted)
	st.AssertNotCalled(t, "UpsertMappings", mock.Anything, mock.Anything)
}

func TestPromoter_NothingToPromote(t *testing.T) {
	st := &mockStore{}
	st.On("CorrectionVotes", mock.Anything).Return([]model.CorrectionVote{
		{HSCode: "8517130000", Country: "China", CompanyName: "Xiaomi Corp", Votes: 1},
		{HSCode: "8517130000", Country: "China", CompanyName: "  ", Votes: 9},
	}, nil)

	res, err := NewPromoter(st, 2, false).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Promoted)
	assert.Equal(t, 1, res.Groups)
	st.AssertNotCalled(t, "UpsertMappings", mock.Anything, mock.Anything)
}

func TestPromoter_MinVotesFloor(t *testing.T) {
	st := &mockStore{}
	st.On("CorrectionVotes", mock.Anything).Return([]model.CorrectionVote{
		{HSCode: "8517130000", Country: "China", CompanyName: "Xiaomi Corp", Votes: 1},
	}, nil)
	st.On("UpsertMappings", mock.Anything, mock.Anything).Return(int64(1), nil)

	res, err := NewPromoter(st, 0, false).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Promoted, 1)
}

func TestPromoter_Errors(t *testing.T) {
	t.Run("votes", func(t *testing.T) {
		st := &mockStore{}
		st.On("CorrectionVotes", mock.Anything).Return(nil, errors.New("db down"))

		_, err := NewPromoter(st, 1, false).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "learn: load correction votes")
	})

	t.Run("upsert", func(t *testing.T) {
		st := &mockStore{}
		st.On("CorrectionVotes", mock.Anything).Return([]model.CorrectionVote{
			{HSCode: "8517130000", Country: "China", CompanyName: "Xiaomi Corp", Votes: 3},
		}, nil)
		st.On("UpsertMappings", mock.Anything, mock.Anything).Return(int64(0), errors.New("deadlock"))

		_, err := NewPromoter(st, 1, false).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "learn: upsert mappings")
	})
}

func TestPreferredSpelling(t *testing.T) {
	assert.Equal(t, "B", preferredSpelling(map[string]int{"A": 1, "B": 3}))
	assert.Equal(t, "A", preferredSpelling(map[string]int{"B": 2, "A": 2}))
	assert.Equal(t, "", preferredSpelling(nil))
}
