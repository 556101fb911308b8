package match

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/shipper-match/internal/model"
	"github.com/sells-group/shipper-match/pkg/apollo"
)

// --- Mapping source mock ---

type mockMappings struct {
	mock.Mock
}

func (m *mockMappings) TopMapping(ctx context.Context, hsCode, country string) (*model.HSMapping, error) {
	args := m.Called(ctx, hsCode, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HSMapping), args.Error(1)
}

func (m *mockMappings) HasMapping(ctx context.Context, hsCode, country string) (bool, error) {
	args := m.Called(ctx, hsCode, country)
	return args.Bool(0), args.Error(1)
}

// --- Contact verifier mock ---

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, companyName string) Verification {
	args := m.Called(ctx, companyName)
	return args.Get(0).(Verification)
}

// --- Audit store mock ---

type mockAuditStore struct {
	mock.Mock
}

func (m *mockAuditStore) AppendSearchLog(ctx context.Context, entry *model.SearchLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditStore) AppendFeedback(ctx context.Context, fb *model.CompanyFeedback) error {
	args := m.Called(ctx, fb)
	return args.Error(0)
}

// --- Apollo client fake ---

type fakeApollo struct {
	calls int
	fn    func(req apollo.PeopleSearchRequest) (*apollo.PeopleSearchResponse, error)
}

func (f *fakeApollo) SearchPeople(_ context.Context, req apollo.PeopleSearchRequest) (*apollo.PeopleSearchResponse, error) {
	f.calls++
	return f.fn(req)
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }
