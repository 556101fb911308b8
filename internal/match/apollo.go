package match

import (
	"context"
	"errors"

	"github.com/sells-group/shipper-match/internal/resilience"
	"github.com/sells-group/shipper-match/pkg/apollo"
)

// ApolloVerifier verifies companies against the Apollo people directory.
// Calls go through a circuit breaker and are never retried.
type ApolloVerifier struct {
	client  apollo.Client
	breaker *resilience.Breaker
}

// NewApolloVerifier wraps an Apollo client. A nil breaker disables
// short-circuiting.
func NewApolloVerifier(client apollo.Client, breaker *resilience.Breaker) *ApolloVerifier {
	return &ApolloVerifier{client: client, breaker: breaker}
}

// Verify reports whether Apollo knows at least one contact at companyName.
func (v *ApolloVerifier) Verify(ctx context.Context, companyName string) Verification {
	if v == nil || v.client == nil {
		return VerificationFailure(apollo.ErrMissingAPIKey)
	}

	resp, err := resilience.Call(ctx, v.breaker, func(ctx context.Context) (*apollo.PeopleSearchResponse, error) {
		resp, err := v.client.SearchPeople(ctx, apollo.PeopleSearchRequest{
			OrganizationName: companyName,
			Page:             1,
			PerPage:          1,
		})
		var se *apollo.StatusError
		if errors.As(err, &se) {
			err = resilience.ClassifyStatus(err, se.StatusCode)
		}
		return resp, err
	})
	if err != nil {
		return VerificationFailure(err)
	}
	return VerificationResult(resp.ContactCount())
}
