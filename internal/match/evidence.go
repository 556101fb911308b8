package match

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shipper-match/internal/model"
)

// CommodityKeywordMatch reports whether the commodity description mentions
// one of the air-freight commodity keywords.
func CommodityKeywordMatch(f ConfidenceFactors) bool {
	commodity := strings.ToLower(f.CommodityName)
	if strings.TrimSpace(commodity) == "" {
		return false
	}
	for _, kw := range commodityKeywords {
		if strings.Contains(commodity, kw) {
			return true
		}
	}
	return false
}

// PortZipMatch reports whether a port or customs district names a major
// gateway city, or the consignee ZIP is a major gateway ZIP.
func PortZipMatch(f ConfidenceFactors) bool {
	for _, field := range []string{f.PortOfOrigin, f.PortOfArrival, f.CustomsDistrict} {
		field = strings.ToLower(field)
		if field == "" {
			continue
		}
		for _, city := range majorPortCities {
			if strings.Contains(field, city) {
				return true
			}
		}
	}
	return majorZips[strings.TrimSpace(f.ConsigneeZip)]
}

// CountryPortMatch reports whether one of the origin country's cargo airport
// codes appears as a whole word in the port of origin or arrival. "Incheon
// (ICN)" matches ICN; "San Francisco" does not match FRA.
func CountryPortMatch(f ConfidenceFactors) bool {
	codes := countryAirports[strings.ToLower(strings.TrimSpace(f.Country))]
	if len(codes) == 0 {
		return false
	}
	for _, port := range []string{f.PortOfOrigin, f.PortOfArrival} {
		for _, token := range portTokens(port) {
			if slices.Contains(codes, token) {
				return true
			}
		}
	}
	return false
}

// portTokens splits a port description into upper-cased alphanumeric words.
func portTokens(port string) []string {
	return strings.FieldsFunc(strings.ToUpper(port), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// MappingSource reads the learned HS code + country -> company table.
type MappingSource interface {
	// TopMapping returns the highest-confidence mapping, or nil when none exists.
	TopMapping(ctx context.Context, hsCode, country string) (*model.HSMapping, error)
	// HasMapping reports whether any mapping exists.
	HasMapping(ctx context.Context, hsCode, country string) (bool, error)
}

// MappingLookup is the outcome of a mapping-store read. A failed read is
// reported through Err and never as a found mapping.
type MappingLookup struct {
	Mapping *model.HSMapping
	Err     error
}

// Found reports whether a usable mapping was returned.
func (l MappingLookup) Found() bool {
	return l.Err == nil && l.Mapping != nil && strings.TrimSpace(l.Mapping.CompanyName) != ""
}

// VerificationStatus is the outcome class of a contact verification.
type VerificationStatus int

// Verification outcomes. Failed covers every case where the directory could
// not answer (missing credential, network error, non-success response).
const (
	VerificationFailed VerificationStatus = iota
	VerificationNotFound
	VerificationVerified
)

func (s VerificationStatus) String() string {
	switch s {
	case VerificationVerified:
		return "verified"
	case VerificationNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Verification is the outcome of asking the contact directory about a company.
type Verification struct {
	Status   VerificationStatus
	Contacts int
	Err      error
}

// Verified reports whether at least one contact was confirmed.
func (v Verification) Verified() bool {
	return v.Status == VerificationVerified
}

// VerificationFailure builds a failed outcome.
func VerificationFailure(err error) Verification {
	return Verification{Status: VerificationFailed, Err: err}
}

// VerificationResult builds an outcome from a contact count.
func VerificationResult(contacts int) Verification {
	if contacts > 0 {
		return Verification{Status: VerificationVerified, Contacts: contacts}
	}
	return Verification{Status: VerificationNotFound}
}

// ContactVerifier asks an external contact directory whether a company has
// at least one known contact. Implementations report failures in the
// returned Verification instead of panicking or blocking forever.
type ContactVerifier interface {
	Verify(ctx context.Context, companyName string) Verification
}

// ErrNoVerifier is reported when the engine has no contact directory configured.
var ErrNoVerifier = eris.New("match: no contact verifier configured")

type noVerifier struct{}

func (noVerifier) Verify(context.Context, string) Verification {
	return VerificationFailure(ErrNoVerifier)
}

// ErrNoMappings is reported when the engine has no mapping store configured.
var ErrNoMappings = eris.New("match: no mapping source configured")

type noMappings struct{}

func (noMappings) TopMapping(context.Context, string, string) (*model.HSMapping, error) {
	return nil, ErrNoMappings
}

func (noMappings) HasMapping(context.Context, string, string) (bool, error) {
	return false, ErrNoMappings
}
