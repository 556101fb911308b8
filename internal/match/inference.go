package match

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// InferenceBasis records where an inferred company name came from.
type InferenceBasis string

// Inference bases, from strongest to weakest.
const (
	BasisHSTable       InferenceBasis = "hs_table"
	BasisCommodityHint InferenceBasis = "commodity_hint"
	BasisFallback      InferenceBasis = "fallback"
)

// Inference is a company name derived from static tables.
type Inference struct {
	CompanyName string
	Candidates  []string
	Basis       InferenceBasis
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// InferCompany derives a plausible company name from the HS code, origin
// country and commodity description. Selection among several candidates is
// deterministic: the last two digits of the HS code modulo the number of
// candidates.
func InferCompany(f ConfidenceFactors) Inference {
	f = f.trimmed()

	if candidates := tableCandidates(f.HSCode, f.Country); len(candidates) > 0 {
		return Inference{
			CompanyName: selectCandidate(f.HSCode, candidates),
			Candidates:  candidates,
			Basis:       BasisHSTable,
		}
	}

	if f.Country == "" {
		return Inference{}
	}
	country := titleCaser.String(f.Country)

	commodity := strings.ToLower(f.CommodityName)
	for _, c := range commodityCategories {
		if !strings.Contains(commodity, c.hint) {
			continue
		}
		candidates := make([]string, len(synthesizedSuffixes))
		for i, suffix := range synthesizedSuffixes {
			candidates[i] = country + " " + c.category + " " + suffix
		}
		return Inference{
			CompanyName: selectCandidate(f.HSCode, candidates),
			Candidates:  candidates,
			Basis:       BasisCommodityHint,
		}
	}

	name := country + " Trading Company"
	return Inference{CompanyName: name, Candidates: []string{name}, Basis: BasisFallback}
}

// tableCandidates returns the candidate list for an HS code and country,
// falling back to the code's default list. Only exact codes are looked up;
// dots and spaces are ignored.
func tableCandidates(hsCode, country string) []string {
	byCountry := lookupHS(hsCode)
	if byCountry == nil {
		return nil
	}
	if names := byCountry[strings.ToLower(country)]; len(names) > 0 {
		return names
	}
	return byCountry[defaultCandidates]
}

func lookupHS(hsCode string) map[string][]string {
	code := strings.NewReplacer(".", "", " ", "").Replace(hsCode)
	if code == "" {
		return nil
	}
	return companyInference[code]
}

// selectCandidate picks a candidate by the HS code's last two digits.
// Codes without two trailing digits select the first candidate.
func selectCandidate(hsCode string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[hsSelector(hsCode)%len(candidates)]
}

func hsSelector(hsCode string) int {
	code := strings.TrimSpace(hsCode)
	if len(code) < 2 {
		return 0
	}
	n, err := strconv.Atoi(code[len(code)-2:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
