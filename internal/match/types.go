// Package match infers which real-world company a trade record belongs to.
//
// A record's attributes (ConfidenceFactors) are run through three escalating
// strategies: the declared consignee name, a learned HS code + country
// mapping, and pattern inference from static tables. Each strategy fuses
// independent evidence checks into a 0-100 confidence score. The first of the
// first two strategies to reach the threshold wins; otherwise the pattern
// inference result is returned.
package match

import "strings"

// Strategy identifies which match strategy produced a CompanyMatch.
type Strategy string

// Strategies in priority order.
const (
	StrategyNone             Strategy = ""
	StrategyDirectConsignee  Strategy = "direct_consignee"
	StrategyLearnedMapping   Strategy = "learned_mapping"
	StrategyPatternInference Strategy = "pattern_inference"
)

// Evidence tags reported in CompanyMatch.ConfidenceSources.
const (
	SourceDirectConsignee  = "Direct Consignee Name"
	SourceLearnedMapping   = "HS Code + Country Mapping"
	SourcePatternInference = "Pattern Inference"

	SourceApolloVerified   = "Apollo Contact Verified"
	SourceNoApolloContact  = "No Apollo Contact"
	SourceCommodityKeyword = "Commodity Keyword Match"
	SourcePortZip          = "Port/ZIP Match"
	SourceHSMapping        = "HS Mapping Exists"
	SourceCountryPort      = "Country Port Match"
)

// ConfidenceFactors are the trade-record attributes a match is inferred from.
type ConfidenceFactors struct {
	HSCode          string `json:"hs_code"`
	CommodityName   string `json:"commodity_name,omitempty"`
	Country         string `json:"country"`
	ConsigneeName   string `json:"consignee_name,omitempty"`
	ConsigneeZip    string `json:"consignee_zip,omitempty"`
	PortOfOrigin    string `json:"port_of_origin,omitempty"`
	PortOfArrival   string `json:"port_of_arrival,omitempty"`
	CustomsDistrict string `json:"customs_district,omitempty"`
}

// trimmed returns a copy with surrounding whitespace removed from every field.
func (f ConfidenceFactors) trimmed() ConfidenceFactors {
	return ConfidenceFactors{
		HSCode:          strings.TrimSpace(f.HSCode),
		CommodityName:   strings.TrimSpace(f.CommodityName),
		Country:         strings.TrimSpace(f.Country),
		ConsigneeName:   strings.TrimSpace(f.ConsigneeName),
		ConsigneeZip:    strings.TrimSpace(f.ConsigneeZip),
		PortOfOrigin:    strings.TrimSpace(f.PortOfOrigin),
		PortOfArrival:   strings.TrimSpace(f.PortOfArrival),
		CustomsDistrict: strings.TrimSpace(f.CustomsDistrict),
	}
}

// CompanyMatch is the result of a match. It is a value; callers own any
// persistence of it.
type CompanyMatch struct {
	CompanyName           string   `json:"company_name"`
	ConfidenceScore       int      `json:"confidence_score"`
	ConfidenceSources     []string `json:"confidence_sources"`
	Strategy              Strategy `json:"strategy,omitempty"`
	ApolloVerified        bool     `json:"apollo_verified"`
	BTSRouteMatch         bool     `json:"bts_route_match"`
	PortZipMatch          bool     `json:"port_zip_match"`
	HSMappingMatch        bool     `json:"hs_mapping_match"`
	CommodityKeywordMatch bool     `json:"commodity_keyword_match"`
	CountryPortMatch      bool     `json:"country_port_match"`
}

// EmptyMatch is the well-formed "nothing found" result.
func EmptyMatch() CompanyMatch {
	return CompanyMatch{ConfidenceSources: []string{}}
}

// IsEmpty reports whether no company was identified.
func (m CompanyMatch) IsEmpty() bool {
	return m.CompanyName == ""
}

// AverageConfidence returns the mean score of matches, or 0 for none.
func AverageConfidence(matches []CompanyMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum int
	for _, m := range matches {
		sum += m.ConfidenceScore
	}
	return float64(sum) / float64(len(matches))
}

// clamp bounds a raw score to [0, 100].
func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
