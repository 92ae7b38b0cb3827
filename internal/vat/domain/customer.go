package domain

import "strings"

// CustomerType is the VAT treatment of a buyer.
type CustomerType string

const (
	CustomerB2C      CustomerType = "B2C"
	CustomerB2BIE    CustomerType = "B2B_IE"
	CustomerB2BEU    CustomerType = "B2B_EU"
	CustomerB2BNonEU CustomerType = "B2B_NON_EU"
)

// ChargesVAT reports whether lines for this customer carry domestic VAT.
func (c CustomerType) ChargesVAT() bool {
	return c == CustomerB2C || c == CustomerB2BIE
}

// Jurisdiction describes the seller's home country and the EU member set.
type Jurisdiction struct {
	HomeCountry string
	EUCountries map[string]struct{}
}

func NewJurisdiction(homeCountry string, euCountries []string) Jurisdiction {
	set := make(map[string]struct{}, len(euCountries))
	for _, code := range euCountries {
		code = NormalizeCountry(code)
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return Jurisdiction{
		HomeCountry: NormalizeCountry(homeCountry),
		EUCountries: set,
	}
}

// IsEU reports EU membership. The home country counts as EU.
func (j Jurisdiction) IsEU(country string) bool {
	country = NormalizeCountry(country)
	if country == "" {
		return false
	}
	if country == j.HomeCountry {
		return true
	}
	_, ok := j.EUCountries[country]
	return ok
}

// IsOtherEU reports membership of the EU excluding the home country.
func (j Jurisdiction) IsOtherEU(country string) bool {
	country = NormalizeCountry(country)
	return country != j.HomeCountry && j.IsEU(country)
}

// Classifier decides a customer's VAT treatment.
type Classifier struct {
	jurisdiction Jurisdiction
}

func NewClassifier(j Jurisdiction) Classifier {
	return Classifier{jurisdiction: j}
}

// Classify maps a billing country and optional VAT number to a CustomerType.
//
// EU customers outside the home country are all treated as B2B_EU whether
// or not they supplied a VAT number. Consumer distance sales therefore go
// through reverse charge here; keep the rule in this function so it can be
// corrected without touching the calculator.
func (c Classifier) Classify(country string, vatNumber *string) CustomerType {
	country = NormalizeCountry(country)
	switch {
	case country != "" && country == c.jurisdiction.HomeCountry:
		if hasVATNumber(vatNumber) {
			return CustomerB2BIE
		}
		return CustomerB2C
	case c.jurisdiction.IsOtherEU(country):
		return CustomerB2BEU
	default:
		return CustomerB2BNonEU
	}
}

func hasVATNumber(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}

// NormalizeCountry upper-cases and trims an ISO 3166-1 alpha-2 code.
func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
