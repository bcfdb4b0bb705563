package models

// PricingSource records which price table resolved a calculation.
type PricingSource string

const (
	PricingSourceSport   PricingSource = "SPORT"
	PricingSourceCountry PricingSource = "COUNTRY"
)

// PricingOutcome is the explicit free-vs-paid verdict of a calculation.
type PricingOutcome string

const (
	PricingOutcomeFree            PricingOutcome = "FREE"
	PricingOutcomePaymentRequired PricingOutcome = "PAYMENT_REQUIRED"
)

// PricingRequest identifies what to price. SportID wins over Country when both resolve.
type PricingRequest struct {
	SportID              string `json:"sportId" form:"sportId"`
	Country              string `json:"country" form:"country"`
	IncludeCertification bool   `json:"includeCertification" form:"includeCertification"`
	StudentCount         int    `json:"studentCount" form:"studentCount" validate:"min=1"`
}

// PricingCalculation is a deterministic fee breakdown in minor units.
type PricingCalculation struct {
	Country                    string         `json:"country"`
	Currency                   string         `json:"currency"`
	RegistrationFeeMinorUnits  int64          `json:"registrationFeeMinorUnits"`
	CertificationFeeMinorUnits int64          `json:"certificationFeeMinorUnits"`
	TotalAmountMinorUnits      int64          `json:"totalAmountMinorUnits"`
	SportName                  string         `json:"sportName,omitempty"`
	StudentCount               int            `json:"studentCount"`
	IncludeCertification       bool           `json:"includeCertification"`
	Source                     PricingSource  `json:"source"`
	Outcome                    PricingOutcome `json:"outcome"`
}

// IsFree reports whether no payment is due.
func (p *PricingCalculation) IsFree() bool {
	return p != nil && p.Outcome == PricingOutcomeFree
}

// SportPrice is a row of the sport_prices table.
type SportPrice struct {
	SportID               string `db:"sport_id" json:"sportId"`
	SportName             string `db:"sport_name" json:"sportName"`
	Currency              string `db:"currency" json:"currency"`
	RegistrationFeeMinor  int64  `db:"registration_fee_minor" json:"registrationFeeMinor"`
	CertificationFeeMinor int64  `db:"certification_fee_minor" json:"certificationFeeMinor"`
}

// CountryPrice is a row of the country_prices table. Country keys are stored lower case.
type CountryPrice struct {
	Country               string `db:"country" json:"country"`
	Currency              string `db:"currency" json:"currency"`
	RegistrationFeeMinor  int64  `db:"registration_fee_minor" json:"registrationFeeMinor"`
	CertificationFeeMinor int64  `db:"certification_fee_minor" json:"certificationFeeMinor"`
}
