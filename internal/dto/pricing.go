package dto

import "github.com/noah-isme/sports-academy-api/internal/models"

// PricingResponse decorates a calculation with display amounts.
type PricingResponse struct {
	models.PricingCalculation
	RegistrationFee  string `json:"registrationFee"`
	CertificationFee string `json:"certificationFee"`
	TotalAmount      string `json:"totalAmount"`
}

// NewPricingResponse builds the response for calc.
func NewPricingResponse(calc *models.PricingCalculation) PricingResponse {
	return PricingResponse{
		PricingCalculation: *calc,
		RegistrationFee:    FormatMinorUnits(calc.RegistrationFeeMinorUnits, calc.Currency),
		CertificationFee:   FormatMinorUnits(calc.CertificationFeeMinorUnits, calc.Currency),
		TotalAmount:        FormatMinorUnits(calc.TotalAmountMinorUnits, calc.Currency),
	}
}

// BankDetails are the static account details shown for manual transfers.
type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
	SwiftCode     string `json:"swiftCode,omitempty"`
}
