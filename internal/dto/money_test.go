package dto

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sports-academy-api/internal/models"
)

func TestFormatMinorUnits(t *testing.T) {
	cases := []struct {
		amount   int64
		currency string
		want     string
	}{
		{12000, "USD", "120.00"},
		{5, "usd", "0.05"},
		{0, "INR", "0.00"},
		{1500, "JPY", "1500"},
		{1234, "KWD", "1.234"},
		{7, "BHD", "0.007"},
		{-250, "EUR", "-2.50"},
		{math.MinInt64, "JPY", "-9223372036854775808"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatMinorUnits(tc.amount, tc.currency), "%d %s", tc.amount, tc.currency)
	}
}

func TestNewCheckoutViewFormatsTotal(t *testing.T) {
	session := &models.CheckoutSession{ID: "co-1", Pricing: &models.PricingCalculation{Currency: "USD", TotalAmountMinorUnits: 12000}}
	view := NewCheckoutView(session, true)
	assert.Equal(t, "120.00", view.TotalAmount)
	assert.True(t, view.SubmitEnabled)

	assert.Empty(t, NewCheckoutView(&models.CheckoutSession{ID: "co-2"}, false).TotalAmount)
}

func TestNewPricingResponse(t *testing.T) {
	resp := NewPricingResponse(&models.PricingCalculation{Currency: "KWD", RegistrationFeeMinorUnits: 5000, CertificationFeeMinorUnits: 250, TotalAmountMinorUnits: 10500})
	assert.Equal(t, "5.000", resp.RegistrationFee)
	assert.Equal(t, "0.250", resp.CertificationFee)
	assert.Equal(t, "10.500", resp.TotalAmount)
}
