package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sports-academy-api/internal/dto"
	"github.com/noah-isme/sports-academy-api/internal/models"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
	"github.com/noah-isme/sports-academy-api/pkg/response"
)

type pricingService interface {
	Calculate(ctx context.Context, req models.PricingRequest) (*models.PricingCalculation, error)
	ListCountries(ctx context.Context) ([]string, error)
}

// PricingHandler exposes fee calculation and the static bank details.
type PricingHandler struct {
	pricing pricingService
	bank    dto.BankDetails
}

// NewPricingHandler constructs PricingHandler.
func NewPricingHandler(pricing pricingService, bank dto.BankDetails) *PricingHandler {
	return &PricingHandler{pricing: pricing, bank: bank}
}

// Calculate godoc
// @Summary Calculate registration fees
// @Description A sport price wins over the country price when both exist
// @Tags Pricing
// @Produce json
// @Param sportId query string false "Sport ID"
// @Param country query string false "Country"
// @Param includeCertification query bool false "Include certification fee"
// @Param studentCount query int false "Number of students" default(1)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pricing [get]
func (h *PricingHandler) Calculate(c *gin.Context) {
	req := models.PricingRequest{StudentCount: 1}
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pricing query"))
		return
	}

	calc, err := h.pricing.Calculate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewPricingResponse(calc), nil)
}

// Countries godoc
// @Summary List priced countries
// @Tags Pricing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pricing/countries [get]
func (h *PricingHandler) Countries(c *gin.Context) {
	countries, err := h.pricing.ListCountries(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, countries, nil)
}

// BankDetails godoc
// @Summary Bank transfer details
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments/bank-details [get]
func (h *PricingHandler) BankDetails(c *gin.Context) {
	if h.bank.AccountNumber == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "bank transfer is not configured"))
		return
	}
	response.JSON(c, http.StatusOK, h.bank, nil)
}
