package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sports-academy-api/internal/dto"
	"github.com/noah-isme/sports-academy-api/internal/models"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
	"github.com/noah-isme/sports-academy-api/pkg/response"
)

// multipartOverhead leaves room for the form fields and boundaries around the proof file.
const multipartOverhead = 1 << 20

const proofField = "paymentScreenshot"

type checkoutService interface {
	Start(ctx context.Context, actor models.Actor, rc models.RegistrationContext) (*dto.CheckoutView, error)
	Get(ctx context.Context, actor models.Actor, id string) (*dto.CheckoutView, error)
	Resolve(ctx context.Context, actor models.Actor, id string, req dto.UpdateCheckoutRequest) (*dto.CheckoutView, error)
	ChooseMethod(ctx context.Context, actor models.Actor, id string, method models.PaymentMethod) (*dto.CheckoutView, error)
	ConfirmCard(ctx context.Context, actor models.Actor, id string, req dto.ConfirmCardRequest) (*models.RegistrationResult, error)
	SubmitBankTransfer(ctx context.Context, actor models.Actor, id string, req dto.BankTransferRequest) (*models.RegistrationResult, error)
	SubmitFree(ctx context.Context, actor models.Actor, id string) (*models.RegistrationResult, error)
	DelegateToParent(ctx context.Context, actor models.Actor, id string) (*dto.DelegateResponse, error)
	Cancel(ctx context.Context, actor models.Actor, id string) (*dto.CheckoutView, error)
	Receipt(ctx context.Context, actor models.Actor, id string) ([]byte, string, error)
	VerifyDelegateLink(ctx context.Context, token string) (*dto.DelegateLinkView, error)
}

// CheckoutHandler exposes the payment method selector.
type CheckoutHandler struct {
	checkouts     checkoutService
	maxProofBytes int64
}

// NewCheckoutHandler constructs CheckoutHandler. maxProofBytes bounds bank transfer uploads.
func NewCheckoutHandler(checkouts checkoutService, maxProofBytes int64) *CheckoutHandler {
	if maxProofBytes <= 0 {
		maxProofBytes = 5 * 1024 * 1024
	}
	return &CheckoutHandler{checkouts: checkouts, maxProofBytes: maxProofBytes}
}

// Start godoc
// @Summary Start a checkout
// @Description Prices the registration and creates a payment reference when payment is due
// @Tags Checkout
// @Accept json
// @Produce json
// @Param payload body models.RegistrationContext true "Registration context"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /checkouts [post]
func (h *CheckoutHandler) Start(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var rc models.RegistrationContext
	if err := c.ShouldBindJSON(&rc); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid checkout payload"))
		return
	}
	view, err := h.checkouts.Start(c.Request.Context(), actor, rc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Get godoc
// @Summary Get a checkout
// @Tags Checkout
// @Produce json
// @Param id path string true "Checkout ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /checkouts/{id} [get]
func (h *CheckoutHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	view, err := h.checkouts.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// VerifyDelegateLink godoc
// @Summary Open a parent payment link
// @Tags Checkout
// @Produce json
// @Param token query string true "Signed link token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /delegate/verify [get]
func (h *CheckoutHandler) VerifyDelegateLink(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	view, err := h.checkouts.VerifyDelegateLink(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Change the registration context
// @Description Re-prices the checkout. Results of superseded updates are discarded.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param id path string true "Checkout ID"
// @Param payload body dto.UpdateCheckoutRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /checkouts/{id} [put]
func (h *CheckoutHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid checkout update"))
		return
	}
	view, err := h.checkouts.Resolve(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ChooseMethod godoc
// @Summary Choose a payment method
// @Tags Checkout
// @Accept json
// @Produce json
// @Param id path string true "Checkout ID"
// @Param payload body models.PaymentMethod true "Method"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /checkouts/{id}/method [post]
func (h *CheckoutHandler) ChooseMethod(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var method models.PaymentMethod
	if err := c.ShouldBindJSON(&method); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment method"))
		return
	}
	view, err := h.checkouts.ChooseMethod(c.Request.Context(), actor, c.Param("id"), method)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Confirm godoc
// @Summary Confirm a card payment
// @Tags Checkout
// @Accept json
// @Produce json
// @Param id path string true "Checkout ID"
// @Param payload body dto.ConfirmCardRequest true "Provider confirmation"
// @Success 201 {object} response.Envelope
// @Success 207 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /checkouts/{id}/confirm [post]
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ConfirmCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid confirmation payload"))
		return
	}
	result, err := h.checkouts.ConfirmCard(c.Request.Context(), actor, c.Param("id"), req)
	writeRegistration(c, result, err)
}

// BankTransfer godoc
// @Summary Submit a bank transfer
// @Description Multipart form with referenceNumber (12 digits) and paymentScreenshot (png, jpg, webp or pdf)
// @Tags Checkout
// @Accept mpfd
// @Produce json
// @Param id path string true "Checkout ID"
// @Param referenceNumber formData string true "Bank reference"
// @Param paymentScreenshot formData file true "Proof of transfer"
// @Success 201 {object} response.Envelope
// @Success 207 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /checkouts/{id}/bank-transfer [post]
func (h *CheckoutHandler) BankTransfer(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxProofBytes+multipartOverhead)
	if err := c.Request.ParseMultipartForm(h.maxProofBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.WithDetails(appErrors.ErrFileTooLarge, "maxBytes", h.maxProofBytes))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}

	proof, err := h.readProof(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req := dto.BankTransferRequest{ReferenceNumber: c.PostForm("referenceNumber"), Proof: proof}

	result, err := h.checkouts.SubmitBankTransfer(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	body := dto.NewBankTransferResponse(result)
	if result.Status == models.RegistrationPartial {
		response.Partial(c, body)
		return
	}
	response.Created(c, body)
}

// Free godoc
// @Summary Submit a free registration
// @Tags Checkout
// @Produce json
// @Param id path string true "Checkout ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /checkouts/{id}/free [post]
func (h *CheckoutHandler) Free(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.checkouts.SubmitFree(c.Request.Context(), actor, c.Param("id"))
	writeRegistration(c, result, err)
}

// Delegate godoc
// @Summary Email parents a payment link
// @Tags Checkout
// @Produce json
// @Param id path string true "Checkout ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /checkouts/{id}/delegate [post]
func (h *CheckoutHandler) Delegate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	res, err := h.checkouts.DelegateToParent(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Cancel godoc
// @Summary Cancel a checkout
// @Tags Checkout
// @Produce json
// @Param id path string true "Checkout ID"
// @Success 200 {object} response.Envelope
// @Router /checkouts/{id} [delete]
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	view, err := h.checkouts.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Receipt godoc
// @Summary Download the PDF receipt
// @Tags Checkout
// @Produce application/pdf
// @Param id path string true "Checkout ID"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /checkouts/{id}/receipt [get]
func (h *CheckoutHandler) Receipt(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	pdf, filename, err := h.checkouts.Receipt(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *CheckoutHandler) readProof(c *gin.Context) (*dto.ProofUpload, error) {
	header, err := c.FormFile(proofField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form")
	}
	if header.Size > h.maxProofBytes {
		return nil, appErrors.WithDetails(appErrors.ErrFileTooLarge, "maxBytes", h.maxProofBytes)
	}
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable proof file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxProofBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable proof file")
	}
	return &dto.ProofUpload{Filename: header.Filename, Size: header.Size, Data: data}, nil
}

// writeRegistration maps a registration outcome onto 201, or 207 when some rows failed.
func writeRegistration(c *gin.Context, result *models.RegistrationResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Status == models.RegistrationPartial {
		response.Partial(c, result)
		return
	}
	response.Created(c, result)
}
