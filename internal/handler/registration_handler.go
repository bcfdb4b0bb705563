package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sports-academy-api/internal/models"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
	"github.com/noah-isme/sports-academy-api/pkg/response"
)

const maxImportBytes = 2 << 20

type bulkImporter interface {
	BulkImport(ctx context.Context, actor models.Actor, src io.Reader) (*models.BulkImportResult, error)
}

// RegistrationHandler serves administrative registration endpoints.
type RegistrationHandler struct {
	registrations bulkImporter
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations bulkImporter) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// Bulk godoc
// @Summary Bulk import registrations
// @Description CSV with student_id, sport_id and age_category_id columns. Payment is waived. Send the file as the "file" form field or as a text/csv body.
// @Tags Registrations
// @Accept mpfd
// @Accept text/csv
// @Produce json
// @Param file formData file false "CSV file"
// @Success 200 {object} response.Envelope
// @Success 207 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /registrations/bulk [post]
func (h *RegistrationHandler) Bulk(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	var src io.Reader = c.Request.Body
	if header, err := c.FormFile("file"); err == nil {
		file, openErr := header.Open()
		if openErr != nil {
			response.Error(c, appErrors.Wrap(openErr, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable csv file"))
			return
		}
		defer file.Close()
		src = file
	}

	result, err := h.registrations.BulkImport(c.Request.Context(), actor, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(result.Errors) > 0 {
		response.Partial(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
