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

type eligibilityService interface {
	Options(ctx context.Context, sportID, ageCategoryID string) (*models.SportOptions, error)
	ListStudents(ctx context.Context, actor models.Actor, sportID, ageCategoryID, eventID string) ([]models.Student, error)
	SelectStudent(ctx context.Context, actor models.Actor, req dto.SelectRequest) (*dto.SelectionResult, error)
	ToggleSubstitute(ctx context.Context, actor models.Actor, req dto.SubstituteRequest) (*dto.SelectionResult, error)
}

// SportHandler serves sport options, eligible students and roster selection.
type SportHandler struct {
	eligibility eligibilityService
}

// NewSportHandler constructs SportHandler.
func NewSportHandler(eligibility eligibilityService) *SportHandler {
	return &SportHandler{eligibility: eligibility}
}

// Options godoc
// @Summary Sport options
// @Description Age categories, distances and sub types. Distances follow the age category when the sport requires it.
// @Tags Sports
// @Produce json
// @Param id path string true "Sport ID"
// @Param ageCategoryId query string false "Age category"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sports/{id}/options [get]
func (h *SportHandler) Options(c *gin.Context) {
	opts, err := h.eligibility.Options(c.Request.Context(), c.Param("id"), c.Query("ageCategoryId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opts, nil)
}

// Students godoc
// @Summary Students for a sport
// @Tags Sports
// @Produce json
// @Param id path string true "Sport ID"
// @Param ageCategoryId query string true "Age category"
// @Param eventId query string false "Event"
// @Success 200 {object} response.Envelope
// @Router /sports/{id}/students [get]
func (h *SportHandler) Students(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	students, err := h.eligibility.ListStudents(c.Request.Context(), actor, c.Param("id"), c.Query("ageCategoryId"), c.Query("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"count": len(students)})
}

// Select godoc
// @Summary Toggle a student in the roster
// @Tags Selections
// @Accept json
// @Produce json
// @Param payload body dto.SelectRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /selections/select [post]
func (h *SportHandler) Select(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid selection payload"))
		return
	}
	result, err := h.eligibility.SelectStudent(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Substitute godoc
// @Summary Toggle a substitute
// @Tags Selections
// @Accept json
// @Produce json
// @Param payload body dto.SubstituteRequest true "Substitute"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /selections/substitute [post]
func (h *SportHandler) Substitute(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid substitute payload"))
		return
	}
	result, err := h.eligibility.ToggleSubstitute(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
