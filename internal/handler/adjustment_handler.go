package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classboard-api/internal/dto"
	appErrors "github.com/noah-isme/classboard-api/pkg/errors"
	"github.com/noah-isme/classboard-api/pkg/response"
)

type adjustmentService interface {
	Shift(ctx context.Context, schoolID string, req dto.GlobalShiftRequest) (*dto.GlobalShiftResponse, error)
	SetOptOut(schoolID, teacherID string, req dto.OptOutRequest) error
	OptOuts(schoolID, date string) []string
}

// AdjustmentHandler exposes the whole-school day shift endpoints.
type AdjustmentHandler struct {
	service adjustmentService
}

// NewAdjustmentHandler constructs the handler.
func NewAdjustmentHandler(service adjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{service: service}
}

// Shift godoc
// @Summary Shift every participating teacher queue by a delta
// @Tags Classboard
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.GlobalShiftRequest true "Shift payload"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classboard/global-shift [post]
func (h *AdjustmentHandler) Shift(c *gin.Context) {
	var req dto.GlobalShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid shift payload"))
		return
	}
	result, err := h.service.Shift(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SetOptOut godoc
// @Summary Toggle a teacher's participation in the next shift
// @Tags Classboard
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Param payload body dto.OptOutRequest true "Opt-out payload"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classboard/global-shift/opt-outs/{teacherId} [put]
func (h *AdjustmentHandler) SetOptOut(c *gin.Context) {
	var req dto.OptOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid opt-out payload"))
		return
	}
	schoolID := c.Param("schoolId")
	if err := h.service.SetOptOut(schoolID, c.Param("teacherId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"optedOut": h.service.OptOuts(schoolID, req.Date)}, nil)
}
