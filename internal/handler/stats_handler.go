package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classboard-api/internal/dto"
	appErrors "github.com/noah-isme/classboard-api/pkg/errors"
	"github.com/noah-isme/classboard-api/pkg/response"
)

type statsService interface {
	Stats(ctx context.Context, schoolID, date string) (*dto.StatsResponse, error)
	Export(ctx context.Context, schoolID, date, format string) ([]byte, string, string, error)
}

// StatsHandler exposes the day stats dashboard and its exports.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(service statsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Stats godoc
// @Summary Per-teacher and school-wide day stats
// @Tags Classboard
// @Produce json
// @Param schoolId path string true "School ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classboard/stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	var query dto.BoardQuery
	if err := c.ShouldBindQuery(&query); err != nil || query.Date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required as YYYY-MM-DD"))
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), c.Param("schoolId"), query.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Download the day stats as CSV or PDF
// @Tags Classboard
// @Produce octet-stream
// @Param schoolId path string true "School ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Router /schools/{schoolId}/classboard/stats/export [get]
func (h *StatsHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil || query.Date == "" || query.Format == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date and format (csv|pdf) are required"))
		return
	}
	payload, contentType, filename, err := h.service.Export(c.Request.Context(), c.Param("schoolId"), query.Date, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
