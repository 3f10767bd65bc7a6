package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classboard-api/internal/dto"
	appErrors "github.com/noah-isme/classboard-api/pkg/errors"
	"github.com/noah-isme/classboard-api/pkg/response"
)

type boardService interface {
	Board(ctx context.Context, schoolID, date string) (*dto.BoardResponse, error)
	TeacherQueue(ctx context.Context, schoolID, teacherID, date string) (*dto.TeacherQueueView, error)
	InsertEvent(ctx context.Context, schoolID, teacherID string, req dto.InsertEventRequest) (*dto.MutationResponse, error)
	RemoveEvent(ctx context.Context, schoolID, eventID string, req dto.RemoveEventRequest) (*dto.MutationResponse, error)
	UpdateEvent(ctx context.Context, schoolID, eventID string, req dto.UpdateEventRequest) (*dto.MutationResponse, error)
	Optimise(ctx context.Context, schoolID, teacherID string, req dto.OptimiseRequest) (*dto.OptimiseResponse, error)
}

// ClassboardHandler exposes the day queue endpoints.
type ClassboardHandler struct {
	service boardService
}

// NewClassboardHandler constructs the handler.
func NewClassboardHandler(service boardService) *ClassboardHandler {
	return &ClassboardHandler{service: service}
}

// Board godoc
// @Summary Whole-school classboard for one day
// @Tags Classboard
// @Produce json
// @Param schoolId path string true "School ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classboard [get]
func (h *ClassboardHandler) Board(c *gin.Context) {
	var query dto.BoardQuery
	if err := c.ShouldBindQuery(&query); err != nil || query.Date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required as YYYY-MM-DD"))
		return
	}
	board, err := h.service.Board(c.Request.Context(), c.Param("schoolId"), query.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}

// TeacherQueue godoc
// @Summary One teacher's day queue
// @Tags Classboard
// @Produce json
// @Param schoolId path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classboard/teachers/{teacherId} [get]
func (h *ClassboardHandler) TeacherQueue(c *gin.Context) {
	var query dto.BoardQuery
	if err := c.ShouldBindQuery(&query); err != nil || query.Date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required as YYYY-MM-DD"))
		return
	}
	view, err := h.service.TeacherQueue(c.Request.Context(), c.Param("schoolId"), c.Param("teacherId"), query.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// InsertEvent godoc
// @Summary Insert an event into a teacher queue
// @Tags Classboard
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Param payload body dto.InsertEventRequest true "Insert payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schools/{schoolId}/classboard/teachers/{teacherId}/events [post]
func (h *ClassboardHandler) InsertEvent(c *gin.Context) {
	var req dto.InsertEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid insert payload"))
		return
	}
	result, err := h.service.InsertEvent(c.Request.Context(), c.Param("schoolId"), c.Param("teacherId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// RemoveEvent godoc
// @Summary Remove an event and cascade its queue
// @Tags Classboard
// @Produce json
// @Param schoolId path string true "School ID"
// @Param eventId path string true "Event ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param policy query string true "Cascade policy (locked or respecting)"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classboard/events/{eventId} [delete]
func (h *ClassboardHandler) RemoveEvent(c *gin.Context) {
	var req dto.RemoveEventRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date and policy are required"))
		return
	}
	result, err := h.service.RemoveEvent(c.Request.Context(), c.Param("schoolId"), c.Param("eventId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateEvent godoc
// @Summary Resize, reposition or relabel an event
// @Tags Classboard
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param eventId path string true "Event ID"
// @Param payload body dto.UpdateEventRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schools/{schoolId}/classboard/events/{eventId} [patch]
func (h *ClassboardHandler) UpdateEvent(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid update payload"))
		return
	}
	result, err := h.service.UpdateEvent(c.Request.Context(), c.Param("schoolId"), c.Param("eventId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Optimise godoc
// @Summary Pack a teacher queue to the configured gap
// @Tags Classboard
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Param payload body dto.OptimiseRequest true "Optimise payload"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classboard/teachers/{teacherId}/optimise [post]
func (h *ClassboardHandler) Optimise(c *gin.Context) {
	var req dto.OptimiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid optimise payload"))
		return
	}
	result, err := h.service.Optimise(c.Request.Context(), c.Param("schoolId"), c.Param("teacherId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
