package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classboard-api/internal/dto"
)

type adjustmentServiceMock struct {
	resp     *dto.GlobalShiftResponse
	err      error
	optOuts  []string
	lastReq  dto.GlobalShiftRequest
	lastDate string
}

func (m *adjustmentServiceMock) Shift(ctx context.Context, schoolID string, req dto.GlobalShiftRequest) (*dto.GlobalShiftResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

func (m *adjustmentServiceMock) SetOptOut(schoolID, teacherID string, req dto.OptOutRequest) error {
	m.lastDate = req.Date
	return m.err
}

func (m *adjustmentServiceMock) OptOuts(schoolID, date string) []string {
	return m.optOuts
}

func TestAdjustmentHandlerShift(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &adjustmentServiceMock{resp: &dto.GlobalShiftResponse{Preview: false}}
	handler := NewAdjustmentHandler(mockSvc)

	payload, _ := json.Marshal(dto.GlobalShiftRequest{Date: "2026-08-31", DeltaMinutes: 30, Policy: "respecting"})
	c, w := newBoardContext(http.MethodPost, "/schools/s1/classboard/global-shift", payload)
	c.Params = gin.Params{{Key: "schoolId", Value: "s1"}}

	handler.Shift(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, mockSvc.lastReq.DeltaMinutes)
}

func TestAdjustmentHandlerSetOptOut(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &adjustmentServiceMock{optOuts: []string{"t2"}}
	handler := NewAdjustmentHandler(mockSvc)

	payload, _ := json.Marshal(dto.OptOutRequest{Date: "2026-08-31", OptOut: true})
	c, w := newBoardContext(http.MethodPut, "/schools/s1/classboard/global-shift/opt-outs/t2", payload)
	c.Params = gin.Params{{Key: "schoolId", Value: "s1"}, {Key: "teacherId", Value: "t2"}}

	handler.SetOptOut(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-08-31", mockSvc.lastDate)
	assert.Contains(t, w.Body.String(), "t2")
}
