package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classboard-api/internal/dto"
)

type statsServiceMock struct {
	stats   *dto.StatsResponse
	payload []byte
	err     error
}

func (m *statsServiceMock) Stats(ctx context.Context, schoolID, date string) (*dto.StatsResponse, error) {
	return m.stats, m.err
}

func (m *statsServiceMock) Export(ctx context.Context, schoolID, date, format string) ([]byte, string, string, error) {
	if m.err != nil {
		return nil, "", "", m.err
	}
	return m.payload, "text/csv", "classboard-stats-" + date + ".csv", nil
}

func TestStatsHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statsServiceMock{stats: &dto.StatsResponse{SchoolID: "s1", Date: "2026-08-31"}}
	handler := NewStatsHandler(mockSvc)

	c, w := newBoardContext(http.MethodGet, "/schools/s1/classboard/stats?date=2026-08-31", nil)
	c.Params = gin.Params{{Key: "schoolId", Value: "s1"}}

	handler.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStatsHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statsServiceMock{payload: []byte("Teacher\n")}
	handler := NewStatsHandler(mockSvc)

	c, w := newBoardContext(http.MethodGet, "/schools/s1/classboard/stats/export?date=2026-08-31&format=csv", nil)
	c.Params = gin.Params{{Key: "schoolId", Value: "s1"}}

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "classboard-stats-2026-08-31.csv")
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestStatsHandlerExportMissingFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatsHandler(&statsServiceMock{})

	c, w := newBoardContext(http.MethodGet, "/schools/s1/classboard/stats/export?date=2026-08-31", nil)
	c.Params = gin.Params{{Key: "schoolId", Value: "s1"}}

	handler.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
