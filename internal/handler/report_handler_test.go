package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/dto"
	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type reportServiceMock struct {
	createResp  *dto.ReportJobResponse
	createErr   error
	statusResp  *dto.ReportStatusResponse
	statusErr   error
	download    *service.ReportDownload
	downloadErr error
	actor       string
}

func (m *reportServiceMock) CreateJob(ctx context.Context, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	m.actor = actorID
	return m.createResp, m.createErr
}

func (m *reportServiceMock) GetStatus(ctx context.Context, id string, actorID string, role models.UserRole) (*dto.ReportStatusResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *reportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}

func TestReportHandlerGenerateReport(t *testing.T) {
	mockSvc := &reportServiceMock{
		createResp: &dto.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued, Progress: 0},
	}
	handler := NewReportHandler(mockSvc, nil)

	payload := mustJSON(t, dto.ReportRequest{CourseID: "CS101", From: "2024-03-01", To: "2024-03-31", Format: models.ReportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/reports/attendance", payload)
	withUser(c, "teacher1", models.RoleTeacher)

	handler.GenerateReport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "teacher1", mockSvc.actor)
}

func TestReportHandlerGenerateReportValidation(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "unsupported format")}, nil)

	c, w := newGinContext(http.MethodPost, "/reports/attendance", []byte(`{"courseId":"CS101","format":"xls"}`))
	withUser(c, "teacher1", models.RoleTeacher)
	handler.GenerateReport(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerReportStatus(t *testing.T) {
	mockSvc := &reportServiceMock{
		statusResp: &dto.ReportStatusResponse{ID: "job-1", Status: models.ReportStatusFinished, Progress: 100},
	}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/reports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	withUser(c, "admin", models.RoleAdmin)

	handler.ReportStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReportHandlerDownloadRequiresToken(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/download", nil)
	handler.DownloadReport(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerDownloadStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance_CS101.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Course\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	mockSvc := &reportServiceMock{download: &service.ReportDownload{
		File:      file,
		Filename:  "attendance_CS101.csv",
		Format:    models.ReportFormatCSV,
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/reports/download?token=abc", nil)
	handler.DownloadReport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="attendance_CS101.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "Date,Course\n", w.Body.String())
}

func TestReportHandlerDownloadForbidden(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{downloadErr: appErrors.ErrForbidden}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/download?token=bad", nil)
	handler.DownloadReport(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
