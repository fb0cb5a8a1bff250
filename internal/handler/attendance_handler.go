package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qr-attendance-api/internal/dto"
	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/response"
)

type attendanceService interface {
	Record(ctx context.Context, token string, studentID string) (*service.RecordResult, error)
	ListToday(ctx context.Context, studentID, courseID string) ([]models.AttendanceRecord, error)
	ListMonth(ctx context.Context, studentID, courseID string, year, month int) ([]models.AttendanceRecord, error)
	List(ctx context.Context, req service.AttendanceListRequest) ([]models.AttendanceRecord, int, error)
	Today() string
}

type attendanceSummarizer interface {
	Summarize(ctx context.Context, req service.SummaryRequest) (*repository.AttendanceSummary, error)
}

// AttendanceHandler serves QR scans and attendance history.
type AttendanceHandler struct {
	service attendanceService
	summary attendanceSummarizer
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceService, summary attendanceSummarizer) *AttendanceHandler {
	return &AttendanceHandler{service: svc, summary: summary}
}

// Scan godoc
// @Summary Record attendance from a QR scan
// @Description Outcome is RECORDED or ALREADY_RECORDED
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ScanRequest true "Scanned QR payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /attendance/scan [post]
func (h *AttendanceHandler) Scan(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "qrString is required"))
		return
	}

	result, err := h.service.Record(c.Request.Context(), req.QRString, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Today godoc
// @Summary Attendance for today
// @Description Students see their own records; staff may filter by course
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param courseId query string false "Course code"
// @Success 200 {object} response.Envelope
// @Router /attendance/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	records, err := h.service.ListToday(c.Request.Context(), ownerScope(claims), strings.TrimSpace(c.Query("courseId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"date": h.service.Today()})
}

// Month godoc
// @Summary Attendance for a calendar month
// @Description Defaults to the current month
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param month query int false "Month 1-12"
// @Param year query int false "Year"
// @Param courseId query string false "Course code"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/month [get]
func (h *AttendanceHandler) Month(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	today, err := time.Parse(models.DateLayout, h.service.Today())
	if err != nil {
		response.Error(c, err)
		return
	}
	month, err := intQuery(c, "month", int(today.Month()))
	if err != nil {
		response.Error(c, err)
		return
	}
	year, err := intQuery(c, "year", today.Year())
	if err != nil {
		response.Error(c, err)
		return
	}

	records, err := h.service.ListMonth(c.Request.Context(), ownerScope(claims), strings.TrimSpace(c.Query("courseId")), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"month": month, "year": year})
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param courseId query string false "Course code"
// @Param studentId query string false "Student id"
// @Param date query string false "YYYY-MM-DD"
// @Param status query string false "present or absent"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var req service.AttendanceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	page, size := pageParams(c)
	req.Page, req.PageSize = page, size

	records, total, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination(page, size, total))
}

// Summary godoc
// @Summary Per-course attendance summary
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param courseId query string true "Course code"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	var req service.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	summary, err := h.summary.Summarize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ownerScope limits students to their own records; staff see every student.
func ownerScope(claims *models.JWTClaims) string {
	if claims.Role == models.RoleStudent {
		return claims.UserID
	}
	return ""
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a number")
	}
	return v, nil
}
