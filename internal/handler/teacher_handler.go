package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qr-attendance-api/internal/dto"
	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/qr"
	"github.com/noah-isme/qr-attendance-api/pkg/response"
)

type sessionService interface {
	Generate(ctx context.Context, courseID string, durationMinutes *float64, issuer models.Issuer) (*service.IssuedSession, error)
	Current(ctx context.Context, courseID string) (*service.IssuedSession, error)
	MarkNoClass(ctx context.Context, courseID string, issuer models.Issuer) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
}

type issuerResolver interface {
	Issuer(ctx context.Context, claims *models.JWTClaims) models.Issuer
}

// TeacherHandler exposes QR session management to teachers.
type TeacherHandler struct {
	sessions sessionService
	issuers  issuerResolver
}

// NewTeacherHandler constructs the handler.
func NewTeacherHandler(sessions sessionService, issuers issuerResolver) *TeacherHandler {
	return &TeacherHandler{sessions: sessions, issuers: issuers}
}

// Generate godoc
// @Summary Open a QR session
// @Description Duration defaults to 15 minutes when missing or invalid
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/generate [post]
func (h *TeacherHandler) Generate(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.GenerateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	ctx := c.Request.Context()
	issued, err := h.sessions.Generate(ctx, req.CourseID, req.DurationMinutes.Value, h.issuers.Issuer(ctx, claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sessionResponse(issued))
}

// Current godoc
// @Summary Current QR session
// @Description Returns qrString null when no session is open
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Param courseId query string false "Course code"
// @Success 200 {object} response.Envelope
// @Router /teacher/current [get]
func (h *TeacherHandler) Current(c *gin.Context) {
	issued, err := h.sessions.Current(c.Request.Context(), strings.TrimSpace(c.Query("courseId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessionResponse(issued), nil)
}

// NoClass godoc
// @Summary Mark no class
// @Description Closes every open session of the course and records a marker
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.NoClassRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/no-class [post]
func (h *TeacherHandler) NoClass(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.NoClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	ctx := c.Request.Context()
	marker, err := h.sessions.MarkNoClass(ctx, req.CourseID, h.issuers.Issuer(ctx, claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, marker)
}

// Sessions godoc
// @Summary Session audit log
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Param courseId query string false "Course code"
// @Param teacherId query string false "Teacher id"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teacher/sessions [get]
func (h *TeacherHandler) Sessions(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.SessionFilter{
		CourseID:  strings.TrimSpace(c.Query("courseId")),
		TeacherID: strings.TrimSpace(c.Query("teacherId")),
		Page:      page,
		PageSize:  size,
	}
	sessions, total, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination(page, size, total))
}

// QRCode godoc
// @Summary Current session as PNG
// @Tags Teacher
// @Produce png
// @Security BearerAuth
// @Param courseId query string false "Course code"
// @Param size query int false "Image size in pixels"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /teacher/qr.png [get]
func (h *TeacherHandler) QRCode(c *gin.Context) {
	issued, err := h.sessions.Current(c.Request.Context(), strings.TrimSpace(c.Query("courseId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	if issued == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no active session"))
		return
	}

	size, _ := strconv.Atoi(c.Query("size"))
	png, err := qr.PNG(issued.Token, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func sessionResponse(issued *service.IssuedSession) dto.SessionResponse {
	if issued == nil {
		return dto.SessionResponse{}
	}
	token := issued.Token
	return dto.SessionResponse{QRString: &token, Session: issued.Session}
}
