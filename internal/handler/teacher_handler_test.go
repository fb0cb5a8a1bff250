package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type sessionServiceMock struct {
	current     *service.IssuedSession
	generateArg *float64
	issuer      models.Issuer
	filter      models.SessionFilter
}

func (m *sessionServiceMock) Generate(ctx context.Context, courseID string, minutes *float64, issuer models.Issuer) (*service.IssuedSession, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}
	m.generateArg = minutes
	m.issuer = issuer
	return &service.IssuedSession{Session: &models.Session{ID: "s1", CourseID: courseID, Kind: models.SessionKindLive, Active: true}, Token: "signed-token"}, nil
}

func (m *sessionServiceMock) Current(ctx context.Context, courseID string) (*service.IssuedSession, error) {
	return m.current, nil
}

func (m *sessionServiceMock) MarkNoClass(ctx context.Context, courseID string, issuer models.Issuer) (*models.Session, error) {
	m.issuer = issuer
	return &models.Session{ID: "m1", CourseID: courseID, Kind: models.SessionKindNoClass}, nil
}

func (m *sessionServiceMock) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	m.filter = filter
	return []models.Session{{ID: "s1"}}, 1, nil
}

type issuerStub struct{}

func (issuerStub) Issuer(ctx context.Context, claims *models.JWTClaims) models.Issuer {
	return models.Issuer{ID: claims.UserID, Name: "Ali Ahmed"}
}

func TestTeacherHandlerGenerate(t *testing.T) {
	sessions := &sessionServiceMock{}
	handler := NewTeacherHandler(sessions, issuerStub{})

	c, w := newGinContext(http.MethodPost, "/teacher/generate", []byte(`{"courseId":"CS101","durationMinutes":"0.5"}`))
	withUser(c, "t1", models.RoleTeacher)
	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, sessions.generateArg)
	assert.Equal(t, 0.5, *sessions.generateArg)
	assert.Equal(t, models.Issuer{ID: "t1", Name: "Ali Ahmed"}, sessions.issuer)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"qrString":"signed-token"`)
}

func TestTeacherHandlerGenerateIgnoresGarbageDuration(t *testing.T) {
	sessions := &sessionServiceMock{}
	handler := NewTeacherHandler(sessions, issuerStub{})

	c, w := newGinContext(http.MethodPost, "/teacher/generate", []byte(`{"courseId":"CS101","durationMinutes":"soon"}`))
	withUser(c, "t1", models.RoleTeacher)
	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, sessions.generateArg)
}

func TestTeacherHandlerGenerateMissingCourse(t *testing.T) {
	handler := NewTeacherHandler(&sessionServiceMock{}, issuerStub{})

	c, w := newGinContext(http.MethodPost, "/teacher/generate", []byte(`{}`))
	withUser(c, "t1", models.RoleTeacher)
	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherHandlerCurrentNone(t *testing.T) {
	handler := NewTeacherHandler(&sessionServiceMock{}, issuerStub{})

	c, w := newGinContext(http.MethodGet, "/teacher/current?courseId=CS101", nil)
	handler.Current(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"qrString":null}`, string(decodeEnvelope(t, w).Data))
}

func TestTeacherHandlerNoClass(t *testing.T) {
	sessions := &sessionServiceMock{}
	handler := NewTeacherHandler(sessions, issuerStub{})

	c, w := newGinContext(http.MethodPost, "/teacher/no-class", []byte(`{"courseId":"CS101"}`))
	withUser(c, "t1", models.RoleTeacher)
	handler.NoClass(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"NO_CLASS"`)
}

func TestTeacherHandlerSessions(t *testing.T) {
	sessions := &sessionServiceMock{}
	handler := NewTeacherHandler(sessions, issuerStub{})

	c, w := newGinContext(http.MethodGet, "/teacher/sessions?courseId=CS101&limit=500", nil)
	handler.Sessions(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CS101", sessions.filter.CourseID)
	assert.Equal(t, defaultPageSize, sessions.filter.PageSize)
}

func TestTeacherHandlerQRCode(t *testing.T) {
	sessions := &sessionServiceMock{}
	handler := NewTeacherHandler(sessions, issuerStub{})

	c, w := newGinContext(http.MethodGet, "/teacher/qr.png", nil)
	handler.QRCode(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	sessions.current = &service.IssuedSession{Session: &models.Session{ID: "s1"}, Token: "signed-token"}
	c, w = newGinContext(http.MethodGet, "/teacher/qr.png?size=128", nil)
	handler.QRCode(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte("\x89PNG"), w.Body.Bytes()[:4])
}
