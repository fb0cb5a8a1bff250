package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type userAdminMock struct {
	listRole   models.UserRole
	listFilter models.UserFilter
	deleted    []string
	deleteErr  error
	createErr  error
}

func (m *userAdminMock) CreateStudent(ctx context.Context, req service.CreateStudentRequest) (*models.User, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.User{Username: "alice", Role: models.RoleStudent}, nil
}

func (m *userAdminMock) CreateTeacher(ctx context.Context, req service.CreateTeacherRequest) (*models.User, error) {
	return &models.User{Username: req.Username, Role: models.RoleTeacher}, nil
}

func (m *userAdminMock) List(ctx context.Context, role models.UserRole, filter models.UserFilter) ([]models.User, int, error) {
	m.listRole = role
	m.listFilter = filter
	return []models.User{{Username: "alice"}}, 41, nil
}

func (m *userAdminMock) Delete(ctx context.Context, role models.UserRole, username string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, string(role)+":"+username)
	return nil
}

type courseAdminMock struct {
	enrolled []service.EnrollmentRequest
	codes    []string
}

func (m *courseAdminMock) Create(ctx context.Context, req service.CreateCourseRequest) (*models.Course, error) {
	return &models.Course{Code: req.Code, Name: req.Name}, nil
}

func (m *courseAdminMock) List(ctx context.Context) ([]models.Course, error) {
	return []models.Course{{Code: "CS101"}}, nil
}

func (m *courseAdminMock) Enroll(ctx context.Context, req service.EnrollmentRequest) error {
	m.enrolled = append(m.enrolled, req)
	return nil
}

func (m *courseAdminMock) Unenroll(ctx context.Context, req service.EnrollmentRequest) error {
	return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
}

func (m *courseAdminMock) CoursesOf(ctx context.Context, username string) ([]string, error) {
	return m.codes, nil
}

func TestAdminHandlerCreateStudent(t *testing.T) {
	handler := NewAdminHandler(&userAdminMock{}, &courseAdminMock{})

	c, w := newGinContext(http.MethodPost, "/admin/students", mustJSON(t, service.CreateStudentRequest{Name: "Alice", RollNo: "12"}))
	handler.CreateStudent(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAdminHandlerCreateStudentConflict(t *testing.T) {
	handler := NewAdminHandler(&userAdminMock{createErr: appErrors.ErrConflict}, &courseAdminMock{})

	c, w := newGinContext(http.MethodPost, "/admin/students", mustJSON(t, service.CreateStudentRequest{Name: "Alice", RollNo: "12"}))
	handler.CreateStudent(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminHandlerListTeachersPaginates(t *testing.T) {
	users := &userAdminMock{}
	handler := NewAdminHandler(users, &courseAdminMock{})

	c, w := newGinContext(http.MethodGet, "/admin/teachers?page=3&limit=10&search=ali", nil)
	handler.ListTeachers(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleTeacher, users.listRole)
	assert.Equal(t, "ali", users.listFilter.Search)

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 3, env.Pagination.Page)
	assert.Equal(t, 10, env.Pagination.PageSize)
	assert.Equal(t, 41, env.Pagination.TotalCount)
}

func TestAdminHandlerDeleteStudent(t *testing.T) {
	users := &userAdminMock{}
	handler := NewAdminHandler(users, &courseAdminMock{})

	c, w := newGinContext(http.MethodDelete, "/admin/students/alice", nil)
	c.Params = gin.Params{{Key: "username", Value: "alice"}}
	handler.DeleteStudent(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"STUDENT:alice"}, users.deleted)
}

func TestAdminHandlerDeleteTeacherNotFound(t *testing.T) {
	handler := NewAdminHandler(&userAdminMock{deleteErr: appErrors.ErrNotFound}, &courseAdminMock{})

	c, w := newGinContext(http.MethodDelete, "/admin/teachers/ghost", nil)
	c.Params = gin.Params{{Key: "username", Value: "ghost"}}
	handler.DeleteTeacher(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandlerEnrollment(t *testing.T) {
	courses := &courseAdminMock{codes: []string{"CS101"}}
	handler := NewAdminHandler(&userAdminMock{}, courses)

	req := service.EnrollmentRequest{Username: "student1", CourseCode: "CS101"}
	c, w := newGinContext(http.MethodPost, "/admin/enrollments", mustJSON(t, req))
	handler.Enroll(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []service.EnrollmentRequest{req}, courses.enrolled)

	c, w = newGinContext(http.MethodDelete, "/admin/enrollments", mustJSON(t, req))
	handler.Unenroll(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodGet, "/admin/users/student1/courses", nil)
	c.Params = gin.Params{{Key: "username", Value: "student1"}}
	handler.UserCourses(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["CS101"]`, string(decodeEnvelope(t, w).Data))
}
