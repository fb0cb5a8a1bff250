package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/response"
)

type userAdminService interface {
	CreateStudent(ctx context.Context, req service.CreateStudentRequest) (*models.User, error)
	CreateTeacher(ctx context.Context, req service.CreateTeacherRequest) (*models.User, error)
	List(ctx context.Context, role models.UserRole, filter models.UserFilter) ([]models.User, int, error)
	Delete(ctx context.Context, role models.UserRole, username string) error
}

type courseAdminService interface {
	Create(ctx context.Context, req service.CreateCourseRequest) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
	Enroll(ctx context.Context, req service.EnrollmentRequest) error
	Unenroll(ctx context.Context, req service.EnrollmentRequest) error
	CoursesOf(ctx context.Context, username string) ([]string, error)
}

// AdminHandler manages accounts, courses and enrollments.
type AdminHandler struct {
	users   userAdminService
	courses courseAdminService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(users userAdminService, courses courseAdminService) *AdminHandler {
	return &AdminHandler{users: users, courses: courses}
}

// CreateStudent godoc
// @Summary Create student
// @Description Username and email are derived from name and roll number
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/students [post]
func (h *AdminHandler) CreateStudent(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.users.CreateStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// ListStudents godoc
// @Summary List students
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or username search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
	h.listUsers(c, models.RoleStudent)
}

// DeleteStudent godoc
// @Summary Delete student
// @Tags Admin
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{username} [delete]
func (h *AdminHandler) DeleteStudent(c *gin.Context) {
	h.deleteUser(c, models.RoleStudent)
}

// CreateTeacher godoc
// @Summary Create teacher
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/teachers [post]
func (h *AdminHandler) CreateTeacher(c *gin.Context) {
	var req service.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.users.CreateTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// ListTeachers godoc
// @Summary List teachers
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or username search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers [get]
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	h.listUsers(c, models.RoleTeacher)
}

// DeleteTeacher godoc
// @Summary Delete teacher
// @Tags Admin
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/teachers/{username} [delete]
func (h *AdminHandler) DeleteTeacher(c *gin.Context) {
	h.deleteUser(c, models.RoleTeacher)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/courses [post]
func (h *AdminHandler) CreateCourse(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// ListCourses godoc
// @Summary List courses
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/courses [get]
func (h *AdminHandler) ListCourses(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Enroll godoc
// @Summary Enroll user into course
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.EnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments [post]
func (h *AdminHandler) Enroll(c *gin.Context) {
	var req service.EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.courses.Enroll(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"username": req.Username, "courseCode": req.CourseCode})
}

// Unenroll godoc
// @Summary Remove user from course
// @Tags Admin
// @Accept json
// @Security BearerAuth
// @Param payload body service.EnrollmentRequest true "Enrollment payload"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/enrollments [delete]
func (h *AdminHandler) Unenroll(c *gin.Context) {
	var req service.EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.courses.Unenroll(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UserCourses godoc
// @Summary List course codes of a user
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{username}/courses [get]
func (h *AdminHandler) UserCourses(c *gin.Context) {
	codes, err := h.courses.CoursesOf(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, codes, nil)
}

func (h *AdminHandler) listUsers(c *gin.Context, role models.UserRole) {
	page, size := pageParams(c)
	filter := models.UserFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     page,
		PageSize: size,
	}
	users, total, err := h.users.List(c.Request.Context(), role, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination(page, size, total))
}

func (h *AdminHandler) deleteUser(c *gin.Context, role models.UserRole) {
	if err := h.users.Delete(c.Request.Context(), role, c.Param("username")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
