package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
}

type enrollmentRepository interface {
	Enroll(ctx context.Context, userID, courseCode string) error
	Unenroll(ctx context.Context, userID, courseCode string) (bool, error)
	CourseCodes(ctx context.Context, userID string) ([]string, error)
}

type usernameLookup interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// CreateCourseRequest represents payload for creating a course.
type CreateCourseRequest struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=128"`
}

// EnrollmentRequest links a user to a course code.
type EnrollmentRequest struct {
	Username   string `json:"username" validate:"required"`
	CourseCode string `json:"courseCode" validate:"required"`
}

// CourseService manages courses and enrollments.
type CourseService struct {
	courses     courseRepository
	enrollments enrollmentRepository
	users       usernameLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(courses courseRepository, enrollments enrollmentRepository, users usernameLookup, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, enrollments: enrollments, users: users, validator: validate, logger: logger}
}

// Create adds a course. Codes are unique.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "code and name required")
	}
	course := &models.Course{Code: req.Code, Name: req.Name}
	if err := s.courses.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		}
		return nil, appErrors.Store(err, "failed to create course")
	}
	return course, nil
}

// List returns every course.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list courses")
	}
	return courses, nil
}

// Enroll adds the user to the course. Enrolling twice is a no-op.
func (s *CourseService) Enroll(ctx context.Context, req EnrollmentRequest) error {
	user, course, err := s.resolve(ctx, req)
	if err != nil {
		return err
	}
	if err := s.enrollments.Enroll(ctx, user.ID, course.Code); err != nil {
		return appErrors.Store(err, "failed to enroll user")
	}
	s.logger.Info("user enrolled", zap.String("user_id", user.ID), zap.String("course_id", course.Code))
	return nil
}

// Unenroll removes the user from the course.
func (s *CourseService) Unenroll(ctx context.Context, req EnrollmentRequest) error {
	user, course, err := s.resolve(ctx, req)
	if err != nil {
		return err
	}
	removed, err := s.enrollments.Unenroll(ctx, user.ID, course.Code)
	if err != nil {
		return appErrors.Store(err, "failed to unenroll user")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return nil
}

// CoursesOf lists the course codes username is enrolled in.
func (s *CourseService) CoursesOf(ctx context.Context, username string) ([]string, error) {
	user, err := s.lookupUser(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	codes, err := s.enrollments.CourseCodes(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list enrollments")
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

func (s *CourseService) resolve(ctx context.Context, req EnrollmentRequest) (*models.User, *models.Course, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.CourseCode = strings.TrimSpace(req.CourseCode)
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username and courseCode required")
	}
	user, err := s.lookupUser(ctx, req.Username)
	if err != nil {
		return nil, nil, err
	}
	course, err := s.courses.FindByCode(ctx, req.CourseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Store(err, "failed to load course")
	}
	return user, course, nil
}

func (s *CourseService) lookupUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Store(err, "failed to load user")
	}
	return user, nil
}
