package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

const (
	defaultStudentPassword = "student123"
	defaultTeacherPassword = "teacher123"
	studentEmailDomain     = "students.example.com"
	teacherEmailDomain     = "gmail.com"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	DeleteByUsername(ctx context.Context, username string, role models.UserRole) error
}

// CreateStudentRequest represents payload for adding a student.
type CreateStudentRequest struct {
	Name   string `json:"name" validate:"required,max=128"`
	RollNo string `json:"rollNo" validate:"required,max=32"`
}

// CreateTeacherRequest represents payload for adding a teacher.
type CreateTeacherRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

// UserService handles administrator account management.
type UserService struct {
	repo      userRepository
	verifier  CredentialVerifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, verifier CredentialVerifier, validate *validator.Validate, logger *zap.Logger) *UserService {
	if verifier == nil {
		verifier = BcryptVerifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, verifier: verifier, validator: validate, logger: logger}
}

// CreateStudent adds a student. The username is the lowercased name without
// whitespace and the email is derived from it plus the digits of the roll number.
func (s *UserService) CreateStudent(ctx context.Context, req CreateStudentRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RollNo = strings.TrimSpace(req.RollNo)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name and rollNo required")
	}

	username := studentUsername(req.Name)
	rollNo := req.RollNo
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s%s@%s", username, digitsOf(rollNo), studentEmailDomain),
		FullName: req.Name,
		Role:     models.RoleStudent,
		RollNo:   &rollNo,
	}
	if err := s.create(ctx, user, defaultStudentPassword); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateTeacher adds a teacher, defaulting the password when none is supplied.
func (s *UserService) CreateTeacher(ctx context.Context, req CreateTeacherRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name and username are required")
	}

	password := req.Password
	if password == "" {
		password = defaultTeacherPassword
	}
	user := &models.User{
		Username: req.Username,
		Email:    fmt.Sprintf("%s@%s", strings.ToLower(req.Username), teacherEmailDomain),
		FullName: req.Name,
		Role:     models.RoleTeacher,
	}
	if err := s.create(ctx, user, password); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns paginated users of role.
func (s *UserService) List(ctx context.Context, role models.UserRole, filter models.UserFilter) ([]models.User, int, error) {
	filter.Role = &role
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Store(err, "failed to list users")
	}
	return users, total, nil
}

// Delete removes the account username when it has role.
func (s *UserService) Delete(ctx context.Context, role models.UserRole, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return appErrors.Clone(appErrors.ErrValidation, "username is required")
	}
	if err := s.repo.DeleteByUsername(ctx, username, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Store(err, "failed to delete user")
	}
	s.logger.Info("user deleted", zap.String("username", username), zap.String("role", string(role)))
	return nil
}

// Issuer resolves the display name captured on new sessions. The stored
// full name wins; token claims are the fallback.
func (s *UserService) Issuer(ctx context.Context, claims *models.JWTClaims) models.Issuer {
	issuer := models.Issuer{ID: claims.UserID, Name: claims.FullName}
	if issuer.Name == "" {
		issuer.Name = claims.Username
	}
	if claims.Username == "" {
		return issuer
	}
	user, err := s.repo.FindByUsername(ctx, claims.Username)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("issuer lookup failed", zap.String("username", claims.Username), zap.Error(err))
		}
		return issuer
	}
	issuer.ID = user.ID
	issuer.Name = user.DisplayName()
	return issuer
}

func (s *UserService) create(ctx context.Context, user *models.User, password string) error {
	hash, err := s.verifier.Hash(password)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = hash

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return appErrors.Clone(appErrors.ErrConflict, "user already exists")
		}
		return appErrors.Store(err, "failed to create user")
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

func studentUsername(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
}

func digitsOf(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
