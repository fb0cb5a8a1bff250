package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
)

type seedUserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type seedCourseStore interface {
	Create(ctx context.Context, course *models.Course) error
}

type seedEnrollmentStore interface {
	Enroll(ctx context.Context, userID, courseCode string) error
}

type demoAccount struct {
	username string
	password string
	name     string
	role     models.UserRole
	rollNo   string
	courses  []string
}

var demoAccounts = []demoAccount{
	{username: "admin", password: "admin123", name: "System Administrator", role: models.RoleAdmin},
	{username: "teacher1", password: "teacher123", name: "Ali Ahmed", role: models.RoleTeacher, courses: []string{"CS101"}},
	{username: "student1", password: "student123", name: "Student One", role: models.RoleStudent, rollNo: "001", courses: []string{"CS101"}},
}

var demoCourses = []models.Course{{Code: "CS101", Name: "Introduction to Programming"}}

// SeedService installs the demo accounts and course. Existing rows are kept.
type SeedService struct {
	users       seedUserStore
	courses     seedCourseStore
	enrollments seedEnrollmentStore
	verifier    CredentialVerifier
	logger      *zap.Logger
}

// NewSeedService constructs the seeder.
func NewSeedService(users seedUserStore, courses seedCourseStore, enrollments seedEnrollmentStore, verifier CredentialVerifier, logger *zap.Logger) *SeedService {
	if verifier == nil {
		verifier = BcryptVerifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{users: users, courses: courses, enrollments: enrollments, verifier: verifier, logger: logger}
}

// Seed is idempotent.
func (s *SeedService) Seed(ctx context.Context) error {
	for _, c := range demoCourses {
		course := c
		if err := s.courses.Create(ctx, &course); err != nil {
			if !errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("seed course %s: %w", course.Code, err)
			}
		} else {
			s.logger.Info("seeded course", zap.String("code", course.Code))
		}
	}

	for _, acct := range demoAccounts {
		user, err := s.ensureUser(ctx, acct)
		if err != nil {
			return err
		}
		for _, code := range acct.courses {
			if err := s.enrollments.Enroll(ctx, user.ID, code); err != nil {
				return fmt.Errorf("seed enrollment %s/%s: %w", acct.username, code, err)
			}
		}
	}
	return nil
}

func (s *SeedService) ensureUser(ctx context.Context, acct demoAccount) (*models.User, error) {
	hash, err := s.verifier.Hash(acct.password)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	user := &models.User{
		Username:     acct.username,
		PasswordHash: hash,
		FullName:     acct.name,
		Role:         acct.role,
	}
	if acct.rollNo != "" {
		rollNo := acct.rollNo
		user.RollNo = &rollNo
	}

	err = s.users.Create(ctx, user)
	switch {
	case err == nil:
		s.logger.Info("seeded user", zap.String("username", acct.username), zap.String("role", string(acct.role)))
		return user, nil
	case errors.Is(err, repository.ErrDuplicate):
		existing, err := s.users.FindByUsername(ctx, acct.username)
		if err != nil {
			return nil, fmt.Errorf("load seeded user %s: %w", acct.username, err)
		}
		return existing, nil
	default:
		return nil, fmt.Errorf("seed user %s: %w", acct.username, err)
	}
}
