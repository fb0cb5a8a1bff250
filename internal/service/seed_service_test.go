package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

func TestSeedServiceIsIdempotent(t *testing.T) {
	users := newMockUserRepo()
	courses := &mockCourseRepo{courses: map[string]*models.Course{}}
	enrollments := &mockEnrollmentRepo{links: map[string]map[string]bool{}}
	svc := NewSeedService(users, courses, enrollments, BcryptVerifier{Cost: bcrypt.MinCost}, zap.NewNop())

	require.NoError(t, svc.Seed(context.Background()))
	require.NoError(t, svc.Seed(context.Background()))

	assert.Len(t, users.users, 3)
	assert.Contains(t, courses.courses, "CS101")
	assert.True(t, BcryptVerifier{}.Verify(users.users["admin"].PasswordHash, "admin123"))
	assert.Equal(t, models.RoleTeacher, users.users["teacher1"].Role)
	require.NotNil(t, users.users["student1"].RollNo)
	assert.Equal(t, "001", *users.users["student1"].RollNo)

	assert.True(t, enrollments.links[users.users["student1"].ID]["CS101"])
	assert.True(t, enrollments.links[users.users["teacher1"].ID]["CS101"])
	assert.Empty(t, enrollments.links[users.users["admin"].ID])
}
