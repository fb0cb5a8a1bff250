package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type mockAuthRepo struct {
	users     []*models.User
	findErr   error
	createErr error
}

func (m *mockAuthRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier || (u.RollNo != nil && *u.RollNo == identifier) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Username == user.Username || (user.Email != "" && u.Email == user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = "new-" + user.Username
	m.users = append(m.users, user)
	return nil
}

type stubCourseCodes map[string][]string

func (s stubCourseCodes) CourseCodes(ctx context.Context, userID string) ([]string, error) {
	return s[userID], nil
}

func newAuthServiceForTest(repo *mockAuthRepo, clock Clock) *AuthService {
	return NewAuthService(repo, stubCourseCodes{"u1": {"CS101"}}, BcryptVerifier{Cost: bcrypt.MinCost}, clock, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "test",
	})
}

func seededAuthRepo(t *testing.T) *mockAuthRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("student123"), bcrypt.MinCost)
	require.NoError(t, err)
	roll := "001"
	return &mockAuthRepo{users: []*models.User{{
		ID:           "u1",
		Username:     "student1",
		Email:        "student1@students.example.com",
		PasswordHash: string(hash),
		FullName:     "Student One",
		Role:         models.RoleStudent,
		RollNo:       &roll,
	}}}
}

func TestAuthServiceLoginByAnyIdentifier(t *testing.T) {
	repo := seededAuthRepo(t)
	svc := newAuthServiceForTest(repo, nil)

	for _, identifier := range []string{"student1", "001", "student1@students.example.com"} {
		t.Run(identifier, func(t *testing.T) {
			res, err := svc.Login(context.Background(), models.LoginRequest{Identifier: identifier, Password: "student123"})
			require.NoError(t, err)
			assert.NotEmpty(t, res.AccessToken)
			assert.Equal(t, int64(3600), res.ExpiresIn)
			assert.Equal(t, "student1", res.User.Username)
			assert.Equal(t, []string{"CS101"}, res.User.Courses)
		})
	}
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	repo := seededAuthRepo(t)
	svc := newAuthServiceForTest(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "student1", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Identifier: "nobody", Password: "student123"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Identifier: " ", Password: "x"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	repo.findErr = errors.New("connection refused")
	_, err = svc.Login(context.Background(), models.LoginRequest{Identifier: "student1", Password: "student123"})
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceSignup(t *testing.T) {
	repo := seededAuthRepo(t)
	svc := newAuthServiceForTest(repo, nil)

	info, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "Jane.Doe@Example.com",
		Password: "secret1",
		FullName: "Jane Doe",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", info.Username)
	assert.Equal(t, models.RoleTeacher, info.Role)

	stored := repo.users[len(repo.users)-1]
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, BcryptVerifier{}.Verify(stored.PasswordHash, "secret1"))

	_, err = svc.Signup(context.Background(), models.SignupRequest{Username: "student1", Password: "secret1", FullName: "Dup"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Signup(context.Background(), models.SignupRequest{Password: "secret1", FullName: "Nobody"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Signup(context.Background(), models.SignupRequest{Username: "root", Password: "secret1", FullName: "Root", Role: models.RoleAdmin})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestValidateToken(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC).UnixMilli())
	svc := newAuthServiceForTest(seededAuthRepo(t), clock)
	user := &models.User{ID: "u1", Username: "student1", FullName: "Student One", Role: models.RoleStudent}

	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "student1", claims.Username)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "Student One", claims.FullName)

	clock.Set(clock.Now().Add(2 * time.Hour).UnixMilli())
	_, err = svc.ValidateToken(token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.ValidateToken("not-a-token")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceMe(t *testing.T) {
	svc := newAuthServiceForTest(seededAuthRepo(t), nil)

	info, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, info.RollNo)
	assert.Equal(t, "001", *info.RollNo)

	_, err = svc.Me(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
