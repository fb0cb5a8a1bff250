package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]*models.User
	listFilter models.UserFilter
	listErr    error
	findErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}}
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.listFilter = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var users []models.User
	for _, u := range m.users {
		if filter.Role == nil || u.Role == *filter.Role {
			users = append(users, *u)
		}
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.Username]; ok {
		return repository.ErrDuplicate
	}
	user.ID = "id-" + user.Username
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepo) DeleteByUsername(ctx context.Context, username string, role models.UserRole) error {
	u, ok := m.users[username]
	if !ok || u.Role != role {
		return sql.ErrNoRows
	}
	delete(m.users, username)
	return nil
}

func newUserServiceForTest(repo *mockUserRepo) *UserService {
	return NewUserService(repo, BcryptVerifier{Cost: bcrypt.MinCost}, validator.New(), zap.NewNop())
}

func TestUserServiceCreateStudent(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserServiceForTest(repo)

	user, err := svc.CreateStudent(context.Background(), CreateStudentRequest{Name: " Ada  Lovelace ", RollNo: "CS-042"})
	require.NoError(t, err)
	assert.Equal(t, "adalovelace", user.Username)
	assert.Equal(t, "adalovelace042@students.example.com", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	require.NotNil(t, user.RollNo)
	assert.Equal(t, "CS-042", *user.RollNo)
	assert.True(t, BcryptVerifier{}.Verify(user.PasswordHash, "student123"))

	_, err = svc.CreateStudent(context.Background(), CreateStudentRequest{Name: "Ada Lovelace", RollNo: "043"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateStudent(context.Background(), CreateStudentRequest{Name: "No Roll"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateTeacher(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserServiceForTest(repo)

	user, err := svc.CreateTeacher(context.Background(), CreateTeacherRequest{Name: "Ali Ahmed", Username: "teacher1"})
	require.NoError(t, err)
	assert.Equal(t, "teacher1@gmail.com", user.Email)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.True(t, BcryptVerifier{}.Verify(user.PasswordHash, "teacher123"))

	custom, err := svc.CreateTeacher(context.Background(), CreateTeacherRequest{Name: "Bo", Username: "teacher2", Password: "hunter22"})
	require.NoError(t, err)
	assert.True(t, BcryptVerifier{}.Verify(custom.PasswordHash, "hunter22"))

	_, err = svc.CreateTeacher(context.Background(), CreateTeacherRequest{Name: "Nameless"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListAndDeleteScopedByRole(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserServiceForTest(repo)
	_, err := svc.CreateStudent(context.Background(), CreateStudentRequest{Name: "Student One", RollNo: "001"})
	require.NoError(t, err)
	_, err = svc.CreateTeacher(context.Background(), CreateTeacherRequest{Name: "Ali Ahmed", Username: "teacher1"})
	require.NoError(t, err)

	students, total, err := svc.List(context.Background(), models.RoleStudent, models.UserFilter{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "studentone", students[0].Username)
	require.NotNil(t, repo.listFilter.Role)
	assert.Equal(t, models.RoleStudent, *repo.listFilter.Role)
	assert.Equal(t, 2, repo.listFilter.Page)

	err = svc.Delete(context.Background(), models.RoleTeacher, "studentone")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), models.RoleTeacher, "teacher1"))
	assert.NotContains(t, repo.users, "teacher1")

	repo.listErr = errors.New("down")
	_, _, err = svc.List(context.Background(), models.RoleStudent, models.UserFilter{})
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func TestUserServiceIssuer(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["teacher1"] = &models.User{ID: "t1", Username: "teacher1", FullName: "Ali Ahmed", Role: models.RoleTeacher}
	svc := newUserServiceForTest(repo)

	issuer := svc.Issuer(context.Background(), &models.JWTClaims{UserID: "t1", Username: "teacher1", FullName: "stale"})
	assert.Equal(t, models.Issuer{ID: "t1", Name: "Ali Ahmed"}, issuer)

	issuer = svc.Issuer(context.Background(), &models.JWTClaims{UserID: "x", Username: "ghost"})
	assert.Equal(t, models.Issuer{ID: "x", Name: "ghost"}, issuer)

	repo.findErr = errors.New("down")
	issuer = svc.Issuer(context.Background(), &models.JWTClaims{UserID: "t1", Username: "teacher1", FullName: "Token Name"})
	assert.Equal(t, "Token Name", issuer.Name)
}
