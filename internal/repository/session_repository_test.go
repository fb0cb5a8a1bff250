package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

var sessionRowColumns = []string{"id", "course_id", "teacher_id", "teacher_name", "kind", "created_at", "expiry_at", "active"}

func TestSessionRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	created := time.UnixMilli(0).UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_sessions (id, course_id, teacher_id, teacher_name, kind, created_at, expiry_at, active)")).
		WithArgs(sqlmock.AnyArg(), "CS101", "t1", "Ali Ahmed", models.SessionKindLive, created, int64(60000), true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.Insert(context.Background(), &models.Session{
		CourseID: "CS101", TeacherID: "t1", TeacherName: "Ali Ahmed",
		Kind: models.SessionKindLive, CreatedAt: created, ExpiryAt: 60000, Active: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindLatestActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows(sessionRowColumns).
		AddRow("s2", "CS101", "t1", "Ali Ahmed", "LIVE", time.Now(), int64(60000), true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + sessionColumns + " FROM class_sessions WHERE active = TRUE AND course_id = $1 ORDER BY created_at DESC LIMIT 1")).
		WithArgs("CS101").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_sessions WHERE active = TRUE ORDER BY created_at DESC LIMIT 1")).
		WillReturnError(sql.ErrNoRows)

	session, err := repo.FindLatestActive(context.Background(), "CS101")
	require.NoError(t, err)
	assert.Equal(t, "s2", session.ID)
	assert.Equal(t, models.SessionKindLive, session.Kind)

	_, err = repo.FindLatestActive(context.Background(), "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFlags(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_sessions SET active = $2 WHERE id = $1")).
		WithArgs("s1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_sessions SET active = FALSE WHERE course_id = $1 AND active = TRUE")).
		WithArgs("CS101").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_sessions WHERE course_id = $1 AND kind = 'LIVE' AND active = TRUE AND expiry_at >= $2")).
		WithArgs("CS101", int64(1000)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	require.NoError(t, repo.SetActive(ctx, "s1", false))
	n, err := repo.DeactivateCourse(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	open, err := repo.CountOpen(ctx, "CS101", 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, open)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows(sessionRowColumns).
		AddRow("s3", "CS101", "t1", "Ali Ahmed", "NO_CLASS", time.Now(), int64(0), false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + sessionColumns + " FROM class_sessions WHERE course_id = $1 ORDER BY created_at DESC LIMIT 10 OFFSET 10")).
		WithArgs("CS101").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_sessions WHERE course_id = $1")).
		WithArgs("CS101").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{CourseID: "CS101", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].IsNoClass())
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
