package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

const sessionColumns = `id, course_id, teacher_id, teacher_name, kind, created_at, expiry_at, active`

// SessionRepository persists the append-only class session log.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert stores a new session row and returns its id.
func (r *SessionRepository) Insert(ctx context.Context, session *models.Session) (string, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	const query = `INSERT INTO class_sessions (` + sessionColumns + `) VALUES (:id, :course_id, :teacher_id, :teacher_name, :kind, :created_at, :expiry_at, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return session.ID, nil
}

// FindLatestActive returns the most recently created active session,
// restricted to courseID when it is non-empty. Returns sql.ErrNoRows when none.
func (r *SessionRepository) FindLatestActive(ctx context.Context, courseID string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM class_sessions WHERE active = TRUE`
	var args []interface{}
	if courseID != "" {
		query += ` AND course_id = $1`
		args = append(args, courseID)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find latest active session: %w", err)
	}
	return &session, nil
}

// SetActive writes the flag unconditionally, so concurrent expiry flips converge.
func (r *SessionRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE class_sessions SET active = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active); err != nil {
		return fmt.Errorf("update session active flag: %w", err)
	}
	return nil
}

// DeactivateCourse clears the active flag on every session of courseID.
func (r *SessionRepository) DeactivateCourse(ctx context.Context, courseID string) (int64, error) {
	const query = `UPDATE class_sessions SET active = FALSE WHERE course_id = $1 AND active = TRUE`
	res, err := r.db.ExecContext(ctx, query, courseID)
	if err != nil {
		return 0, fmt.Errorf("deactivate course sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate course sessions: %w", err)
	}
	return n, nil
}

// CountOpen counts live sessions of courseID that are active and not yet past nowMillis.
func (r *SessionRepository) CountOpen(ctx context.Context, courseID string, nowMillis int64) (int, error) {
	const query = `SELECT COUNT(*) FROM class_sessions WHERE course_id = $1 AND kind = 'LIVE' AND active = TRUE AND expiry_at >= $2`
	var n int
	if err := r.db.GetContext(ctx, &n, query, courseID, nowMillis); err != nil {
		return 0, fmt.Errorf("count open sessions: %w", err)
	}
	return n, nil
}

// List returns the session log newest first.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	var conditions []string
	var args []interface{}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, pageSize, offset := normalizePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM class_sessions%s ORDER BY created_at DESC LIMIT %d OFFSET %d", sessionColumns, where, pageSize, offset)

	sessions := []models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM class_sessions"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}
