package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EnrollmentRepository links users to course codes.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll adds userID to courseCode. Repeated calls are no-ops.
func (r *EnrollmentRepository) Enroll(ctx context.Context, userID, courseCode string) error {
	const query = `INSERT INTO enrollments (user_id, course_code, created_at) VALUES ($1, $2, NOW()) ON CONFLICT (user_id, course_code) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, courseCode); err != nil {
		return fmt.Errorf("enroll user: %w", err)
	}
	return nil
}

// Unenroll removes the link and reports whether one existed.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, userID, courseCode string) (bool, error) {
	const query = `DELETE FROM enrollments WHERE user_id = $1 AND course_code = $2`
	res, err := r.db.ExecContext(ctx, query, userID, courseCode)
	if err != nil {
		return false, fmt.Errorf("unenroll user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unenroll user: %w", err)
	}
	return n > 0, nil
}

// IsEnrolled reports whether userID belongs to courseCode.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, userID, courseCode string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_code = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, userID, courseCode); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return ok, nil
}

// CourseCodes lists the course codes of userID.
func (r *EnrollmentRepository) CourseCodes(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT course_code FROM enrollments WHERE user_id = $1 ORDER BY course_code ASC`
	codes := []string{}
	if err := r.db.SelectContext(ctx, &codes, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return codes, nil
}
