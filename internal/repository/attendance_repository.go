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

const attendanceColumns = `id, student_id, student_name, roll_no, course_id, course_name, teacher_id, teacher_name, session_id, date, timestamp, status`

// AttendanceRepository persists attendance records. The table carries a unique
// constraint on (student_id, course_id, date).
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// InsertIfAbsent stores record unless one already exists for the same
// student, course and date. It reports whether the row was written.
func (r *AttendanceRepository) InsertIfAbsent(ctx context.Context, record *models.AttendanceRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendance_records (` + attendanceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (student_id, course_id, date) DO NOTHING
RETURNING id`
	var id string
	err := r.db.QueryRowxContext(ctx, query,
		record.ID, record.StudentID, record.StudentName, record.RollNo,
		record.CourseID, record.CourseName, record.TeacherID, record.TeacherName,
		record.SessionID, record.Date, record.Timestamp, record.Status,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return true, nil
}

// FindByStudentCourseDay returns the record for the key or sql.ErrNoRows.
func (r *AttendanceRepository) FindByStudentCourseDay(ctx context.Context, studentID, courseID, date string) (*models.AttendanceRecord, error) {
	const query = `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE student_id = $1 AND course_id = $2 AND date = $3`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, courseID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// List returns records matching filter, newest first, with the total count.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	where, args := attendanceWhere(filter)
	_, pageSize, offset := normalizePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM attendance_records%s ORDER BY timestamp DESC LIMIT %d OFFSET %d", attendanceColumns, where, pageSize, offset)

	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM attendance_records"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

// ListAll returns every record matching filter ordered for reporting.
func (r *AttendanceRepository) ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where, args := attendanceWhere(filter)
	query := "SELECT " + attendanceColumns + " FROM attendance_records" + where + " ORDER BY date ASC, roll_no ASC, student_name ASC"
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance for report: %w", err)
	}
	return records, nil
}

func attendanceWhere(filter models.AttendanceFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.StudentID != "" {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.CourseID != "" {
		add("course_id = $%d", filter.CourseID)
	}
	if filter.DateFrom != "" {
		add("date >= $%d", filter.DateFrom)
	}
	if filter.DateTo != "" {
		add("date <= $%d", filter.DateTo)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
