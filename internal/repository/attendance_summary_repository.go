package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// AttendanceSummaryFilter scopes aggregation queries. CourseID is required.
type AttendanceSummaryFilter struct {
	CourseID string
	DateFrom string
	DateTo   string
}

// AttendanceSummaryRow represents per-student aggregates.
type AttendanceSummaryRow struct {
	StudentID   string  `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	RollNo      *string `db:"roll_no" json:"roll_no,omitempty"`
	Present     int     `db:"present" json:"present"`
	Rate        float64 `db:"rate" json:"rate"`
}

// AttendanceSummary groups the number of class days and student rows.
type AttendanceSummary struct {
	CourseID  string                 `json:"course_id"`
	ClassDays int                    `json:"class_days"`
	Present   int                    `json:"present"`
	Students  []AttendanceSummaryRow `json:"students"`
}

// AttendanceSummaryRepository exposes read-only aggregate helpers over attendance_records.
type AttendanceSummaryRepository struct {
	db *sqlx.DB
}

// NewAttendanceSummaryRepository builds the repository.
func NewAttendanceSummaryRepository(db *sqlx.DB) *AttendanceSummaryRepository {
	return &AttendanceSummaryRepository{db: db}
}

// Summarize returns the number of days with any attendance and per-student
// present counts. Rate is the percentage of class days attended.
func (r *AttendanceSummaryRepository) Summarize(ctx context.Context, filter AttendanceSummaryFilter) (*AttendanceSummary, error) {
	if filter.CourseID == "" {
		return nil, fmt.Errorf("courseId is required")
	}
	where, args := buildSummaryConditions(filter)
	whereClause := strings.Join(where, " AND ")

	totalSQL := fmt.Sprintf(`SELECT
    COALESCE(COUNT(DISTINCT ar.date), 0) AS class_days,
    COALESCE(SUM(CASE WHEN ar.status = 'present' THEN 1 ELSE 0 END), 0) AS present
FROM attendance_records ar
WHERE %s`, whereClause)
	totalRow := struct {
		ClassDays int `db:"class_days"`
		Present   int `db:"present"`
	}{}
	if err := r.db.GetContext(ctx, &totalRow, totalSQL, args...); err != nil {
		return nil, fmt.Errorf("attendance summary totals: %w", err)
	}

	args = append(args, totalRow.ClassDays)
	studentsSQL := fmt.Sprintf(`SELECT
    ar.student_id,
    MAX(ar.student_name) AS student_name,
    MAX(ar.roll_no) AS roll_no,
    SUM(CASE WHEN ar.status = 'present' THEN 1 ELSE 0 END) AS present,
    CASE WHEN $%d = 0 THEN 0 ELSE (SUM(CASE WHEN ar.status = 'present' THEN 1 ELSE 0 END)::DECIMAL / $%d) * 100 END AS rate
FROM attendance_records ar
WHERE %s
GROUP BY ar.student_id
ORDER BY MAX(ar.roll_no) ASC, MAX(ar.student_name) ASC`, len(args), len(args), whereClause)
	rows := []AttendanceSummaryRow{}
	if err := r.db.SelectContext(ctx, &rows, studentsSQL, args...); err != nil {
		return nil, fmt.Errorf("attendance per-student summary: %w", err)
	}

	return &AttendanceSummary{
		CourseID:  filter.CourseID,
		ClassDays: totalRow.ClassDays,
		Present:   totalRow.Present,
		Students:  rows,
	}, nil
}

func buildSummaryConditions(filter AttendanceSummaryFilter) ([]string, []interface{}) {
	args := []interface{}{filter.CourseID}
	conditions := []string{"ar.course_id = $1"}

	if filter.DateFrom != "" {
		args = append(args, filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("ar.date >= $%d", len(args)))
	}
	if filter.DateTo != "" {
		args = append(args, filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("ar.date <= $%d", len(args)))
	}
	return conditions, args
}
