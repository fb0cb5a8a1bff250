package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// DateLayout is the storage format of AttendanceRecord.Date.
const DateLayout = "2006-01-02"

// AttendanceRecord is written once per student, course and day.
type AttendanceRecord struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	RollNo      *string          `db:"roll_no" json:"roll_no,omitempty"`
	CourseID    string           `db:"course_id" json:"course_id"`
	CourseName  string           `db:"course_name" json:"course_name"`
	TeacherID   string           `db:"teacher_id" json:"teacher_id"`
	TeacherName string           `db:"teacher_name" json:"teacher_name"`
	SessionID   *string          `db:"session_id" json:"session_id,omitempty"`
	Date        string           `db:"date" json:"date"`
	Timestamp   time.Time        `db:"timestamp" json:"timestamp"`
	Status      AttendanceStatus `db:"status" json:"status"`
}

// RecordOutcome is the success-shaped result of a scan.
type RecordOutcome string

const (
	OutcomeRecorded        RecordOutcome = "RECORDED"
	OutcomeAlreadyRecorded RecordOutcome = "ALREADY_RECORDED"
)

// AttendanceFilter defines query filters. Dates are inclusive YYYY-MM-DD bounds.
type AttendanceFilter struct {
	StudentID string
	CourseID  string
	DateFrom  string
	DateTo    string
	Status    AttendanceStatus
	Page      int
	PageSize  int
}
