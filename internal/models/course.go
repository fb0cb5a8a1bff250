package models

import "time"

// Course is an entry of the course catalog; Code is the public identifier.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Enrollment links a user (student or teacher) to a course code.
type Enrollment struct {
	UserID     string    `db:"user_id" json:"user_id"`
	CourseCode string    `db:"course_code" json:"course_code"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
