package models

import "time"

// SessionKind distinguishes live QR sessions from "no class" markers.
type SessionKind string

const (
	SessionKindLive    SessionKind = "LIVE"
	SessionKindNoClass SessionKind = "NO_CLASS"
)

// Issuer identifies the teacher creating a session.
type Issuer struct {
	ID   string
	Name string
}

// Session is one row of the append-only class_sessions log.
// ExpiryAt is epoch milliseconds and is zero for NO_CLASS markers.
type Session struct {
	ID          string      `db:"id" json:"id"`
	CourseID    string      `db:"course_id" json:"course_id"`
	TeacherID   string      `db:"teacher_id" json:"teacher_id"`
	TeacherName string      `db:"teacher_name" json:"teacher_name"`
	Kind        SessionKind `db:"kind" json:"kind"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	ExpiryAt    int64       `db:"expiry_at" json:"expiry_at"`
	Active      bool        `db:"active" json:"active"`
}

// IsNoClass reports whether the row is an explicit "no class" marker.
func (s *Session) IsNoClass() bool {
	return s.Kind == SessionKindNoClass
}

// ExpiredAt reports whether the deadline has passed at now. Markers are always expired.
func (s *Session) ExpiredAt(now time.Time) bool {
	if s.IsNoClass() {
		return true
	}
	return now.UnixMilli() > s.ExpiryAt
}

// SessionFilter scopes the session audit listing.
type SessionFilter struct {
	CourseID  string
	TeacherID string
	Page      int
	PageSize  int
}
