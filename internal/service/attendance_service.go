package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type attendanceRepository interface {
	InsertIfAbsent(ctx context.Context, record *models.AttendanceRecord) (bool, error)
	FindByStudentCourseDay(ctx context.Context, studentID, courseID, date string) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, userID, courseCode string) (bool, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type courseLookup interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

// RecordResult is the success-shaped outcome of a scan.
type RecordResult struct {
	Outcome models.RecordOutcome     `json:"outcome"`
	Record  *models.AttendanceRecord `json:"record"`
}

// AttendanceListRequest captures query filters for attendance listings.
type AttendanceListRequest struct {
	StudentID string `form:"studentId" validate:"omitempty,uuid"`
	CourseID  string `form:"courseId"`
	Date      string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Status    string `form:"status" validate:"omitempty,attendance_status"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// AttendanceService records scans and serves attendance history.
type AttendanceService struct {
	records     attendanceRepository
	enrollments enrollmentChecker
	users       userLookup
	courses     courseLookup
	codec       *SessionTokenCodec
	metrics     *MetricsService
	clock       Clock
	location    *time.Location
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service. loc decides the
// calendar day a scan belongs to and defaults to UTC.
func NewAttendanceService(records attendanceRepository, enrollments enrollmentChecker, users userLookup, courses courseLookup, codec *SessionTokenCodec, metrics *MetricsService, clock Clock, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{
		records:     records,
		enrollments: enrollments,
		users:       users,
		courses:     courses,
		codec:       codec,
		metrics:     metrics,
		clock:       clock,
		location:    loc,
		validator:   validate,
		logger:      logger,
	}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// Today returns the calendar day of now in the attendance timezone.
func (s *AttendanceService) Today() string {
	return s.clock.Now().In(s.location).Format(models.DateLayout)
}

// Record marks studentID present for the course named by token. The token's
// own deadline decides expiry, independent of the course's current session.
// A second scan on the same day yields OutcomeAlreadyRecorded.
func (s *AttendanceService) Record(ctx context.Context, token string, studentID string) (*RecordResult, error) {
	result, err := s.record(ctx, strings.TrimSpace(token), studentID)
	if err != nil {
		s.metrics.ScanOutcome(appErrors.FromError(err).Code)
		return nil, err
	}
	s.metrics.ScanOutcome(string(result.Outcome))
	return result, nil
}

func (s *AttendanceService) record(ctx context.Context, token string, studentID string) (*RecordResult, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if claims.ExpiredAt(now) {
		return nil, appErrors.Clone(appErrors.ErrExpired, "session token has expired")
	}

	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Store(err, "failed to load student")
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, student.ID, claims.CourseID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, fmt.Sprintf("student is not enrolled in %s", claims.CourseID))
	}

	today := now.In(s.location).Format(models.DateLayout)
	existing, err := s.records.FindByStudentCourseDay(ctx, student.ID, claims.CourseID, today)
	switch {
	case err == nil:
		return &RecordResult{Outcome: models.OutcomeAlreadyRecorded, Record: existing}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Store(err, "failed to check existing attendance")
	}

	courseName, err := s.courseName(ctx, claims.CourseID)
	if err != nil {
		return nil, err
	}

	record := &models.AttendanceRecord{
		StudentID:   student.ID,
		StudentName: student.DisplayName(),
		RollNo:      student.RollNo,
		CourseID:    claims.CourseID,
		CourseName:  courseName,
		TeacherID:   claims.TeacherID,
		TeacherName: claims.TeacherName,
		Date:        today,
		Timestamp:   now,
		Status:      models.AttendanceStatusPresent,
	}
	if claims.SessionID != "" {
		sessionID := claims.SessionID
		record.SessionID = &sessionID
	}

	inserted, err := s.records.InsertIfAbsent(ctx, record)
	if err != nil {
		return nil, appErrors.Store(err, "failed to store attendance")
	}
	if !inserted {
		// Lost a concurrent insert for the same day.
		winner, err := s.records.FindByStudentCourseDay(ctx, student.ID, claims.CourseID, today)
		if err != nil {
			return nil, appErrors.Store(err, "failed to load concurrent attendance")
		}
		return &RecordResult{Outcome: models.OutcomeAlreadyRecorded, Record: winner}, nil
	}

	s.logger.Info("attendance recorded",
		zap.String("student_id", student.ID),
		zap.String("course_id", claims.CourseID),
		zap.String("date", today),
	)
	return &RecordResult{Outcome: models.OutcomeRecorded, Record: record}, nil
}

// ListToday returns studentID's records for today, optionally limited to a course.
func (s *AttendanceService) ListToday(ctx context.Context, studentID, courseID string) ([]models.AttendanceRecord, error) {
	today := s.Today()
	return s.listAll(ctx, models.AttendanceFilter{StudentID: studentID, CourseID: courseID, DateFrom: today, DateTo: today})
}

// ListMonth returns the records of a calendar month.
func (s *AttendanceService) ListMonth(ctx context.Context, studentID, courseID string, year, month int) ([]models.AttendanceRecord, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 2000 || year > 9999 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return s.listAll(ctx, models.AttendanceFilter{
		StudentID: studentID,
		CourseID:  courseID,
		DateFrom:  first.Format(models.DateLayout),
		DateTo:    last.Format(models.DateLayout),
	})
}

// List returns a page of records.
func (s *AttendanceService) List(ctx context.Context, req AttendanceListRequest) ([]models.AttendanceRecord, int, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance filter")
	}
	filter := models.AttendanceFilter{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		DateFrom:  req.Date,
		DateTo:    req.Date,
		Status:    models.AttendanceStatus(strings.ToLower(req.Status)),
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	records, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Store(err, "failed to list attendance")
	}
	return records, total, nil
}

func (s *AttendanceService) listAll(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	records, err := s.records.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list attendance")
	}
	return records, nil
}

func (s *AttendanceService) courseName(ctx context.Context, code string) (string, error) {
	if s.courses == nil {
		return code, nil
	}
	course, err := s.courses.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return code, nil
		}
		return "", appErrors.Store(err, "failed to load course")
	}
	return course.Name, nil
}
