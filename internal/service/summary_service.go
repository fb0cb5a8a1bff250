package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type summaryRepository interface {
	Summarize(ctx context.Context, filter repository.AttendanceSummaryFilter) (*repository.AttendanceSummary, error)
}

// SummaryRequest scopes a per-course attendance summary.
type SummaryRequest struct {
	CourseID string `form:"courseId" validate:"required"`
	From     string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// SummaryService aggregates attendance per course.
type SummaryService struct {
	repo      summaryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSummaryService constructs the service.
func NewSummaryService(repo summaryRepository, validate *validator.Validate, logger *zap.Logger) *SummaryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{repo: repo, validator: validate, logger: logger}
}

// Summarize returns class days and per-student present counts for a course.
func (s *SummaryService) Summarize(ctx context.Context, req SummaryRequest) (*repository.AttendanceSummary, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid summary filter")
	}
	if req.From != "" && req.To != "" && req.From > req.To {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	summary, err := s.repo.Summarize(ctx, repository.AttendanceSummaryFilter{CourseID: req.CourseID, DateFrom: req.From, DateTo: req.To})
	if err != nil {
		s.logger.Warn("attendance summary failed", zap.String("course_id", req.CourseID), zap.Error(err))
		return nil, appErrors.Store(err, "failed to summarize attendance")
	}
	return summary, nil
}
