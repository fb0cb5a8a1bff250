package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type summaryRepoStub struct {
	filter repository.AttendanceSummaryFilter
	err    error
}

func (s *summaryRepoStub) Summarize(_ context.Context, filter repository.AttendanceSummaryFilter) (*repository.AttendanceSummary, error) {
	s.filter = filter
	if s.err != nil {
		return nil, s.err
	}
	return &repository.AttendanceSummary{CourseID: filter.CourseID, ClassDays: 2}, nil
}

func TestSummaryServiceValidates(t *testing.T) {
	svc := NewSummaryService(&summaryRepoStub{}, nil, nil)

	_, err := svc.Summarize(context.Background(), SummaryRequest{CourseID: "  "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Summarize(context.Background(), SummaryRequest{CourseID: "CS101", From: "2024-03-10", To: "2024-03-01"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Summarize(context.Background(), SummaryRequest{CourseID: "CS101", From: "03/01/2024"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSummaryServicePassesFilter(t *testing.T) {
	repo := &summaryRepoStub{}
	svc := NewSummaryService(repo, nil, nil)

	summary, err := svc.Summarize(context.Background(), SummaryRequest{CourseID: " CS101 ", From: "2024-03-01", To: "2024-03-31"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ClassDays)
	assert.Equal(t, repository.AttendanceSummaryFilter{CourseID: "CS101", DateFrom: "2024-03-01", DateTo: "2024-03-31"}, repo.filter)
}

func TestSummaryServiceStoreFailure(t *testing.T) {
	svc := NewSummaryService(&summaryRepoStub{err: errors.New("down")}, nil, nil)
	_, err := svc.Summarize(context.Background(), SummaryRequest{CourseID: "CS101"})
	assert.True(t, errors.Is(err, appErrors.ErrStoreUnavailable))
}
