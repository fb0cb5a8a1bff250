package dto

import "github.com/noah-isme/qr-attendance-api/internal/models"

// ReportRequest captures POST /reports/attendance payload.
type ReportRequest struct {
	CourseID string              `json:"courseId"`
	From     string              `json:"from"`
	To       string              `json:"to"`
	Format   models.ReportFormat `json:"format"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID          string                 `json:"id"`
	Status      models.ReportStatus    `json:"status"`
	Progress    int                    `json:"progress"`
	Params      models.ReportJobParams `json:"params"`
	DownloadURL *string                `json:"downloadUrl,omitempty"`
	ExpiresAt   *string                `json:"expiresAt,omitempty"`
	Error       *string                `json:"error,omitempty"`
}
