package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/pkg/export"
	"github.com/noah-isme/qr-attendance-api/pkg/storage"
)

type attendanceSource interface {
	ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Rows         int
}

// SignedDownload is a download link for a stored export.
type SignedDownload struct {
	Token     string
	URL       string
	ExpiresAt time.Time
}

// ExportService renders attendance tables and persists the resulting files.
type ExportService struct {
	records attendanceSource
	storage fileStorage
	signer  *storage.SignedURLSigner
	clock   Clock
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(records attendanceSource, storage fileStorage, signer *storage.SignedURLSigner, clock Clock, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		records: records,
		storage: storage,
		signer:  signer,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the attendance table for job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer := export.ForFormat(string(job.Params.Format))
	if renderer == nil {
		return nil, fmt.Errorf("unsupported format %s", job.Params.Format)
	}

	records, err := s.records.ListAll(ctx, models.AttendanceFilter{
		CourseID: job.Params.CourseID,
		DateFrom: job.Params.From,
		DateTo:   job.Params.To,
	})
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	payload, err := renderer.Render(attendanceTable(job.Params, records))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", renderer.Extension(), err)
	}

	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}
	s.logger.Info("export generated", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("rows", len(records)))
	return &ExportResult{RelativePath: relPath, Rows: len(records)}, nil
}

// Sign issues a download link for the stored file of a job.
func (s *ExportService) Sign(jobID, relPath string) (*SignedDownload, error) {
	token, grant, err := s.signer.Sign(jobID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &SignedDownload{
		Token:     token,
		URL:       fmt.Sprintf("%s/reports/download?token=%s", prefix, token),
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

// Verify validates a download token.
func (s *ExportService) Verify(token string) (storage.Grant, error) {
	return s.signer.Verify(token)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than the configured result TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

// ResultTTL is how long finished exports are retained.
func (s *ExportService) ResultTTL() time.Duration {
	return s.cfg.ResultTTL
}

func (s *ExportService) buildFilename(job *models.ReportJob, ext string) string {
	timestamp := s.clock.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("attendance_%s_%s_%s.%s", sanitizeFilename(job.Params.CourseID), timestamp, sanitizeFilename(job.ID), ext)
}

func attendanceTable(params models.ReportJobParams, records []models.AttendanceRecord) export.Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rollNo := ""
		if r.RollNo != nil {
			rollNo = *r.RollNo
		}
		rows = append(rows, []string{
			r.Date,
			r.CourseID,
			r.StudentName,
			rollNo,
			string(r.Status),
			r.TeacherName,
			r.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	title := fmt.Sprintf("Attendance %s", params.CourseID)
	if params.From != "" || params.To != "" {
		title = fmt.Sprintf("%s (%s to %s)", title, orDash(params.From), orDash(params.To))
	}
	return export.Table{
		Title:   title,
		Columns: []string{"Date", "Course", "Student", "Roll No", "Status", "Teacher", "Scanned At"},
		Rows:    rows,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
