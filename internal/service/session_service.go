package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

const (
	defaultSessionDuration = 15 * time.Minute
	maxSessionMinutes      = 7 * 24 * 60
	currentSessionKeyAll   = "session:current:_any"
)

type sessionRepository interface {
	Insert(ctx context.Context, session *models.Session) (string, error)
	FindLatestActive(ctx context.Context, courseID string) (*models.Session, error)
	SetActive(ctx context.Context, id string, active bool) error
	DeactivateCourse(ctx context.Context, courseID string) (int64, error)
	CountOpen(ctx context.Context, courseID string, nowMillis int64) (int, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
}

// IssuedSession pairs a session with the token students scan.
type IssuedSession struct {
	Session *models.Session `json:"session"`
	Token   string          `json:"qrString"`
}

// SessionServiceConfig tunes session issuance.
type SessionServiceConfig struct {
	DefaultDuration time.Duration
}

// SessionService manages the lifecycle of class sessions: issuance, lazy
// expiry on read and "no class" markers. Concurrent issuance for one course is
// allowed; the most recently created active session wins every lookup.
type SessionService struct {
	repo    sessionRepository
	codec   *SessionTokenCodec
	cache   *CacheService
	metrics *MetricsService
	clock   Clock
	logger  *zap.Logger
	config  SessionServiceConfig
}

// NewSessionService constructs the service. cache and metrics may be nil.
func NewSessionService(repo sessionRepository, codec *SessionTokenCodec, cache *CacheService, metrics *MetricsService, clock Clock, logger *zap.Logger, cfg SessionServiceConfig) *SessionService {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = defaultSessionDuration
	}
	return &SessionService{repo: repo, codec: codec, cache: cache, metrics: metrics, clock: clock, logger: logger, config: cfg}
}

// Generate issues a live session for courseID. durationMinutes falls back to
// the configured default when nil, not finite or not positive.
func (s *SessionService) Generate(ctx context.Context, courseID string, durationMinutes *float64, issuer models.Issuer) (*IssuedSession, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}

	now := s.clock.Now()
	duration := s.resolveDuration(durationMinutes)
	session := &models.Session{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		TeacherID:   issuer.ID,
		TeacherName: issuer.Name,
		Kind:        models.SessionKindLive,
		CreatedAt:   now,
		ExpiryAt:    now.UnixMilli() + duration.Milliseconds(),
		Active:      true,
	}

	token, err := s.codec.Encode(session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}
	if _, err := s.repo.Insert(ctx, session); err != nil {
		return nil, appErrors.Store(err, "failed to store session")
	}

	s.metrics.SessionCreated(string(models.SessionKindLive))
	// Only issuance writes the current-session keys.
	s.cache.Set(ctx, currentSessionKey(courseID), session, duration)
	s.cache.Set(ctx, currentSessionKeyAll, session, duration)
	s.observeOverlap(ctx, courseID, now)

	s.logger.Info("session generated",
		zap.String("session_id", session.ID),
		zap.String("course_id", courseID),
		zap.String("teacher_id", issuer.ID),
		zap.Duration("duration", duration),
	)
	return &IssuedSession{Session: session, Token: token}, nil
}

// Current returns the live session for courseID (any course when empty), or
// nil when there is none. A session read past its deadline is deactivated and
// nil is returned.
func (s *SessionService) Current(ctx context.Context, courseID string) (*IssuedSession, error) {
	courseID = strings.TrimSpace(courseID)
	key := currentSessionKey(courseID)
	now := s.clock.Now()

	var cached models.Session
	if s.cache.Get(ctx, key, &cached) && !cached.ExpiredAt(now) && cached.Active {
		return s.issue(&cached)
	}

	session, err := s.repo.FindLatestActive(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Store(err, "failed to load current session")
	}

	if session.ExpiredAt(now) {
		if err := s.repo.SetActive(ctx, session.ID, false); err != nil {
			return nil, appErrors.Store(err, "failed to expire session")
		}
		session.Active = false
		s.metrics.SessionExpiredOnRead()
		s.cache.Invalidate(ctx, key, currentSessionKey(session.CourseID), currentSessionKeyAll)
		s.logger.Debug("session expired on read", zap.String("session_id", session.ID), zap.String("course_id", session.CourseID))
		return nil, nil
	}

	return s.issue(session)
}

// MarkNoClass deactivates every active session of courseID and records a
// NO_CLASS marker. Current returns nil for the course afterwards.
func (s *SessionService) MarkNoClass(ctx context.Context, courseID string, issuer models.Issuer) (*models.Session, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}

	closed, err := s.repo.DeactivateCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to close active sessions")
	}

	marker := &models.Session{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		TeacherID:   issuer.ID,
		TeacherName: issuer.Name,
		Kind:        models.SessionKindNoClass,
		CreatedAt:   s.clock.Now(),
		ExpiryAt:    0,
		Active:      false,
	}
	if _, err := s.repo.Insert(ctx, marker); err != nil {
		return nil, appErrors.Store(err, "failed to store no-class marker")
	}

	s.metrics.SessionCreated(string(models.SessionKindNoClass))
	s.metrics.SetOverlappingSessions(courseID, 0)
	s.cache.Invalidate(ctx, currentSessionKey(courseID), currentSessionKeyAll)
	s.logger.Info("no class marked", zap.String("course_id", courseID), zap.String("teacher_id", issuer.ID), zap.Int64("closed_sessions", closed))
	return marker, nil
}

// List returns the session log.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Store(err, "failed to list sessions")
	}
	return sessions, total, nil
}

func (s *SessionService) issue(session *models.Session) (*IssuedSession, error) {
	token, err := s.codec.Encode(session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}
	return &IssuedSession{Session: session, Token: token}, nil
}

func (s *SessionService) observeOverlap(ctx context.Context, courseID string, now time.Time) {
	open, err := s.repo.CountOpen(ctx, courseID, now.UnixMilli())
	if err != nil {
		s.logger.Warn("count open sessions failed", zap.String("course_id", courseID), zap.Error(err))
		return
	}
	s.metrics.SetOverlappingSessions(courseID, open)
	if open > 1 {
		s.logger.Warn("overlapping live sessions", zap.String("course_id", courseID), zap.Int("open_sessions", open))
	}
}

func (s *SessionService) resolveDuration(minutes *float64) time.Duration {
	if minutes == nil || math.IsNaN(*minutes) || math.IsInf(*minutes, 0) || *minutes <= 0 {
		return s.config.DefaultDuration
	}
	m := math.Min(*minutes, maxSessionMinutes)
	return time.Duration(m * float64(time.Minute))
}

func currentSessionKey(courseID string) string {
	if courseID == "" {
		return currentSessionKeyAll
	}
	return "session:current:" + courseID
}
