package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Device session errors.
var (
	ErrSessionNotFound     = errors.New("device session not found")
	ErrSessionNotActive    = errors.New("device session is no longer active")
	ErrSessionIdle         = errors.New("device session expired due to inactivity")
	ErrSessionMismatch     = errors.New("device session belongs to a different student")
	ErrSessionTestMismatch = errors.New("device session is bound to a different test")
	ErrSessionAttemptStale = errors.New("device session's attempt is no longer active")
)

// DeviceSessionService binds each student login to one active device. A new
// session/start terminates every previous active session for the student, so
// the exam can only be driven from one browser at a time.
type DeviceSessionService struct {
	cfg          *config.Config
	sessionRepo  *repository.DeviceSessionRepository
	attemptRepo  *repository.TestAttemptRepository
	securityRepo *repository.ExamSecurityRepository
}

// NewDeviceSessionService creates a new DeviceSessionService.
func NewDeviceSessionService(
	cfg *config.Config,
	sessionRepo *repository.DeviceSessionRepository,
	attemptRepo *repository.TestAttemptRepository,
	securityRepo *repository.ExamSecurityRepository,
) *DeviceSessionService {
	return &DeviceSessionService{
		cfg:          cfg,
		sessionRepo:  sessionRepo,
		attemptRepo:  attemptRepo,
		securityRepo: securityRepo,
	}
}

// Start issues a fresh session token for a student and device, terminating
// all prior active sessions.
func (s *DeviceSessionService) Start(ctx context.Context, studentID int, req *model.StartSessionRequest, ip, userAgent string) (*model.DeviceSession, error) {
	if err := s.sessionRepo.TerminateAllActive(ctx, studentID); err != nil {
		return nil, fmt.Errorf("terminate previous sessions: %w", err)
	}

	session := &model.DeviceSession{
		Token:       uuid.New(),
		StudentID:   studentID,
		Fingerprint: req.Fingerprint,
		IPAddress:   ip,
		UserAgent:   userAgent,
		Status:      model.DeviceSessionActive,
		TestID:      req.TestID,
		StartedAt:   time.Now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Validate checks that a token identifies the caller's active, non-idle
// session and refreshes its activity timestamp. The exam-length idle window
// applies while the session has an attempt bound, so a long listening
// section can't silently kill it.
func (s *DeviceSessionService) Validate(ctx context.Context, studentID int, token uuid.UUID) (*model.DeviceSession, error) {
	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.StudentID != studentID {
		return nil, ErrSessionMismatch
	}
	if session.Status != model.DeviceSessionActive {
		return nil, ErrSessionNotActive
	}

	idleWindow := s.cfg.SessionIdleTimeout
	if session.AttemptID != nil {
		idleWindow = s.cfg.SessionExamIdleTimeout
	}
	if time.Since(session.LastActivityAt) > idleWindow {
		if err := s.sessionRepo.UpdateStatus(ctx, session.ID, model.DeviceSessionExpired); err != nil {
			return nil, fmt.Errorf("expire idle session: %w", err)
		}
		return nil, ErrSessionIdle
	}

	if err := s.sessionRepo.Touch(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	return session, nil
}

// ValidateExamContext runs Validate plus the exam cross-checks: the token
// must belong to the test the caller claims, and a bound attempt must still
// be started with its security record not terminated. A nil testID skips
// the test match, as does a session issued without a test binding.
func (s *DeviceSessionService) ValidateExamContext(ctx context.Context, studentID int, token uuid.UUID, testID *uuid.UUID) (*model.DeviceSession, error) {
	session, err := s.Validate(ctx, studentID, token)
	if err != nil {
		return nil, err
	}

	if testID != nil && session.TestID != nil && *session.TestID != *testID {
		return nil, ErrSessionTestMismatch
	}

	if session.AttemptID != nil {
		attempt, err := s.attemptRepo.GetByID(ctx, *session.AttemptID)
		if err != nil {
			return nil, fmt.Errorf("get bound attempt: %w", err)
		}
		if attempt.Status != model.AttemptStarted {
			return nil, ErrSessionAttemptStale
		}
		sec, err := s.securityRepo.GetByAttempt(ctx, attempt.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get security record: %w", err)
		}
		if sec != nil && sec.Status == model.SecurityTerminated {
			return nil, ErrSessionAttemptStale
		}
	}
	return session, nil
}

// Heartbeat refreshes session activity. Same checks as Validate.
func (s *DeviceSessionService) Heartbeat(ctx context.Context, studentID int, token uuid.UUID) (*model.DeviceSession, error) {
	return s.Validate(ctx, studentID, token)
}

// Recover returns the student's active session after a page reload or
// crash, so the client can resume without a new token. Idle sessions are
// expired on the way.
func (s *DeviceSessionService) Recover(ctx context.Context, studentID int) (*model.DeviceSession, error) {
	session, err := s.sessionRepo.GetActiveByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s.Validate(ctx, studentID, session.Token)
}

// End terminates the caller's session explicitly (logout or exam finished).
func (s *DeviceSessionService) End(ctx context.Context, studentID int, token uuid.UUID) error {
	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("get session: %w", err)
	}
	if session.StudentID != studentID {
		return ErrSessionMismatch
	}
	if session.Status != model.DeviceSessionActive {
		return nil // already terminal, idempotent
	}
	return s.sessionRepo.UpdateStatus(ctx, session.ID, model.DeviceSessionTerminated)
}

// BindAttempt records the attempt a session is driving and switches it to
// the longer in-exam idle window.
func (s *DeviceSessionService) BindAttempt(ctx context.Context, sessionID, attemptID uuid.UUID) error {
	return s.sessionRepo.BindAttempt(ctx, sessionID, attemptID)
}

// EndExamSessions terminates every active session of a student. Part of the
// post-exam lockdown: once the attempt is finished the device token must not
// outlive it.
func (s *DeviceSessionService) EndExamSessions(ctx context.Context, studentID int) error {
	return s.sessionRepo.TerminateAllActive(ctx, studentID)
}

// ResetForStudent force-terminates every active session of a student.
// Admin-only escape hatch for stuck devices.
func (s *DeviceSessionService) ResetForStudent(ctx context.Context, studentID int) error {
	return s.sessionRepo.TerminateAllActive(ctx, studentID)
}
