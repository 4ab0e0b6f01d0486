package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Proctoring errors.
var (
	ErrUnknownViolationType = errors.New("unknown violation type")
	ErrAttemptLockedDown    = errors.New("attempt is locked, no further security writes accepted")
	ErrSecurityNotFound     = errors.New("security record not found")
)

// violationAudit is pushed to the violation log queue for async persistence.
type violationAudit struct {
	AttemptID string `json:"attempt_id"`
	StudentID int    `json:"student_id"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Deduction int    `json:"deduction"`
	Details   string `json:"details,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// SecurityService is the violation ingester. Every report is classified
// against the fixed rule table, folded into the attempt's security record,
// and checked against the termination thresholds.
type SecurityService struct {
	securityRepo   *repository.ExamSecurityRepository
	attemptService *AttemptService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewSecurityService creates a new SecurityService.
func NewSecurityService(
	securityRepo *repository.ExamSecurityRepository,
	attemptService *AttemptService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SecurityService {
	return &SecurityService{
		securityRepo:   securityRepo,
		attemptService: attemptService,
		rdb:            rdb,
		log:            log.With().Str("component", "security_service").Logger(),
	}
}

// ReportViolation processes one client-reported violation. Unknown types are
// rejected before touching any state. Crossing a termination threshold ends
// the attempt in the same call.
func (s *SecurityService) ReportViolation(ctx context.Context, studentID int, req *model.ReportViolationRequest) (*model.ViolationOutcome, error) {
	vtype := model.ViolationType(req.ViolationType)
	rule, ok := model.RuleFor(vtype)
	if !ok {
		return nil, ErrUnknownViolationType
	}

	attempt, err := s.attemptService.GetOwned(ctx, studentID, req.AttemptID)
	if err != nil {
		return nil, err
	}

	security, err := s.securityRepo.GetByAttempt(ctx, req.AttemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSecurityNotFound
		}
		return nil, fmt.Errorf("get security record: %w", err)
	}
	if security.Locked() || attempt.Status.IsTerminal() {
		return nil, ErrAttemptLockedDown
	}

	updated, err := s.securityRepo.ApplyViolation(ctx, req.AttemptID, rule.Severity, rule.Deduction)
	if err != nil {
		return nil, fmt.Errorf("apply violation: %w", err)
	}

	// Audit trail goes through the queue; the hot path never waits on the
	// violation_events insert.
	s.enqueueAudit(ctx, violationAudit{
		AttemptID: req.AttemptID.String(),
		StudentID: studentID,
		Type:      string(vtype),
		Severity:  string(rule.Severity),
		Deduction: rule.Deduction,
		Details:   req.Details,
		Timestamp: time.Now().Unix(),
	})

	outcome := &model.ViolationOutcome{
		Accepted:        true,
		Severity:        rule.Severity,
		Action:          rule.Action,
		SecurityScore:   updated.SecurityScore,
		RemainingBudget: updated.Budget(),
	}

	if updated.ShouldTerminate() {
		outcome.Terminated = true
		s.terminate(ctx, attempt, updated, vtype)
	} else {
		s.publishMonitor(ctx, attempt, MonitorEvent{
			Kind: "violation", TestID: attempt.TestID, AttemptID: attempt.ID,
			StudentID: studentID, Detail: string(vtype), At: time.Now(),
		})
	}

	s.log.Info().
		Str("attempt_id", req.AttemptID.String()).
		Str("type", string(vtype)).
		Str("severity", string(rule.Severity)).
		Int("score", updated.SecurityScore).
		Bool("terminated", outcome.Terminated).
		Msg("Violation processed")
	return outcome, nil
}

// terminate ends the attempt after a threshold breach. Draft responses are
// flushed by the finish funnel, so nothing the student typed is lost.
func (s *SecurityService) terminate(ctx context.Context, attempt *model.TestAttempt, security *model.ExamSecurity, trigger model.ViolationType) {
	if err := s.securityRepo.MarkTerminated(ctx, attempt.ID); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to mark security terminated")
	}

	if err := s.attemptService.Terminate(ctx, attempt.ID, model.AttemptTerminated); err != nil && !errors.Is(err, ErrAttemptFinished) {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to terminate attempt")
	}

	s.publishMonitor(ctx, attempt, MonitorEvent{
		Kind: "attempt_terminated", TestID: attempt.TestID, AttemptID: attempt.ID,
		StudentID: attempt.StudentID, Detail: string(trigger), At: time.Now(),
	})

	s.log.Warn().
		Str("attempt_id", attempt.ID.String()).
		Int("score", security.SecurityScore).
		Int("critical", security.CriticalCount).
		Int("high", security.HighCount).
		Str("trigger", string(trigger)).
		Msg("Attempt terminated by proctoring thresholds")
}

// Status reports the security record of an owned attempt, including the
// remaining violation budget.
func (s *SecurityService) Status(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.ExamSecurity, error) {
	if _, err := s.attemptService.GetOwned(ctx, studentID, attemptID); err != nil {
		return nil, err
	}
	security, err := s.securityRepo.GetByAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSecurityNotFound
		}
		return nil, fmt.Errorf("get security record: %w", err)
	}
	return security, nil
}

// StatusForStaff reports any attempt's security record without the
// ownership check. Faculty monitor path.
func (s *SecurityService) StatusForStaff(ctx context.Context, attemptID uuid.UUID) (*model.ExamSecurity, error) {
	security, err := s.securityRepo.GetByAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSecurityNotFound
		}
		return nil, fmt.Errorf("get security record: %w", err)
	}
	return security, nil
}

func (s *SecurityService) enqueueAudit(ctx context.Context, audit violationAudit) {
	data, _ := json.Marshal(audit)
	if err := s.rdb.RPush(ctx, config.WorkerKey.ViolationLogQueue, data).Err(); err != nil {
		s.log.Error().Err(err).Str("attempt_id", audit.AttemptID).Msg("Failed to enqueue violation audit")
	}
}

func (s *SecurityService) publishMonitor(ctx context.Context, attempt *model.TestAttempt, event MonitorEvent) {
	data, _ := json.Marshal(event)
	if err := s.rdb.Publish(ctx, config.CacheKey.TestMonitorChannel(attempt.TestID), data).Err(); err != nil {
		s.log.Warn().Err(err).Str("test_id", attempt.TestID.String()).Msg("Failed to publish monitor event")
	}
}
