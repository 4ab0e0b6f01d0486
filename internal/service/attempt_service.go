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

// Attempt lifecycle errors.
var (
	ErrTestNotAvailable  = errors.New("test is not open for attempts")
	ErrAttemptInProgress = errors.New("an attempt is already in progress for this test")
	ErrRetryNotAllowed   = errors.New("re-attempt is blocked for this test")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrNotAttemptOwner   = errors.New("attempt belongs to a different student")
	ErrAttemptFinished   = errors.New("attempt has already finished")
)

// MonitorEvent is one entry on a test's live monitor channel.
type MonitorEvent struct {
	Kind      string    `json:"kind"`
	TestID    uuid.UUID `json:"test_id"`
	AttemptID uuid.UUID `json:"attempt_id"`
	StudentID int       `json:"student_id"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// gradeJob is pushed to the grading queue when an attempt finishes.
type gradeJob struct {
	AttemptID string `json:"attempt_id"`
	TestID    string `json:"test_id"`
	StudentID int    `json:"student_id"`
}

// draftJob carries one autosaved response to the draft persistence worker.
type draftJob struct {
	AttemptID string          `json:"attempt_id"`
	TestID    string          `json:"test_id"`
	StudentID int             `json:"student_id"`
	Skill     string          `json:"skill"`
	Response  json.RawMessage `json:"response"`
}

// AttemptService drives the attempt state machine: one started attempt per
// student and test, a server-owned countdown, and one-way terminal
// transitions with post-exam lockdown.
type AttemptService struct {
	attemptRepo    *repository.TestAttemptRepository
	securityRepo   *repository.ExamSecurityRepository
	submissionRepo *repository.SubmissionRepository
	testRepo       *repository.TestRepository
	sessionService *DeviceSessionService
	timer          *TimerService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewAttemptService creates a new AttemptService and wires itself as the
// timer expiry handler.
func NewAttemptService(
	attemptRepo *repository.TestAttemptRepository,
	securityRepo *repository.ExamSecurityRepository,
	submissionRepo *repository.SubmissionRepository,
	testRepo *repository.TestRepository,
	sessionService *DeviceSessionService,
	timer *TimerService,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	s := &AttemptService{
		attemptRepo:    attemptRepo,
		securityRepo:   securityRepo,
		submissionRepo: submissionRepo,
		testRepo:       testRepo,
		sessionService: sessionService,
		timer:          timer,
		rdb:            rdb,
		log:            log.With().Str("component", "attempt_service").Logger(),
	}
	timer.OnExpire(s.handleExpiry)
	return s
}

// Start opens a new attempt for a student. The caller must hold a validated
// device session; its ID is bound to the attempt so the monitor can tie the
// two together.
func (s *AttemptService) Start(ctx context.Context, studentID int, testID uuid.UUID, session *model.DeviceSession) (*model.TestAttempt, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotAvailable
		}
		return nil, fmt.Errorf("get test: %w", err)
	}

	now := time.Now()
	if test.Status != model.TestStatusPublished {
		return nil, ErrTestNotAvailable
	}
	if test.ScheduledStart != nil && test.ScheduledStart.After(now) {
		return nil, ErrTestNotAvailable
	}
	if test.ScheduledEnd != nil && test.ScheduledEnd.Before(now) {
		return nil, ErrTestNotAvailable
	}

	// Reattempt gate: once a previous attempt is locked down, only an
	// explicit admin retry flag opens the door again.
	latest, err := s.attemptRepo.GetLatest(ctx, studentID, testID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get latest attempt: %w", err)
	}
	if latest != nil {
		if latest.Status == model.AttemptStarted {
			return nil, ErrAttemptInProgress
		}
		if !latest.RetryAllowed {
			sec, secErr := s.securityRepo.GetByAttempt(ctx, latest.ID)
			if secErr != nil && !errors.Is(secErr, pgx.ErrNoRows) {
				return nil, fmt.Errorf("get security record: %w", secErr)
			}
			if sec != nil && sec.PostExam.ReattemptBlocked {
				return nil, ErrRetryNotAllowed
			}
		}
	}

	attempt := &model.TestAttempt{
		TestID:    testID,
		StudentID: studentID,
		Status:    model.AttemptStarted,
		StartedAt: now,
		EndsAt:    now.Add(time.Duration(test.DurationMinutes) * time.Minute),
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrAttemptConflict) {
			return nil, ErrAttemptInProgress
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	security := &model.ExamSecurity{
		AttemptID:     attempt.ID,
		StudentID:     studentID,
		TestID:        testID,
		SecurityScore: model.InitialSecurityScore,
		Status:        model.SecuritySecure,
	}
	if err := s.securityRepo.Create(ctx, security); err != nil {
		return nil, fmt.Errorf("create security record: %w", err)
	}

	if err := s.timer.Register(ctx, attempt.ID, attempt.EndsAt); err != nil {
		return nil, fmt.Errorf("register timer: %w", err)
	}

	// Map the student to their in-flight attempt for cheap lookups.
	if err := s.rdb.Set(ctx, config.CacheKey.StudentActiveAttemptKey(studentID), attempt.ID.String(), time.Until(attempt.EndsAt)+time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Int("student_id", studentID).Msg("Failed to cache active attempt")
	}

	if session != nil {
		if err := s.sessionService.BindAttempt(ctx, session.ID, attempt.ID); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to bind attempt to session")
		}
	}

	s.publishMonitor(ctx, MonitorEvent{
		Kind: "attempt_started", TestID: testID, AttemptID: attempt.ID,
		StudentID: studentID, At: now,
	})

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("test_id", testID.String()).
		Int("student_id", studentID).
		Int("attempt_number", attempt.AttemptNumber).
		Msg("Attempt started")
	return attempt, nil
}

// GetOwned fetches an attempt and verifies it belongs to the caller.
func (s *AttemptService) GetOwned(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.TestAttempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrNotAttemptOwner
	}
	return attempt, nil
}

// Remaining reports the seconds left on an owned attempt, never negative.
func (s *AttemptService) Remaining(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.RemainingTimeResponse, error) {
	if _, err := s.GetOwned(ctx, studentID, attemptID); err != nil {
		return nil, err
	}
	seconds, endsAt, err := s.timer.Remaining(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return &model.RemainingTimeResponse{
		AttemptID:        attemptID,
		RemainingSeconds: seconds,
		EndsAt:           endsAt,
	}, nil
}

// SaveResponse autosaves a student's in-progress response for one skill.
// The draft is stashed in Redis for crash recovery and persisted to the DB
// asynchronously by the draft worker.
func (s *AttemptService) SaveResponse(ctx context.Context, studentID int, attemptID uuid.UUID, req *model.SaveResponseRequest) error {
	attempt, err := s.GetOwned(ctx, studentID, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status.IsTerminal() {
		return ErrAttemptFinished
	}

	if err := s.rdb.HSet(ctx, config.CacheKey.AttemptDraftsKey(attemptID), string(req.Skill), string(req.Response)).Err(); err != nil {
		return fmt.Errorf("stash draft: %w", err)
	}

	job, _ := json.Marshal(draftJob{
		AttemptID: attemptID.String(),
		TestID:    attempt.TestID.String(),
		StudentID: studentID,
		Skill:     string(req.Skill),
		Response:  req.Response,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.DraftQueue, job).Err(); err != nil {
		return fmt.Errorf("enqueue draft: %w", err)
	}
	return nil
}

// Drafts returns the autosaved responses of an attempt, keyed by skill.
func (s *AttemptService) Drafts(ctx context.Context, studentID int, attemptID uuid.UUID) (map[string]string, error) {
	if _, err := s.GetOwned(ctx, studentID, attemptID); err != nil {
		return nil, err
	}
	drafts, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptDraftsKey(attemptID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get drafts: %w", err)
	}
	return drafts, nil
}

// Submit finishes an attempt on the student's request.
func (s *AttemptService) Submit(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.TestAttempt, error) {
	attempt, err := s.GetOwned(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	if err := s.finish(ctx, attempt, model.AttemptCompleted, model.SubmitReasonStudent); err != nil {
		return nil, err
	}
	return s.attemptRepo.GetByID(ctx, attemptID)
}

// Abandon marks an attempt as walked away from. Reached through the
// explicit exam/end endpoint when the student leaves without submitting.
// An exit with violations on record is classified as violation_exit so the
// monitor can tell the two apart.
func (s *AttemptService) Abandon(ctx context.Context, studentID int, attemptID uuid.UUID) error {
	attempt, err := s.GetOwned(ctx, studentID, attemptID)
	if err != nil {
		return err
	}

	status := model.AttemptAbandoned
	if sec, secErr := s.securityRepo.GetByAttempt(ctx, attemptID); secErr == nil && sec.Status == model.SecurityViolated {
		status = model.AttemptViolationExit
	}
	return s.finish(ctx, attempt, status, model.SubmitReasonAbandoned)
}

// Terminate ends an attempt by proctoring decision. Responses saved so far
// stay graded; the terminal status records why.
func (s *AttemptService) Terminate(ctx context.Context, attemptID uuid.UUID, status model.AttemptStatus) error {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("get attempt: %w", err)
	}
	return s.finish(ctx, attempt, status, model.SubmitReasonSecurity)
}

// handleExpiry fires when the server-side countdown runs out.
func (s *AttemptService) handleExpiry(attemptID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		s.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Expiry fired for unknown attempt")
		return
	}
	if attempt.Status.IsTerminal() {
		return // finished before the timer fired
	}

	if err := s.finish(ctx, attempt, model.AttemptCompleted, model.SubmitReasonTimeExpired); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Auto-submit on expiry failed")
		return
	}
	s.log.Info().Str("attempt_id", attemptID.String()).Msg("Attempt auto-submitted on expiry")
}

// finish is the single funnel for terminal transitions: flip the attempt
// row (first writer wins), apply the one-way lockdown, stop the clock, and
// hand the attempt to the grading pipeline.
func (s *AttemptService) finish(ctx context.Context, attempt *model.TestAttempt, status model.AttemptStatus, reason string) error {
	if attempt.Status.IsTerminal() {
		return ErrAttemptFinished
	}

	if err := s.attemptRepo.Finish(ctx, attempt.ID, status, reason); err != nil {
		if errors.Is(err, repository.ErrAttemptNotActive) {
			return ErrAttemptFinished
		}
		return fmt.Errorf("finish attempt: %w", err)
	}

	if err := s.securityRepo.Lock(ctx, attempt.ID); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Post-exam lockdown failed")
	}

	// The device token must not outlive the attempt it was driving.
	if err := s.sessionService.EndExamSessions(ctx, attempt.StudentID); err != nil {
		s.log.Error().Err(err).Int("student_id", attempt.StudentID).Msg("Failed to terminate device sessions")
	}

	s.timer.Clear(ctx, attempt.ID)

	if err := s.rdb.Del(ctx, config.CacheKey.StudentActiveAttemptKey(attempt.StudentID)).Err(); err != nil {
		s.log.Warn().Err(err).Int("student_id", attempt.StudentID).Msg("Failed to evict active attempt key")
	}

	// Flush any remaining drafts into submissions before grading picks up.
	s.flushDrafts(ctx, attempt)

	job, _ := json.Marshal(gradeJob{
		AttemptID: attempt.ID.String(),
		TestID:    attempt.TestID.String(),
		StudentID: attempt.StudentID,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.GradeQueue, job).Err(); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to enqueue grading job")
	}

	s.publishMonitor(ctx, MonitorEvent{
		Kind: "attempt_finished", TestID: attempt.TestID, AttemptID: attempt.ID,
		StudentID: attempt.StudentID, Detail: reason, At: time.Now(),
	})

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("status", string(status)).
		Str("reason", reason).
		Msg("Attempt finished")
	return nil
}

// flushDrafts moves Redis-stashed drafts into the submissions table so the
// grading worker sees the latest responses even if the draft worker lags.
func (s *AttemptService) flushDrafts(ctx context.Context, attempt *model.TestAttempt) {
	drafts, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptDraftsKey(attempt.ID)).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to read drafts for final flush")
		return
	}
	for skill, raw := range drafts {
		st := model.SkillType(skill)
		if !model.ValidSkill(st) {
			continue
		}
		if err := s.submissionRepo.UpsertResponse(ctx, attempt.ID, attempt.TestID, attempt.StudentID, st, json.RawMessage(raw)); err != nil {
			s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Str("skill", skill).Msg("Final draft flush failed")
		}
	}
	if err := s.rdb.Del(ctx, config.CacheKey.AttemptDraftsKey(attempt.ID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to drop drafts key")
	}
}

// publishMonitor pushes a live event to the test's monitor channel. Best
// effort: a dropped event only degrades the dashboard, never the exam.
func (s *AttemptService) publishMonitor(ctx context.Context, event MonitorEvent) {
	data, _ := json.Marshal(event)
	if err := s.rdb.Publish(ctx, config.CacheKey.TestMonitorChannel(event.TestID), data).Err(); err != nil {
		s.log.Warn().Err(err).Str("test_id", event.TestID.String()).Msg("Failed to publish monitor event")
	}
}

// ListByStudent returns a student's attempt history.
func (s *AttemptService) ListByStudent(ctx context.Context, studentID int) ([]model.TestAttempt, error) {
	attempts, err := s.attemptRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.TestAttempt{}
	}
	return attempts, nil
}

// AllowRetry flips the admin retry flag on a finished attempt so the
// student can start over despite the lockdown.
func (s *AttemptService) AllowRetry(ctx context.Context, attemptID uuid.UUID) error {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("get attempt: %w", err)
	}
	if !attempt.Status.IsTerminal() {
		return ErrAttemptInProgress
	}
	return s.attemptRepo.SetRetryAllowed(ctx, attemptID, true)
}
