package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Grading errors.
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidBand        = errors.New("band must be between 0 and 9 in 0.5 steps")
	ErrNotSubjective      = errors.New("submission is auto-graded, use override instead")
	ErrAlreadyGraded      = errors.New("submission is already graded")
	ErrNotGradedYet       = errors.New("submission has no band to override")
)

// statsJob asks the stats worker to refresh one student's aggregates.
type statsJob struct {
	StudentID int `json:"student_id"`
}

// GradingService converts responses into band scores. Listening and reading
// are graded in RAM against the cached answer key; writing and speaking are
// queued for faculty.
type GradingService struct {
	submissionRepo *repository.SubmissionRepository
	testService    *TestService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(
	submissionRepo *repository.SubmissionRepository,
	testService *TestService,
	rdb *redis.Client,
	log zerolog.Logger,
) *GradingService {
	return &GradingService{
		submissionRepo: submissionRepo,
		testService:    testService,
		rdb:            rdb,
		log:            log.With().Str("component", "grading_service").Logger(),
	}
}

// rawBandTable maps the fraction of correct answers to a band. Thresholds
// descend; the first one the fraction clears wins.
var rawBandTable = []struct {
	MinFraction float64
	Band        float64
}{
	{0.96, 9.0}, {0.92, 8.5}, {0.87, 8.0}, {0.81, 7.5}, {0.75, 7.0},
	{0.67, 6.5}, {0.57, 6.0}, {0.50, 5.5}, {0.40, 5.0}, {0.32, 4.5},
	{0.25, 4.0}, {0.17, 3.5}, {0.12, 3.0}, {0.07, 2.5}, {0.02, 2.0},
}

// BandFromRaw converts a correct/total ratio into a band score.
func BandFromRaw(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	fraction := float64(correct) / float64(total)
	for _, row := range rawBandTable {
		if fraction >= row.MinFraction {
			return row.Band
		}
	}
	if correct > 0 {
		return 1.0
	}
	return 0
}

// GradeAttempt grades every submission of a finished attempt. Objective
// skills get a band immediately; subjective skills move to the faculty
// queue. A stats refresh is enqueued at the end either way.
func (s *GradingService) GradeAttempt(ctx context.Context, attemptID, testID uuid.UUID, studentID int) error {
	submissions, err := s.submissionRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}

	var answerKey map[string]model.AnswerEntry
	for i := range submissions {
		sub := &submissions[i]
		if sub.Status != model.GradingPending {
			continue
		}

		if !sub.Skill.IsObjective() {
			if err := s.submissionRepo.MarkQueued(ctx, sub.ID); err != nil {
				s.log.Error().Err(err).Str("submission_id", sub.ID.String()).Msg("Failed to queue subjective submission")
			}
			continue
		}

		if answerKey == nil {
			answerKey, err = s.testService.GetAnswerKey(ctx, testID)
			if err != nil {
				return fmt.Errorf("get answer key: %w", err)
			}
		}

		correct, total := s.scoreObjective(sub, answerKey)
		band := BandFromRaw(correct, total)
		if err := s.submissionRepo.SetAutoGrade(ctx, sub.ID, float64(correct), band); err != nil {
			s.log.Error().Err(err).Str("submission_id", sub.ID.String()).Msg("Failed to store auto grade")
			continue
		}

		s.log.Debug().
			Str("submission_id", sub.ID.String()).
			Str("skill", string(sub.Skill)).
			Int("correct", correct).
			Int("total", total).
			Float64("band", band).
			Msg("Submission auto-graded")
	}

	s.EnqueueStatsRefresh(ctx, studentID)
	return nil
}

// scoreObjective counts correct answers in a {question_id: answer} response
// against the key. Only questions of the submission's skill count toward
// the total; comparison is case- and whitespace-insensitive to be fair to
// fill-blank items.
func (s *GradingService) scoreObjective(sub *model.Submission, answerKey map[string]model.AnswerEntry) (correct, total int) {
	var answers map[string]string
	parseErr := json.Unmarshal(sub.Response, &answers)
	if parseErr != nil {
		s.log.Warn().Err(parseErr).Str("submission_id", sub.ID.String()).Msg("Unreadable response payload, scoring as zero")
	}

	for questionID, entry := range answerKey {
		if entry.Skill != sub.Skill {
			continue
		}
		total++
		if parseErr != nil {
			continue
		}
		given, ok := answers[questionID]
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(entry.Answer)) {
			correct++
		}
	}
	return correct, total
}

// ListPending returns queued subjective submissions for faculty, paginated.
func (s *GradingService) ListPending(ctx context.Context, page, perPage int) ([]model.Submission, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	subs, total, err := s.submissionRepo.ListPendingGrading(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, total, nil
}

// Grade assigns a band to a queued writing/speaking submission.
func (s *GradingService) Grade(ctx context.Context, submissionID uuid.UUID, band float64) (*model.Submission, error) {
	if !model.ValidBand(band) {
		return nil, ErrInvalidBand
	}

	sub, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub.Skill.IsObjective() {
		return nil, ErrNotSubjective
	}
	if sub.Status == model.GradingGraded || sub.Status == model.GradingOverridden {
		return nil, ErrAlreadyGraded
	}

	if err := s.submissionRepo.SetManualGrade(ctx, submissionID, band); err != nil {
		return nil, fmt.Errorf("store grade: %w", err)
	}

	s.EnqueueStatsRefresh(ctx, sub.StudentID)
	s.log.Info().
		Str("submission_id", submissionID.String()).
		Float64("band", band).
		Msg("Submission graded")
	return s.submissionRepo.GetByID(ctx, submissionID)
}

// Override replaces an existing band with an audited correction. Works on
// both auto- and manually-graded submissions; the original band and the
// reason are kept for the audit trail.
func (s *GradingService) Override(ctx context.Context, staffID int, submissionID uuid.UUID, band float64, reason string) (*model.Submission, error) {
	if !model.ValidBand(band) {
		return nil, ErrInvalidBand
	}

	sub, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub.Band == nil {
		return nil, ErrNotGradedYet
	}

	if err := s.submissionRepo.Override(ctx, submissionID, band, staffID, reason); err != nil {
		return nil, fmt.Errorf("store override: %w", err)
	}

	s.EnqueueStatsRefresh(ctx, sub.StudentID)
	s.log.Info().
		Str("submission_id", submissionID.String()).
		Int("staff_id", staffID).
		Float64("band", band).
		Msg("Submission band overridden")
	return s.submissionRepo.GetByID(ctx, submissionID)
}

// EnqueueStatsRefresh asks the stats worker to recompute a student's
// aggregates. Best effort.
func (s *GradingService) EnqueueStatsRefresh(ctx context.Context, studentID int) {
	data, _ := json.Marshal(statsJob{StudentID: studentID})
	if err := s.rdb.RPush(ctx, config.WorkerKey.StatsQueue, data).Err(); err != nil {
		s.log.Error().Err(err).Int("student_id", studentID).Msg("Failed to enqueue stats refresh")
	}
}
