package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/celts/celts-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrNotTestAuthor    = errors.New("not the author of this test")
	ErrNoQuestions      = errors.New("test has no questions, cannot publish")
	ErrTestNotDraft     = errors.New("test status is not DRAFT")
	ErrTestNotPublished = errors.New("test status is not PUBLISHED")
)

// TestService handles test authoring, publishing, and Redis cache warming.
type TestService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "test_service").Logger(),
	}
}

// GetByID retrieves a test by its UUID.
func (s *TestService) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetByID(ctx, id)
}

// ListByAuthor retrieves tests, filtered by author unless authorID is 0 (admin).
func (s *TestService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Test, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	tests, total, err := s.testRepo.ListByAuthorPaginated(ctx, authorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if tests == nil {
		tests = []model.Test{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return tests, pagination, nil
}

// ListPublished retrieves every published test, for the student test list.
func (s *TestService) ListPublished(ctx context.Context) ([]model.Test, error) {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if tests == nil {
		tests = []model.Test{}
	}
	return tests, nil
}

// Create inserts a new test as DRAFT.
func (s *TestService) Create(ctx context.Context, test *model.Test) error {
	test.Status = model.TestStatusDraft
	return s.testRepo.Create(ctx, test)
}

// Update modifies an existing draft test.
func (s *TestService) Update(ctx context.Context, authorID int, test *model.Test) error {
	existing, err := s.testRepo.GetByID(ctx, test.ID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Update(ctx, test)
}

// Delete removes a draft test.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Delete(ctx, id)
}

// Publish changes test status to PUBLISHED and caches the paper + answer key
// in Redis. This is the critical path that populates the fast lane students
// read from.
func (s *TestService) Publish(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	if authorID != 0 && test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}

	if err := s.WarmTestCache(ctx, test); err != nil {
		return err
	}

	if err := s.testRepo.UpdateStatus(ctx, testID, model.TestStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Test published")
	return nil
}

// Archive retires a published test so no new attempts can start against it.
func (s *TestService) Archive(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}
	if authorID != 0 && test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}

	if err := s.testRepo.UpdateStatus(ctx, testID, model.TestStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	// Drop the fast-lane entries so stale papers can't be served.
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.TestPaperKey(testID))
	pipe.Del(ctx, config.CacheKey.TestAnswerKey(testID))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to evict archived test cache")
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Test archived")
	return nil
}

// RefreshCache re-caches the paper + answer key for a published test.
// Called when questions are updated after publish.
func (s *TestService) RefreshCache(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	if authorID != 0 && test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}

	if err := s.WarmTestCache(ctx, test); err != nil {
		return err
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Cache refreshed")
	return nil
}

// WarmTestCache loads a test's paper and answer key from PostgreSQL into Redis.
// Core cache-warming logic shared by Publish, RefreshCache, and PrewarmAllCaches.
func (s *TestService) WarmTestCache(ctx context.Context, test *model.Test) error {
	questions, err := s.questionRepo.ListByTest(ctx, test.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Build student-facing paper (without correct answers).
	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		studentQuestions[i] = model.QuestionForStudent{
			ID:           q.ID,
			SectionID:    q.SectionID,
			Skill:        q.Skill,
			QuestionType: q.QuestionType,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			MediaURL:     q.MediaURL,
			OrderNum:     q.OrderNum,
		}
	}

	paper := model.TestPaper{
		TestID:    test.ID,
		Title:     test.Title,
		Duration:  test.DurationMinutes,
		Sections:  test.Sections,
		Questions: studentQuestions,
	}

	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	// Build answer key map for RAM grading, each entry carrying the
	// question's skill so grading scores skills independently. Subjective
	// items have no key.
	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		if q.CorrectAnswer != "" {
			answerKey[q.ID.String()] = model.EncodeAnswerEntry(q.Skill, q.CorrectAnswer)
		}
	}

	// Cache both atomically via pipeline.
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestPaperKey(test.ID), paperJSON, 0)
	pipe.Del(ctx, config.CacheKey.TestAnswerKey(test.ID))
	if len(answerKey) > 0 {
		pipe.HSet(ctx, config.CacheKey.TestAnswerKey(test.ID), answerKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("test_id", test.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published tests into Redis on application startup.
// This prevents any lazy-loading race conditions under thundering herd traffic.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published tests: %w", err)
	}

	if len(tests) == 0 {
		s.log.Info().Msg("No published tests to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(tests)).Msg("Prewarming published tests...")

	warmed := 0
	for i := range tests {
		if err := s.WarmTestCache(ctx, &tests[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("test_id", tests[i].ID.String()).
				Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(tests)).
		Msg("Prewarming complete")
	return nil
}

// GetPaper retrieves the cached student paper from Redis, falling back to
// the DB (and self-healing the cache) on a miss.
func (s *TestService) GetPaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TestPaperKey(testID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("get paper: %w", err)
		}

		// Cache miss. Rebuild from the DB if the test is really published.
		test, dbErr := s.testRepo.GetByID(ctx, testID)
		if dbErr != nil {
			return nil, fmt.Errorf("test not found: %w", dbErr)
		}
		if test.Status != model.TestStatusPublished {
			return nil, ErrTestNotPublished
		}
		if warmErr := s.WarmTestCache(ctx, test); warmErr != nil {
			return nil, fmt.Errorf("rebuild paper cache: %w", warmErr)
		}
		data, err = s.rdb.Get(ctx, config.CacheKey.TestPaperKey(testID)).Bytes()
		if err != nil {
			return nil, fmt.Errorf("get paper after rebuild: %w", err)
		}
	}

	var paper model.TestPaper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("unmarshal paper: %w", err)
	}
	return &paper, nil
}

// GetAnswerKey retrieves the answer key from Redis for instant grading,
// decoded into per-question skill and answer.
func (s *TestService) GetAnswerKey(ctx context.Context, testID uuid.UUID) (map[string]model.AnswerEntry, error) {
	result, err := s.rdb.HGetAll(ctx, config.CacheKey.TestAnswerKey(testID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}

	key := make(map[string]model.AnswerEntry, len(result))
	for questionID, raw := range result {
		entry, ok := model.DecodeAnswerEntry(raw)
		if !ok {
			s.log.Warn().Str("question_id", questionID).Msg("Malformed answer key entry, skipping")
			continue
		}
		key[questionID] = entry
	}
	if len(key) == 0 {
		return nil, errors.New("answer key not found in cache")
	}
	return key, nil
}

// AddQuestion appends a question to a draft test.
func (s *TestService) AddQuestion(ctx context.Context, authorID int, q *model.Question) error {
	test, err := s.testRepo.GetByID(ctx, q.TestID)
	if err != nil {
		return err
	}
	if authorID != 0 && test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.questionRepo.Create(ctx, q)
}

// ListQuestions retrieves a test's questions for its author.
func (s *TestService) ListQuestions(ctx context.Context, testID uuid.UUID, authorID int) ([]model.Question, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if authorID != 0 && test.AuthorID != authorID {
		return nil, ErrNotTestAuthor
	}
	return s.questionRepo.ListByTest(ctx, testID)
}
