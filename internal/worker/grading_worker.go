package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/service"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// GradingWorker consumes the grade queue and scores finished attempts.
// Objective skills resolve entirely in RAM against the cached answer key;
// subjective submissions are flagged for the faculty queue.
type GradingWorker struct {
	gradingService *service.GradingService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewGradingWorker creates a new GradingWorker.
func NewGradingWorker(gradingService *service.GradingService, rdb *redis.Client, log zerolog.Logger) *GradingWorker {
	return &GradingWorker{
		gradingService: gradingService,
		rdb:            rdb,
		log:            log.With().Str("component", "grading_worker").Logger(),
	}
}

type gradePayload struct {
	AttemptID string `json:"attempt_id"`
	TestID    string `json:"test_id"`
	StudentID int    `json:"student_id"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *GradingWorker) Start(ctx context.Context) {
	w.log.Info().Msg("GradingWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *GradingWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.GradeQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload gradePayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.grade(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", payload.AttemptID).
			Int("student_id", payload.StudentID).
			Msg("Grading error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.GradeQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *GradingWorker) grade(ctx context.Context, p *gradePayload) error {
	attemptID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return err
	}

	testID, err := uuid.Parse(p.TestID)
	if err != nil {
		return err
	}

	return w.gradingService.GradeAttempt(ctx, attemptID, testID, p.StudentID)
}

// drain processes all remaining items in the queue before shutdown.
func (w *GradingWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.GradeQueue).Result()
		if err != nil {
			break
		}

		var payload gradePayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.grade(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain grading error")
			w.rdb.RPush(ctx, config.WorkerKey.GradeQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
