package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StatsWorker consumes the stats queue and recomputes per-student aggregates
// from the latest graded submissions. Refreshes are idempotent, so a
// duplicated job is harmless.
type StatsWorker struct {
	statsService *service.StatsService
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewStatsWorker creates a new StatsWorker.
func NewStatsWorker(statsService *service.StatsService, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		statsService: statsService,
		rdb:          rdb,
		log:          log.With().Str("component", "stats_worker").Logger(),
	}
}

type statsPayload struct {
	StudentID int `json:"student_id"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

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

func (w *StatsWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.StatsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload statsPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.statsService.Refresh(ctx, payload.StudentID); err != nil {
		w.log.Error().Err(err).
			Int("student_id", payload.StudentID).
			Msg("Refresh error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.StatsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

// drain processes all remaining items in the queue before shutdown.
func (w *StatsWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.StatsQueue).Result()
		if err != nil {
			break
		}

		var payload statsPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.statsService.Refresh(ctx, payload.StudentID); err != nil {
			w.log.Error().Err(err).Msg("Drain refresh error")
			w.rdb.RPush(ctx, config.WorkerKey.StatsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
