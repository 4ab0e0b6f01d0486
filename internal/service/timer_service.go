package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ExpiryFunc is invoked exactly once per registered attempt when its
// deadline passes.
type ExpiryFunc func(attemptID uuid.UUID)

// TimerService owns server-side attempt countdowns. Deadlines are persisted
// in Redis (with the DB row as source of truth), so in-memory timers are a
// latency optimization, not the authority: after a restart, Recover rebuilds
// them from the attempts still marked as started.
type TimerService struct {
	attemptRepo *repository.TestAttemptRepository
	rdb         *redis.Client
	log         zerolog.Logger

	mu       sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	onExpire ExpiryFunc
}

// NewTimerService creates a new TimerService.
func NewTimerService(attemptRepo *repository.TestAttemptRepository, rdb *redis.Client, log zerolog.Logger) *TimerService {
	return &TimerService{
		attemptRepo: attemptRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "timer_service").Logger(),
		timers:      make(map[uuid.UUID]*time.Timer),
	}
}

// OnExpire registers the callback fired when an attempt's time runs out.
// Must be called before Register/Recover.
func (s *TimerService) OnExpire(fn ExpiryFunc) {
	s.onExpire = fn
}

// Register persists the attempt deadline and arms an in-memory timer for it.
// Re-registering an attempt replaces its previous timer.
func (s *TimerService) Register(ctx context.Context, attemptID uuid.UUID, endsAt time.Time) error {
	key := config.CacheKey.AttemptDeadlineKey(attemptID)
	ttl := time.Until(endsAt) + time.Hour // keep the key around past expiry for late reads
	if err := s.rdb.Set(ctx, key, endsAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("cache deadline: %w", err)
	}

	s.arm(attemptID, endsAt)
	return nil
}

func (s *TimerService) arm(attemptID uuid.UUID, endsAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[attemptID]; ok {
		old.Stop()
	}

	d := time.Until(endsAt)
	if d < 0 {
		d = 0
	}
	s.timers[attemptID] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, attemptID)
		s.mu.Unlock()

		if s.onExpire != nil {
			s.onExpire(attemptID)
		}
	})
}

// Clear cancels the in-memory timer and drops the cached deadline. Called
// when an attempt reaches a terminal state before its time runs out.
func (s *TimerService) Clear(ctx context.Context, attemptID uuid.UUID) {
	s.mu.Lock()
	if t, ok := s.timers[attemptID]; ok {
		t.Stop()
		delete(s.timers, attemptID)
	}
	s.mu.Unlock()

	if err := s.rdb.Del(ctx, config.CacheKey.AttemptDeadlineKey(attemptID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to drop cached deadline")
	}
}

// Remaining returns the seconds left on an attempt, never negative. The
// cached deadline is preferred; on a cache miss the DB row is consulted and
// the cache self-healed.
func (s *TimerService) Remaining(ctx context.Context, attemptID uuid.UUID) (int64, time.Time, error) {
	key := config.CacheKey.AttemptDeadlineKey(attemptID)

	var endsAt time.Time
	val, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		unix, parseErr := strconv.ParseInt(val, 10, 64)
		if parseErr != nil {
			return 0, time.Time{}, fmt.Errorf("invalid deadline format in cache: %w", parseErr)
		}
		endsAt = time.Unix(unix, 0)

	case errors.Is(err, redis.Nil):
		attempt, dbErr := s.attemptRepo.GetByID(ctx, attemptID)
		if dbErr != nil {
			return 0, time.Time{}, fmt.Errorf("deadline not found in cache or db: %w", dbErr)
		}
		endsAt = attempt.EndsAt

		// Self-heal so the next read is fast.
		_ = s.rdb.Set(ctx, key, endsAt.Unix(), time.Until(endsAt)+time.Hour)

	default:
		return 0, time.Time{}, fmt.Errorf("redis error getting deadline: %w", err)
	}

	remaining := int64(time.Until(endsAt).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, endsAt, nil
}

// splitRecovered partitions started attempts into those still running and
// those whose deadline passed while the server was down.
func splitRecovered(attempts []model.TestAttempt, now time.Time) (live, expired []model.TestAttempt) {
	for _, a := range attempts {
		if a.EndsAt.Before(now) {
			expired = append(expired, a)
			continue
		}
		live = append(live, a)
	}
	return live, expired
}

// Recover rebuilds timers for every attempt still marked started, firing the
// expiry handler immediately for attempts whose deadline passed while the
// server was down. Called once at startup.
func (s *TimerService) Recover(ctx context.Context) error {
	attempts, err := s.attemptRepo.ListStarted(ctx)
	if err != nil {
		return fmt.Errorf("list started attempts: %w", err)
	}

	live, expired := splitRecovered(attempts, time.Now())
	for _, a := range expired {
		if s.onExpire != nil {
			s.onExpire(a.ID)
		}
	}

	recovered := 0
	for _, a := range live {
		if err := s.Register(ctx, a.ID, a.EndsAt); err != nil {
			s.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to re-register timer")
			continue
		}
		recovered++
	}

	s.log.Info().
		Int("recovered", recovered).
		Int("expired_while_down", len(expired)).
		Msg("Timer recovery sweep complete")
	return nil
}
