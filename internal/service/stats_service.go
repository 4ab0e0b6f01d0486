package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// StatsService maintains each student's rolling per-skill and overall bands.
type StatsService struct {
	statsRepo *repository.StudentStatsRepository
	log       zerolog.Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(statsRepo *repository.StudentStatsRepository, log zerolog.Logger) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		log:       log.With().Str("component", "stats_service").Logger(),
	}
}

// GetForStudent returns a student's stats. A student with no graded work
// yet gets a zero-value row (all bands nil) rather than an error.
func (s *StatsService) GetForStudent(ctx context.Context, studentID int) (*model.StudentStats, error) {
	stats, err := s.statsRepo.GetByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.StudentStats{StudentID: studentID}, nil
		}
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// Refresh recomputes a student's bands from their latest graded submissions
// and writes the snapshot back. Called by the stats worker.
func (s *StatsService) Refresh(ctx context.Context, studentID int) error {
	bands, testsTaken, err := s.statsRepo.LatestBands(ctx, studentID)
	if err != nil {
		return fmt.Errorf("latest bands: %w", err)
	}

	stats := &model.StudentStats{
		StudentID:     studentID,
		ListeningBand: bands[model.SkillListening],
		ReadingBand:   bands[model.SkillReading],
		WritingBand:   bands[model.SkillWriting],
		SpeakingBand:  bands[model.SkillSpeaking],
		TestsTaken:    testsTaken,
	}
	stats.Recompute()

	if err := s.statsRepo.Upsert(ctx, stats); err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}

	s.log.Debug().Int("student_id", studentID).Msg("Stats refreshed")
	return nil
}
