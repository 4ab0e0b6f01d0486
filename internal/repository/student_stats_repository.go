package repository

import (
	"context"

	"github.com/celts/celts-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentStatsRepository handles rolling band-score aggregates.
type StudentStatsRepository struct {
	pool *pgxpool.Pool
}

// NewStudentStatsRepository creates a new StudentStatsRepository.
func NewStudentStatsRepository(pool *pgxpool.Pool) *StudentStatsRepository {
	return &StudentStatsRepository{pool: pool}
}

// GetByStudent retrieves a student's stats row.
func (r *StudentStatsRepository) GetByStudent(ctx context.Context, studentID int) (*model.StudentStats, error) {
	s := &model.StudentStats{}
	err := r.pool.QueryRow(ctx,
		`SELECT student_id, listening_band, reading_band, writing_band, speaking_band,
		        overall_band, tests_taken, updated_at
		 FROM student_stats WHERE student_id = $1`, studentID,
	).Scan(&s.StudentID, &s.ListeningBand, &s.ReadingBand, &s.WritingBand, &s.SpeakingBand,
		&s.OverallBand, &s.TestsTaken, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Upsert writes the full stats row, replacing any previous snapshot.
func (r *StudentStatsRepository) Upsert(ctx context.Context, s *model.StudentStats) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO student_stats (student_id, listening_band, reading_band, writing_band, speaking_band, overall_band, tests_taken, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		 ON CONFLICT (student_id) DO UPDATE
		 SET listening_band = EXCLUDED.listening_band,
		     reading_band = EXCLUDED.reading_band,
		     writing_band = EXCLUDED.writing_band,
		     speaking_band = EXCLUDED.speaking_band,
		     overall_band = EXCLUDED.overall_band,
		     tests_taken = EXCLUDED.tests_taken,
		     updated_at = CURRENT_TIMESTAMP`,
		s.StudentID, s.ListeningBand, s.ReadingBand, s.WritingBand, s.SpeakingBand,
		s.OverallBand, s.TestsTaken)
	return err
}

// LatestBands recomputes a student's per-skill bands from their most recent
// graded submission of each skill.
func (r *StudentStatsRepository) LatestBands(ctx context.Context, studentID int) (map[model.SkillType]*float64, int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (skill) skill, band
		 FROM submissions
		 WHERE student_id = $1 AND band IS NOT NULL
		 ORDER BY skill, updated_at DESC`, studentID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bands := make(map[model.SkillType]*float64)
	for rows.Next() {
		var skill model.SkillType
		var band *float64
		if err := rows.Scan(&skill, &band); err != nil {
			return nil, 0, err
		}
		bands[skill] = band
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var testsTaken int
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM test_attempts WHERE student_id = $1 AND status = 'completed'`,
		studentID).Scan(&testsTaken)
	if err != nil {
		return nil, 0, err
	}
	return bands, testsTaken, nil
}
