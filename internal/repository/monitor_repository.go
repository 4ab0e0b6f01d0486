package repository

import (
	"context"

	"github.com/celts/celts-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MonitorRepository serves the faculty live-monitor counters.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// CountActiveAttempts returns the number of in-progress attempts on a test.
func (r *MonitorRepository) CountActiveAttempts(ctx context.Context, testID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM test_attempts WHERE test_id = $1 AND status = $2`,
		testID, model.AttemptStarted).Scan(&n)
	return n, err
}

// CountFinishedAttempts returns the number of attempts in any terminal state.
func (r *MonitorRepository) CountFinishedAttempts(ctx context.Context, testID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM test_attempts WHERE test_id = $1 AND status <> $2`,
		testID, model.AttemptStarted).Scan(&n)
	return n, err
}

// CountTerminated returns the number of attempts cut off by the proctoring
// threshold rule.
func (r *MonitorRepository) CountTerminated(ctx context.Context, testID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM test_attempts WHERE test_id = $1 AND status = $2`,
		testID, model.AttemptTerminated).Scan(&n)
	return n, err
}

// CountViolations returns the total violation events logged across all
// attempts of a test.
func (r *MonitorRepository) CountViolations(ctx context.Context, testID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM violation_events v
		 JOIN test_attempts a ON a.id = v.attempt_id
		 WHERE a.test_id = $1`, testID).Scan(&n)
	return n, err
}

// ListFlagged returns security rows of a test whose attempts drew violations,
// worst score first.
func (r *MonitorRepository) ListFlagged(ctx context.Context, testID uuid.UUID) ([]model.ExamSecurity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+securityColumns+` FROM exam_security
		 WHERE test_id = $1 AND status <> 'secure'
		 ORDER BY security_score ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ExamSecurity
	for rows.Next() {
		s, err := scanSecurity(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *s)
	}
	return records, rows.Err()
}
