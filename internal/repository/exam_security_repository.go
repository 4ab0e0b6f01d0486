package repository

import (
	"context"

	"github.com/celts/celts-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const securityColumns = `id, attempt_id, student_id, test_id, security_score,
	critical_count, high_count, medium_count, low_count, status,
	submission_locked, reattempt_blocked, data_wiped, locked_at,
	created_at, updated_at`

// ExamSecurityRepository handles per-attempt proctoring state.
type ExamSecurityRepository struct {
	pool *pgxpool.Pool
}

// NewExamSecurityRepository creates a new ExamSecurityRepository.
func NewExamSecurityRepository(pool *pgxpool.Pool) *ExamSecurityRepository {
	return &ExamSecurityRepository{pool: pool}
}

func scanSecurity(row pgx.Row) (*model.ExamSecurity, error) {
	s := &model.ExamSecurity{}
	err := row.Scan(&s.ID, &s.AttemptID, &s.StudentID, &s.TestID, &s.SecurityScore,
		&s.CriticalCount, &s.HighCount, &s.MediumCount, &s.LowCount, &s.Status,
		&s.PostExam.SubmissionLocked, &s.PostExam.ReattemptBlocked, &s.PostExam.DataWiped,
		&s.PostExam.LockedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByAttempt retrieves the security record of an attempt.
func (r *ExamSecurityRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.ExamSecurity, error) {
	return scanSecurity(r.pool.QueryRow(ctx,
		`SELECT `+securityColumns+` FROM exam_security WHERE attempt_id = $1`, attemptID))
}

// Create inserts a fresh security record for a new attempt.
func (r *ExamSecurityRepository) Create(ctx context.Context, s *model.ExamSecurity) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_security (attempt_id, student_id, test_id, security_score, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		s.AttemptID, s.StudentID, s.TestID, s.SecurityScore, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// ApplyViolation folds one violation into the row atomically and returns the
// updated record. The CASE keeps the score floored at zero; the status flips
// from secure to violated on the first hit and is otherwise left alone.
func (r *ExamSecurityRepository) ApplyViolation(ctx context.Context, attemptID uuid.UUID, severity model.ViolationSeverity, deduction int) (*model.ExamSecurity, error) {
	return scanSecurity(r.pool.QueryRow(ctx,
		`UPDATE exam_security
		 SET security_score = GREATEST(security_score - $1, 0),
		     critical_count = critical_count + CASE WHEN $2 = 'critical' THEN 1 ELSE 0 END,
		     high_count     = high_count     + CASE WHEN $2 = 'high'     THEN 1 ELSE 0 END,
		     medium_count   = medium_count   + CASE WHEN $2 = 'medium'   THEN 1 ELSE 0 END,
		     low_count      = low_count      + CASE WHEN $2 = 'low'      THEN 1 ELSE 0 END,
		     status = CASE WHEN status = 'secure' THEN 'violated' ELSE status END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE attempt_id = $3
		 RETURNING `+securityColumns,
		deduction, string(severity), attemptID))
}

// MarkTerminated flips the security status to terminated.
func (r *ExamSecurityRepository) MarkTerminated(ctx context.Context, attemptID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_security
		 SET status = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE attempt_id = $2`,
		model.SecurityTerminated, attemptID)
	return err
}

// Lock applies the one-way post-exam lockdown. Terminated attempts keep
// their terminated status; everything else becomes completed.
func (r *ExamSecurityRepository) Lock(ctx context.Context, attemptID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_security
		 SET submission_locked = TRUE,
		     reattempt_blocked = TRUE,
		     data_wiped = TRUE,
		     locked_at = COALESCE(locked_at, CURRENT_TIMESTAMP),
		     status = CASE WHEN status = 'terminated' THEN status ELSE 'completed' END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE attempt_id = $1`,
		attemptID)
	return err
}
