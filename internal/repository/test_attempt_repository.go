package repository

import (
	"context"
	"errors"

	"github.com/celts/celts-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAttemptConflict is raised by the partial unique index when a second
	// "started" attempt is inserted for the same student and test.
	ErrAttemptConflict = errors.New("student already has an active attempt for this test")
	// ErrAttemptNotActive means a terminal-state transition found no row in
	// the "started" state, so another writer finished the attempt first.
	ErrAttemptNotActive = errors.New("attempt is not in the started state")
)

const attemptColumns = `id, test_id, student_id, attempt_number, status, started_at, ends_at,
	finished_at, submit_reason, retry_allowed, created_at, updated_at`

// TestAttemptRepository handles attempt data access.
type TestAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewTestAttemptRepository creates a new TestAttemptRepository.
func NewTestAttemptRepository(pool *pgxpool.Pool) *TestAttemptRepository {
	return &TestAttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.TestAttempt, error) {
	a := &model.TestAttempt{}
	err := row.Scan(&a.ID, &a.TestID, &a.StudentID, &a.AttemptNumber, &a.Status,
		&a.StartedAt, &a.EndsAt, &a.FinishedAt, &a.SubmitReason, &a.RetryAllowed,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt by its UUID.
func (r *TestAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM test_attempts WHERE id = $1`, id))
}

// GetActive retrieves the single "started" attempt of a student on a test,
// if any. The partial unique index guarantees at most one exists.
func (r *TestAttemptRepository) GetActive(ctx context.Context, studentID int, testID uuid.UUID) (*model.TestAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM test_attempts
		 WHERE student_id = $1 AND test_id = $2 AND status = $3`,
		studentID, testID, model.AttemptStarted))
}

// GetLatest retrieves the most recent attempt of a student on a test.
func (r *TestAttemptRepository) GetLatest(ctx context.Context, studentID int, testID uuid.UUID) (*model.TestAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM test_attempts
		 WHERE student_id = $1 AND test_id = $2
		 ORDER BY attempt_number DESC LIMIT 1`,
		studentID, testID))
}

// Create inserts a started attempt, assigning the next attempt_number for
// the student/test pair in the same statement.
func (r *TestAttemptRepository) Create(ctx context.Context, a *model.TestAttempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO test_attempts (test_id, student_id, attempt_number, status, started_at, ends_at)
		 SELECT $1, $2,
		        COALESCE(MAX(attempt_number), 0) + 1,
		        $3, $4, $5
		 FROM test_attempts WHERE test_id = $1 AND student_id = $2
		 RETURNING id, attempt_number, created_at, updated_at`,
		a.TestID, a.StudentID, a.Status, a.StartedAt, a.EndsAt,
	).Scan(&a.ID, &a.AttemptNumber, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAttemptConflict
		}
		return err
	}
	return nil
}

// Finish moves a started attempt into a terminal state. The WHERE clause
// guards against races: only the first caller wins, later callers get
// ErrAttemptNotActive.
func (r *TestAttemptRepository) Finish(ctx context.Context, id uuid.UUID, status model.AttemptStatus, submitReason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_attempts
		 SET status = $1, submit_reason = $2, finished_at = CURRENT_TIMESTAMP,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3 AND status = $4`,
		status, submitReason, id, model.AttemptStarted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotActive
	}
	return nil
}

// SetRetryAllowed flips the admin retry flag on an attempt.
func (r *TestAttemptRepository) SetRetryAllowed(ctx context.Context, id uuid.UUID, allowed bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE test_attempts SET retry_allowed = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		allowed, id)
	return err
}

// ListStarted returns every attempt still in the "started" state. Used by
// the timer recovery sweep after a restart.
func (r *TestAttemptRepository) ListStarted(ctx context.Context) ([]model.TestAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM test_attempts WHERE status = $1`,
		model.AttemptStarted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.TestAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListByTest returns all attempts on a test, newest first. Used by the
// faculty monitor.
func (r *TestAttemptRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.TestAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM test_attempts
		 WHERE test_id = $1 ORDER BY started_at DESC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.TestAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListByStudent returns a student's attempt history, newest first.
func (r *TestAttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.TestAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM test_attempts
		 WHERE student_id = $1 ORDER BY started_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.TestAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}
