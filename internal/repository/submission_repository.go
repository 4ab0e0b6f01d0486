package repository

import (
	"context"
	"encoding/json"

	"github.com/celts/celts-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const submissionColumns = `id, attempt_id, test_id, student_id, skill, response, marks, band,
	grading_status, original_band, overridden_by, override_reason, overridden_at,
	created_at, updated_at`

// SubmissionRepository handles per-skill response and grade data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	s := &model.Submission{}
	err := row.Scan(&s.ID, &s.AttemptID, &s.TestID, &s.StudentID, &s.Skill, &s.Response,
		&s.Marks, &s.Band, &s.Status, &s.OriginalBand, &s.OverriddenBy, &s.OverrideReason,
		&s.OverriddenAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a submission by its UUID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
}

// GetByAttemptAndSkill retrieves the single submission for one skill of an
// attempt.
func (r *SubmissionRepository) GetByAttemptAndSkill(ctx context.Context, attemptID uuid.UUID, skill model.SkillType) (*model.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE attempt_id = $1 AND skill = $2`, attemptID, skill))
}

// ListByAttempt returns all submissions of an attempt.
func (r *SubmissionRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE attempt_id = $1 ORDER BY skill`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// ListPendingGrading returns queued writing/speaking submissions awaiting a
// manual grade, oldest first.
func (r *SubmissionRepository) ListPendingGrading(ctx context.Context, limit, offset int) ([]model.Submission, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE grading_status = $1`,
		model.GradingQueued).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE grading_status = $1
		 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		model.GradingQueued, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, *s)
	}
	return subs, total, rows.Err()
}

// UpsertResponse saves or replaces the student's response for one skill of
// an attempt. Only pending submissions accept new responses; graded or
// queued rows are left untouched.
func (r *SubmissionRepository) UpsertResponse(ctx context.Context, attemptID, testID uuid.UUID, studentID int, skill model.SkillType, response json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO submissions (attempt_id, test_id, student_id, skill, response, grading_status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (attempt_id, skill) DO UPDATE
		 SET response = EXCLUDED.response, updated_at = CURRENT_TIMESTAMP
		 WHERE submissions.grading_status = $6`,
		attemptID, testID, studentID, skill, response, model.GradingPending)
	return err
}

// SetAutoGrade records an objective-skill grade computed from the answer key.
func (r *SubmissionRepository) SetAutoGrade(ctx context.Context, id uuid.UUID, marks, band float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET marks = $1, band = $2, grading_status = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4`,
		marks, band, model.GradingAutoGraded, id)
	return err
}

// MarkQueued moves a subjective submission into the manual grading queue.
func (r *SubmissionRepository) MarkQueued(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET grading_status = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2 AND grading_status = $3`,
		model.GradingQueued, id, model.GradingPending)
	return err
}

// SetManualGrade records a faculty-assigned band on a queued submission.
func (r *SubmissionRepository) SetManualGrade(ctx context.Context, id uuid.UUID, band float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET band = $1, grading_status = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3`,
		band, model.GradingGraded, id)
	return err
}

// Override replaces a band with an audited override, preserving the first
// original band across repeated overrides.
func (r *SubmissionRepository) Override(ctx context.Context, id uuid.UUID, band float64, staffID int, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET original_band = COALESCE(original_band, band),
		     band = $1,
		     grading_status = $2,
		     overridden_by = $3,
		     override_reason = $4,
		     overridden_at = CURRENT_TIMESTAMP,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5`,
		band, model.GradingOverridden, staffID, reason, id)
	return err
}
