package repository

import (
	"context"

	"github.com/celts/celts-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, token, student_id, fingerprint, ip_address, user_agent, status,
	test_id, attempt_id, started_at, last_activity_at, terminated_at`

// DeviceSessionRepository handles device session data access.
type DeviceSessionRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceSessionRepository creates a new DeviceSessionRepository.
func NewDeviceSessionRepository(pool *pgxpool.Pool) *DeviceSessionRepository {
	return &DeviceSessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.DeviceSession, error) {
	s := &model.DeviceSession{}
	err := row.Scan(&s.ID, &s.Token, &s.StudentID, &s.Fingerprint, &s.IPAddress,
		&s.UserAgent, &s.Status, &s.TestID, &s.AttemptID, &s.StartedAt,
		&s.LastActivityAt, &s.TerminatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByToken retrieves a session by its opaque token.
func (r *DeviceSessionRepository) GetByToken(ctx context.Context, token uuid.UUID) (*model.DeviceSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM device_sessions WHERE token = $1`, token))
}

// GetActiveByStudent retrieves the student's active session, if any.
func (r *DeviceSessionRepository) GetActiveByStudent(ctx context.Context, studentID int) (*model.DeviceSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM device_sessions
		 WHERE student_id = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`,
		studentID, model.DeviceSessionActive))
}

// Create inserts a new session.
func (r *DeviceSessionRepository) Create(ctx context.Context, s *model.DeviceSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO device_sessions (token, student_id, fingerprint, ip_address, user_agent, status, test_id, started_at, last_activity_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING id`,
		s.Token, s.StudentID, s.Fingerprint, s.IPAddress, s.UserAgent, s.Status, s.TestID, s.StartedAt,
	).Scan(&s.ID)
}

// TerminateAllActive marks every active session of a student as terminated.
// Called before issuing a new token so only one device stays bound.
func (r *DeviceSessionRepository) TerminateAllActive(ctx context.Context, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE device_sessions
		 SET status = $1, terminated_at = CURRENT_TIMESTAMP
		 WHERE student_id = $2 AND status = $3`,
		model.DeviceSessionTerminated, studentID, model.DeviceSessionActive)
	return err
}

// Touch refreshes the last-activity timestamp of a session.
func (r *DeviceSessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE device_sessions SET last_activity_at = CURRENT_TIMESTAMP WHERE id = $1`, id)
	return err
}

// BindAttempt records the attempt a session is driving.
func (r *DeviceSessionRepository) BindAttempt(ctx context.Context, id, attemptID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE device_sessions SET attempt_id = $1, last_activity_at = CURRENT_TIMESTAMP WHERE id = $2`,
		attemptID, id)
	return err
}

// UpdateStatus transitions a session to terminated or expired.
func (r *DeviceSessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DeviceSessionStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE device_sessions
		 SET status = $1, terminated_at = CURRENT_TIMESTAMP
		 WHERE id = $2`,
		status, id)
	return err
}
