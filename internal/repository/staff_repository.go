package repository

import (
	"context"
	"errors"

	"github.com/celts/celts-backend/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateEmail = errors.New("staff user with this email already exists")

// StaffRepository handles faculty/admin account data access.
type StaffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository creates a new StaffRepository.
func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// GetByID retrieves a staff user by ID.
func (r *StaffRepository) GetByID(ctx context.Context, id int) (*model.StaffUser, error) {
	u := &model.StaffUser{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM staff_users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail retrieves a staff user by email.
func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*model.StaffUser, error) {
	u := &model.StaffUser{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM staff_users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// List retrieves all staff users ordered by name.
func (r *StaffRepository) List(ctx context.Context) ([]model.StaffUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM staff_users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.StaffUser
	for rows.Next() {
		var u model.StaffUser
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts a new staff user.
func (r *StaffRepository) Create(ctx context.Context, u *model.StaffUser) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO staff_users (email, name, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// Delete removes a staff user by ID.
func (r *StaffRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM staff_users WHERE id = $1`, id)
	return err
}
