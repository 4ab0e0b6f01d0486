package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

var ErrStaffNotFound = errors.New("staff user not found")

// StaffService handles faculty/admin account management and login.
type StaffService struct {
	staffRepo *repository.StaffRepository
	auth      *AuthService
}

// NewStaffService creates a new StaffService.
func NewStaffService(staffRepo *repository.StaffRepository, auth *AuthService) *StaffService {
	return &StaffService{staffRepo: staffRepo, auth: auth}
}

// Login authenticates a staff user by email and issues a JWT with the role
// embedded.
func (s *StaffService) Login(ctx context.Context, req *model.StaffLoginRequest) (*model.StaffLoginResponse, error) {
	user, err := s.staffRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get staff user: %w", err)
	}

	if err := s.auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.auth.GenerateStaffToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &model.StaffLoginResponse{Token: token, User: *user}, nil
}

// GetByID retrieves a staff user by ID.
func (s *StaffService) GetByID(ctx context.Context, id int) (*model.StaffUser, error) {
	user, err := s.staffRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return user, nil
}

// List retrieves all staff users.
func (s *StaffService) List(ctx context.Context) ([]model.StaffUser, error) {
	users, err := s.staffRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.StaffUser{}
	}
	return users, nil
}

// Create registers a new faculty or admin account.
func (s *StaffService) Create(ctx context.Context, req *model.CreateStaffRequest) (*model.StaffUser, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.StaffUser{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.staffRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a staff account.
func (s *StaffService) Delete(ctx context.Context, id int) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return s.staffRepo.Delete(ctx, id)
}
