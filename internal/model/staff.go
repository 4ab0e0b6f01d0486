package model

import "time"

// StaffRole distinguishes faculty from administrators.
type StaffRole string

const (
	RoleFaculty StaffRole = "faculty"
	RoleAdmin   StaffRole = "admin"
)

// StaffUser represents a faculty or admin account.
type StaffUser struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         StaffRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StaffLoginRequest is the payload for faculty/admin authentication.
type StaffLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// StaffLoginResponse is returned after successful staff login.
type StaffLoginResponse struct {
	Token string    `json:"token"`
	User  StaffUser `json:"user"`
}

// CreateStaffRequest is the payload for creating a faculty/admin account.
type CreateStaffRequest struct {
	Email    string    `json:"email" binding:"required,email,max=255"`
	Name     string    `json:"name" binding:"required,min=2,max=100"`
	Password string    `json:"password" binding:"required,min=6,max=128"`
	Role     StaffRole `json:"role" binding:"required,oneof=faculty admin"`
}
