package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceSessionStatus enumerates device session states.
type DeviceSessionStatus string

const (
	DeviceSessionActive     DeviceSessionStatus = "active"
	DeviceSessionTerminated DeviceSessionStatus = "terminated"
	DeviceSessionExpired    DeviceSessionStatus = "expired"
)

// DeviceSession binds a student's login to a single device. The token is a
// random UUID issued on session/start; issuing a new one terminates all
// prior active sessions for that student.
type DeviceSession struct {
	ID             uuid.UUID           `json:"id"`
	Token          uuid.UUID           `json:"token"`
	StudentID      int                 `json:"student_id"`
	Fingerprint    string              `json:"fingerprint"`
	IPAddress      string              `json:"ip_address"`
	UserAgent      string              `json:"user_agent"`
	Status         DeviceSessionStatus `json:"status"`
	TestID         *uuid.UUID          `json:"test_id,omitempty"`
	AttemptID      *uuid.UUID          `json:"attempt_id,omitempty"`
	StartedAt      time.Time           `json:"started_at"`
	LastActivityAt time.Time           `json:"last_activity_at"`
	TerminatedAt   *time.Time          `json:"terminated_at,omitempty"`
}

// StartSessionRequest is the payload for issuing a device session token.
type StartSessionRequest struct {
	Fingerprint string     `json:"fingerprint" binding:"required,min=8,max=512"`
	TestID      *uuid.UUID `json:"test_id" binding:"omitempty"`
}

// ValidateSessionRequest is the payload for session validation and recovery.
type ValidateSessionRequest struct {
	Token  string     `json:"token" binding:"required,uuid"`
	TestID *uuid.UUID `json:"test_id" binding:"omitempty"`
}

// HeartbeatRequest refreshes session activity.
type HeartbeatRequest struct {
	Token string `json:"token" binding:"required,uuid"`
}
