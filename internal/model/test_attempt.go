package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states. Terminal states
// (everything but "started") are never mutated back.
type AttemptStatus string

const (
	AttemptStarted       AttemptStatus = "started"
	AttemptCompleted     AttemptStatus = "completed"
	AttemptAbandoned     AttemptStatus = "abandoned"
	AttemptViolationExit AttemptStatus = "violation_exit"
	AttemptTerminated    AttemptStatus = "terminated"
)

// IsTerminal reports whether the attempt has reached a final state.
func (s AttemptStatus) IsTerminal() bool {
	return s != AttemptStarted
}

// Submit reasons recorded on attempt completion.
const (
	SubmitReasonStudent     = "student_submit"
	SubmitReasonTimeExpired = "time_expired"
	SubmitReasonSecurity    = "security_termination"
	SubmitReasonAbandoned   = "abandoned"
)

// TestAttempt is one student's timed run through a test.
type TestAttempt struct {
	ID            uuid.UUID     `json:"id"`
	TestID        uuid.UUID     `json:"test_id"`
	StudentID     int           `json:"student_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	EndsAt        time.Time     `json:"ends_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	SubmitReason  *string       `json:"submit_reason,omitempty"`
	RetryAllowed  bool          `json:"retry_allowed"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// StartAttemptRequest is the payload for starting an attempt.
type StartAttemptRequest struct {
	TestID       uuid.UUID `json:"test_id" binding:"required"`
	SessionToken string    `json:"session_token" binding:"required,uuid"`
}

// FinishAttemptRequest is the payload for submit/end.
type FinishAttemptRequest struct {
	AttemptID uuid.UUID `json:"attempt_id" binding:"required"`
}

// RemainingTimeResponse reports server-side countdown state.
type RemainingTimeResponse struct {
	AttemptID        uuid.UUID  `json:"attempt_id"`
	RemainingSeconds int64      `json:"remaining_seconds"`
	EndsAt           time.Time  `json:"ends_at"`
	SectionID        *string    `json:"section_id,omitempty"`
	SectionEndsAt    *time.Time `json:"section_ends_at,omitempty"`
}
