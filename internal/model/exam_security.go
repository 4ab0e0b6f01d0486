package model

import (
	"time"

	"github.com/google/uuid"
)

// SecurityStatus enumerates the proctoring health of an attempt.
type SecurityStatus string

const (
	SecuritySecure     SecurityStatus = "secure"
	SecurityViolated   SecurityStatus = "violated"
	SecurityTerminated SecurityStatus = "terminated"
	SecurityCompleted  SecurityStatus = "completed"
)

// Termination thresholds. An attempt is terminated iff one of these is
// crossed; there is no other path to SecurityTerminated.
const (
	InitialSecurityScore  = 100
	ScoreTerminationFloor = 30
	CriticalTerminationAt = 2
	HighTerminationAt     = 3
)

// PostExamSecurity is the one-way lockdown sub-record set on submission.
type PostExamSecurity struct {
	SubmissionLocked bool       `json:"submission_locked"`
	ReattemptBlocked bool       `json:"reattempt_blocked"`
	DataWiped        bool       `json:"data_wiped"`
	LockedAt         *time.Time `json:"locked_at,omitempty"`
}

// ExamSecurity aggregates proctoring state for a single attempt.
type ExamSecurity struct {
	ID            uuid.UUID        `json:"id"`
	AttemptID     uuid.UUID        `json:"attempt_id"`
	StudentID     int              `json:"student_id"`
	TestID        uuid.UUID        `json:"test_id"`
	SecurityScore int              `json:"security_score"`
	CriticalCount int              `json:"critical_count"`
	HighCount     int              `json:"high_count"`
	MediumCount   int              `json:"medium_count"`
	LowCount      int              `json:"low_count"`
	Status        SecurityStatus   `json:"security_status"`
	PostExam      PostExamSecurity `json:"post_exam_security"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ApplyViolation folds one classified violation into the counters and score.
// The score never drops below zero.
func (s *ExamSecurity) ApplyViolation(rule ViolationRule) {
	switch rule.Severity {
	case SeverityCritical:
		s.CriticalCount++
	case SeverityHigh:
		s.HighCount++
	case SeverityMedium:
		s.MediumCount++
	case SeverityLow:
		s.LowCount++
	}

	s.SecurityScore -= rule.Deduction
	if s.SecurityScore < 0 {
		s.SecurityScore = 0
	}

	if s.Status == SecuritySecure {
		s.Status = SecurityViolated
	}
}

// ShouldTerminate applies the threshold rule:
// critical >= 2, or score < 30, or high >= 3; never otherwise.
func (s *ExamSecurity) ShouldTerminate() bool {
	return s.CriticalCount >= CriticalTerminationAt ||
		s.SecurityScore < ScoreTerminationFloor ||
		s.HighCount >= HighTerminationAt
}

// Budget reports how much violation headroom remains before termination.
func (s *ExamSecurity) Budget() RemainingBudget {
	b := RemainingBudget{
		Critical: CriticalTerminationAt - s.CriticalCount,
		High:     HighTerminationAt - s.HighCount,
		Score:    s.SecurityScore - ScoreTerminationFloor,
	}
	if b.Critical < 0 {
		b.Critical = 0
	}
	if b.High < 0 {
		b.High = 0
	}
	if b.Score < 0 {
		b.Score = 0
	}
	return b
}

// Locked reports whether score-affecting writes are barred for the attempt.
func (s *ExamSecurity) Locked() bool {
	return s.PostExam.SubmissionLocked
}
