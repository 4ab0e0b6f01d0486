package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GradingStatus enumerates the grading lifecycle of a submission.
type GradingStatus string

const (
	GradingPending    GradingStatus = "pending"
	GradingAutoGraded GradingStatus = "auto_graded"
	GradingQueued     GradingStatus = "queued"
	GradingGraded     GradingStatus = "graded"
	GradingOverridden GradingStatus = "overridden"
)

// Submission holds one student's responses for one skill of one test.
type Submission struct {
	ID        uuid.UUID       `json:"id"`
	AttemptID uuid.UUID       `json:"attempt_id"`
	TestID    uuid.UUID       `json:"test_id"`
	StudentID int             `json:"student_id"`
	Skill     SkillType       `json:"skill"`
	Response  json.RawMessage `json:"response,omitempty"`
	Marks     *float64        `json:"marks,omitempty"`
	Band      *float64        `json:"band,omitempty"`
	Status    GradingStatus   `json:"grading_status"`

	// Override audit trail. OriginalBand keeps the pre-override value.
	OriginalBand   *float64   `json:"original_band,omitempty"`
	OverriddenBy   *int       `json:"overridden_by,omitempty"`
	OverrideReason *string    `json:"override_reason,omitempty"`
	OverriddenAt   *time.Time `json:"overridden_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveResponseRequest upserts a student's response for one skill.
type SaveResponseRequest struct {
	Skill    SkillType       `json:"skill" binding:"required,oneof=listening reading writing speaking"`
	Response json.RawMessage `json:"response" binding:"required"`
}

// GradeSubmissionRequest is the payload for manually grading a
// writing/speaking submission.
type GradeSubmissionRequest struct {
	Band float64 `json:"band" binding:"min=0,max=9"`
}

// OverrideSubmissionRequest replaces a band with an audited override.
type OverrideSubmissionRequest struct {
	Band   float64 `json:"band" binding:"min=0,max=9"`
	Reason string  `json:"reason" binding:"required,min=5,max=1024"`
}
