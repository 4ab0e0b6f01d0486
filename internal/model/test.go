package model

import (
	"time"

	"github.com/google/uuid"
)

// SkillType enumerates the four graded skills.
type SkillType string

const (
	SkillListening SkillType = "listening"
	SkillReading   SkillType = "reading"
	SkillWriting   SkillType = "writing"
	SkillSpeaking  SkillType = "speaking"
)

// IsObjective reports whether a skill is auto-graded against an answer key.
// Writing and speaking go through the manual/async grading queue.
func (s SkillType) IsObjective() bool {
	return s == SkillListening || s == SkillReading
}

// ValidSkill reports whether s is one of the four known skills.
func ValidSkill(s SkillType) bool {
	switch s {
	case SkillListening, SkillReading, SkillWriting, SkillSpeaking:
		return true
	}
	return false
}

// TestStatus enumerates the authoring lifecycle of a test.
type TestStatus string

const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusPublished TestStatus = "PUBLISHED"
	TestStatusArchived  TestStatus = "ARCHIVED"
)

// TestSection is one timed block of a test, bound to a single skill.
type TestSection struct {
	ID              string    `json:"id"`
	Skill           SkillType `json:"skill"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Test represents an authored exam.
type Test struct {
	ID              uuid.UUID     `json:"id"`
	Title           string        `json:"title"`
	AuthorID        int           `json:"author_id"`
	DurationMinutes int           `json:"duration_minutes"`
	Sections        []TestSection `json:"sections"`
	ScheduledStart  *time.Time    `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time    `json:"scheduled_end,omitempty"`
	Status          TestStatus    `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Title           string        `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes int           `json:"duration_minutes" binding:"required,min=1,max=480"`
	Sections        []TestSection `json:"sections" binding:"required,min=1,dive"`
	ScheduledStart  *time.Time    `json:"scheduled_start" binding:"omitempty"`
	ScheduledEnd    *time.Time    `json:"scheduled_end" binding:"omitempty,gtfield=ScheduledStart"`
}

// UpdateTestRequest is the payload for updating a draft test.
type UpdateTestRequest struct {
	Title           string        `json:"title" binding:"omitempty,min=3,max=255"`
	DurationMinutes int           `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Sections        []TestSection `json:"sections" binding:"omitempty,min=1,dive"`
	ScheduledStart  *time.Time    `json:"scheduled_start" binding:"omitempty"`
	ScheduledEnd    *time.Time    `json:"scheduled_end" binding:"omitempty,gtfield=ScheduledStart"`
}

// TestPaper is the Redis-cached payload sent to students (no correct answers).
type TestPaper struct {
	TestID    uuid.UUID            `json:"test_id"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Sections  []TestSection        `json:"sections"`
	Questions []QuestionForStudent `json:"questions"`
}
