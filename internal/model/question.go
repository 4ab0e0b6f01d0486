package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates supported item formats.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionFillBlank      QuestionType = "FILL_BLANK"
	QuestionEssay          QuestionType = "ESSAY"
	QuestionSpeakingPrompt QuestionType = "SPEAKING_PROMPT"
)

// Question represents an authored exam item.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	TestID        uuid.UUID       `json:"test_id"`
	SectionID     string          `json:"section_id"`
	Skill         SkillType       `json:"skill"`
	QuestionType  QuestionType    `json:"question_type"`
	QuestionText  string          `json:"question_text"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer string          `json:"correct_answer,omitempty"` // Empty for subjective items
	MediaURL      *string         `json:"media_url,omitempty"`
	OrderNum      int             `json:"order_num"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID           uuid.UUID       `json:"id"`
	SectionID    string          `json:"section_id"`
	Skill        SkillType       `json:"skill"`
	QuestionType QuestionType    `json:"question_type"`
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options,omitempty"`
	MediaURL     *string         `json:"media_url,omitempty"`
	OrderNum     int             `json:"order_num"`
}

// AnswerEntry is one answer-key record: the question's skill and its
// correct answer. Stored in the Redis answer-key hash as "skill|answer"
// so grading can count each question against its own skill only.
type AnswerEntry struct {
	Skill  SkillType
	Answer string
}

// EncodeAnswerEntry packs an entry into the hash value format.
func EncodeAnswerEntry(skill SkillType, answer string) string {
	return string(skill) + "|" + answer
}

// DecodeAnswerEntry unpacks a hash value. Reports false for values
// without a valid skill prefix.
func DecodeAnswerEntry(v string) (AnswerEntry, bool) {
	skill, answer, ok := strings.Cut(v, "|")
	if !ok || !ValidSkill(SkillType(skill)) {
		return AnswerEntry{}, false
	}
	return AnswerEntry{Skill: SkillType(skill), Answer: answer}, true
}

// AddQuestionRequest is the payload for adding a question to a test.
type AddQuestionRequest struct {
	SectionID     string          `json:"section_id" binding:"required,min=1,max=64"`
	Skill         SkillType       `json:"skill" binding:"required,oneof=listening reading writing speaking"`
	QuestionType  QuestionType    `json:"question_type" binding:"required,oneof=MULTIPLE_CHOICE FILL_BLANK ESSAY SPEAKING_PROMPT"`
	QuestionText  string          `json:"question_text" binding:"required,min=1"`
	Options       json.RawMessage `json:"options" binding:"omitempty"`
	CorrectAnswer string          `json:"correct_answer" binding:"omitempty,max=1024"`
	MediaURL      *string         `json:"media_url" binding:"omitempty,max=512"`
	OrderNum      int             `json:"order_num" binding:"required,min=1"`
}
