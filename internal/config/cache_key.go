package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key holding a student's active JWT ID.
func (r *CacheKeyStruct) StudentLoginKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// AttemptDeadlineKey returns the cache key holding an attempt's Unix deadline.
func (r *CacheKeyStruct) AttemptDeadlineKey(attemptID uuid.UUID) string {
	return fmt.Sprintf("attempt:%s:deadline", attemptID)
}

// SectionDeadlineKey returns the cache key for a per-section deadline.
func (r *CacheKeyStruct) SectionDeadlineKey(attemptID uuid.UUID, sectionID string) string {
	return fmt.Sprintf("attempt:%s:section:%s:deadline", attemptID, sectionID)
}

// AttemptDraftsKey returns the cache key for a student's autosaved response drafts.
func (r *CacheKeyStruct) AttemptDraftsKey(attemptID uuid.UUID) string {
	return fmt.Sprintf("attempt:%s:drafts", attemptID)
}

// TestPaperKey returns the cache key for a published test's student payload.
func (r *CacheKeyStruct) TestPaperKey(testID uuid.UUID) string {
	return fmt.Sprintf("test:%s:paper", testID)
}

// TestAnswerKey returns the cache key for a published test's answer key.
func (r *CacheKeyStruct) TestAnswerKey(testID uuid.UUID) string {
	return fmt.Sprintf("test:%s:key", testID)
}

// StudentActiveAttemptKey returns the cache key for a student's in-flight attempt.
func (r *CacheKeyStruct) StudentActiveAttemptKey(studentID int) string {
	return fmt.Sprintf("student:%d:active_attempt", studentID)
}

// TestMonitorChannel returns the Redis PubSub channel for a test's live monitor.
func (r *CacheKeyStruct) TestMonitorChannel(testID uuid.UUID) string {
	return fmt.Sprintf("test:%s:monitor", testID)
}

var CacheKey = NewCacheKeyStruct()
