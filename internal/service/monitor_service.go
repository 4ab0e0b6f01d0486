package service

import (
	"context"
	"sync"

	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/google/uuid"
)

// MonitorService orchestrates the faculty live-monitor dashboard.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository) *MonitorService {
	return &MonitorService{monitorRepo: monitorRepo}
}

// TestSnapshot is the aggregate view of one test's attempts and violations.
type TestSnapshot struct {
	TestID          uuid.UUID            `json:"test_id"`
	ActiveAttempts  int                  `json:"active_attempts"`
	Finished        int                  `json:"finished_attempts"`
	Terminated      int                  `json:"terminated_attempts"`
	TotalViolations int                  `json:"total_violations"`
	Flagged         []model.ExamSecurity `json:"flagged"`
}

// Snapshot gathers the monitor counters concurrently. Attempt counts are
// critical; violation data is best-effort.
func (s *MonitorService) Snapshot(ctx context.Context, testID uuid.UUID) (*TestSnapshot, error) {
	snapshot := &TestSnapshot{TestID: testID, Flagged: []model.ExamSecurity{}}

	var (
		active, finished, terminated, violations int
		flagged                                  []model.ExamSecurity
		activeErr, finishedErr                   error
		terminatedErr, violationsErr, flaggedErr error
		wg                                       sync.WaitGroup
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		active, activeErr = s.monitorRepo.CountActiveAttempts(ctx, testID)
	}()
	go func() {
		defer wg.Done()
		finished, finishedErr = s.monitorRepo.CountFinishedAttempts(ctx, testID)
	}()
	go func() {
		defer wg.Done()
		terminated, terminatedErr = s.monitorRepo.CountTerminated(ctx, testID)
	}()
	go func() {
		defer wg.Done()
		violations, violationsErr = s.monitorRepo.CountViolations(ctx, testID)
	}()
	go func() {
		defer wg.Done()
		flagged, flaggedErr = s.monitorRepo.ListFlagged(ctx, testID)
	}()
	wg.Wait()

	if activeErr != nil {
		return nil, activeErr
	}
	if finishedErr != nil {
		return nil, finishedErr
	}
	snapshot.ActiveAttempts = active
	snapshot.Finished = finished

	if terminatedErr == nil {
		snapshot.Terminated = terminated
	}
	if violationsErr == nil {
		snapshot.TotalViolations = violations
	}
	if flaggedErr == nil && flagged != nil {
		snapshot.Flagged = flagged
	}

	return snapshot, nil
}
