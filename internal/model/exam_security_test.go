package model

import "testing"

func newSecurity() *ExamSecurity {
	return &ExamSecurity{
		SecurityScore: InitialSecurityScore,
		Status:        SecuritySecure,
	}
}

func mustRule(t *testing.T, vt ViolationType) ViolationRule {
	t.Helper()
	rule, ok := RuleFor(vt)
	if !ok {
		t.Fatalf("no rule for %s", vt)
	}
	return rule
}

func TestApplyViolationCountersAndScore(t *testing.T) {
	s := newSecurity()

	s.ApplyViolation(mustRule(t, ViolationTabSwitch))
	if s.CriticalCount != 1 {
		t.Errorf("CriticalCount = %d, want 1", s.CriticalCount)
	}
	if s.SecurityScore != 75 {
		t.Errorf("SecurityScore = %d, want 75", s.SecurityScore)
	}
	if s.Status != SecurityViolated {
		t.Errorf("Status = %s, want violated", s.Status)
	}

	s.ApplyViolation(mustRule(t, ViolationRightClick))
	if s.LowCount != 1 {
		t.Errorf("LowCount = %d, want 1", s.LowCount)
	}
	if s.SecurityScore != 70 {
		t.Errorf("SecurityScore = %d, want 70", s.SecurityScore)
	}
	// Status stays violated, never regresses to secure.
	if s.Status != SecurityViolated {
		t.Errorf("Status = %s, want violated", s.Status)
	}
}

func TestApplyViolationScoreFloor(t *testing.T) {
	s := newSecurity()
	s.SecurityScore = 10

	s.ApplyViolation(mustRule(t, ViolationTabSwitch))
	if s.SecurityScore != 0 {
		t.Errorf("SecurityScore = %d, want 0 (never negative)", s.SecurityScore)
	}
}

func TestShouldTerminateThresholds(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*ExamSecurity)
		want bool
	}{
		{"fresh attempt", func(s *ExamSecurity) {}, false},
		{"one critical", func(s *ExamSecurity) { s.CriticalCount = 1 }, false},
		{"two criticals", func(s *ExamSecurity) { s.CriticalCount = 2 }, true},
		{"three criticals", func(s *ExamSecurity) { s.CriticalCount = 3 }, true},
		{"two highs", func(s *ExamSecurity) { s.HighCount = 2 }, false},
		{"three highs", func(s *ExamSecurity) { s.HighCount = 3 }, true},
		{"score at floor", func(s *ExamSecurity) { s.SecurityScore = ScoreTerminationFloor }, false},
		{"score below floor", func(s *ExamSecurity) { s.SecurityScore = ScoreTerminationFloor - 1 }, true},
		{"score zero", func(s *ExamSecurity) { s.SecurityScore = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSecurity()
			tt.mod(s)
			if got := s.ShouldTerminate(); got != tt.want {
				t.Errorf("ShouldTerminate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTerminationByAccumulation(t *testing.T) {
	// Three criticals: the second already crosses the threshold.
	s := newSecurity()
	rule := mustRule(t, ViolationDevTools)

	s.ApplyViolation(rule)
	if s.ShouldTerminate() {
		t.Fatal("terminated after one critical")
	}

	s.ApplyViolation(rule)
	if !s.ShouldTerminate() {
		t.Fatal("not terminated after two criticals")
	}
}

func TestTerminationByScoreErosion(t *testing.T) {
	// Medium violations alone can erode the score below the floor:
	// 100 - 8*10 = 20 < 30.
	s := newSecurity()
	rule := mustRule(t, ViolationKeyboardShortcut)

	for i := 0; i < 7; i++ {
		s.ApplyViolation(rule)
	}
	if s.ShouldTerminate() {
		t.Fatalf("terminated too early at score %d", s.SecurityScore)
	}

	s.ApplyViolation(rule)
	if !s.ShouldTerminate() {
		t.Fatalf("not terminated at score %d", s.SecurityScore)
	}
}

func TestBudgetNeverNegative(t *testing.T) {
	s := newSecurity()
	s.CriticalCount = 5
	s.HighCount = 4
	s.SecurityScore = 0

	b := s.Budget()
	if b.Critical != 0 || b.High != 0 || b.Score != 0 {
		t.Errorf("Budget() = %+v, want all zero", b)
	}
}

func TestBudgetFreshAttempt(t *testing.T) {
	b := newSecurity().Budget()
	if b.Critical != 2 {
		t.Errorf("Critical budget = %d, want 2", b.Critical)
	}
	if b.High != 3 {
		t.Errorf("High budget = %d, want 3", b.High)
	}
	if b.Score != 70 {
		t.Errorf("Score budget = %d, want 70", b.Score)
	}
}

func TestLocked(t *testing.T) {
	s := newSecurity()
	if s.Locked() {
		t.Error("fresh security record must not be locked")
	}
	s.PostExam.SubmissionLocked = true
	if !s.Locked() {
		t.Error("Locked() = false after SubmissionLocked")
	}
}
