package service

import (
	"encoding/json"
	"testing"

	"github.com/celts/celts-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestBandFromRaw(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		want    float64
	}{
		{"perfect", 40, 40, 9.0},
		{"39 of 40", 39, 40, 9.0},
		{"38 of 40", 38, 40, 8.5},
		{"35 of 40", 35, 40, 8.0},
		{"30 of 40", 30, 40, 7.0},
		{"half", 20, 40, 5.5},
		{"16 of 40", 16, 40, 5.0},
		{"10 of 40", 10, 40, 4.0},
		{"5 of 40", 5, 40, 3.0},
		{"1 of 40", 1, 40, 2.0},
		{"one of a thousand", 1, 1000, 1.0}, // below lowest threshold but answered something
		{"zero correct", 0, 40, 0},
		{"empty key", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BandFromRaw(tt.correct, tt.total); got != tt.want {
				t.Errorf("BandFromRaw(%d, %d) = %v, want %v", tt.correct, tt.total, got, tt.want)
			}
		})
	}
}

func TestScoreObjectivePerSkill(t *testing.T) {
	svc := &GradingService{log: zerolog.Nop()}

	l1, l2 := uuid.New().String(), uuid.New().String()
	r1, r2 := uuid.New().String(), uuid.New().String()
	key := map[string]model.AnswerEntry{
		l1: {Skill: model.SkillListening, Answer: "A"},
		l2: {Skill: model.SkillListening, Answer: "paris"},
		r1: {Skill: model.SkillReading, Answer: "C"},
		r2: {Skill: model.SkillReading, Answer: "D"},
	}

	// Both listening answers right; the reading questions must not count
	// against this submission.
	resp, _ := json.Marshal(map[string]string{l1: "A", l2: " Paris "})
	sub := &model.Submission{ID: uuid.New(), Skill: model.SkillListening, Response: resp}

	correct, total := svc.scoreObjective(sub, key)
	if correct != 2 || total != 2 {
		t.Fatalf("listening scored %d/%d, want 2/2", correct, total)
	}
	if band := BandFromRaw(correct, total); band != 9.0 {
		t.Fatalf("band = %v, want 9.0", band)
	}

	// The same key graded as reading sees only the reading questions.
	resp, _ = json.Marshal(map[string]string{r1: "C", r2: "wrong"})
	sub = &model.Submission{ID: uuid.New(), Skill: model.SkillReading, Response: resp}

	correct, total = svc.scoreObjective(sub, key)
	if correct != 1 || total != 2 {
		t.Fatalf("reading scored %d/%d, want 1/2", correct, total)
	}
}

func TestScoreObjectiveUnreadableResponse(t *testing.T) {
	svc := &GradingService{log: zerolog.Nop()}

	key := map[string]model.AnswerEntry{
		uuid.New().String(): {Skill: model.SkillListening, Answer: "A"},
		uuid.New().String(): {Skill: model.SkillListening, Answer: "B"},
		uuid.New().String(): {Skill: model.SkillReading, Answer: "C"},
	}
	sub := &model.Submission{ID: uuid.New(), Skill: model.SkillListening, Response: json.RawMessage(`not json`)}

	correct, total := svc.scoreObjective(sub, key)
	if correct != 0 || total != 2 {
		t.Fatalf("unreadable payload scored %d/%d, want 0 of the 2 listening questions", correct, total)
	}
}

func TestBandFromRawMonotonic(t *testing.T) {
	// More correct answers never yield a lower band.
	const total = 40
	prev := 0.0
	for correct := 0; correct <= total; correct++ {
		band := BandFromRaw(correct, total)
		if band < prev {
			t.Fatalf("band dropped from %v to %v at %d/%d", prev, band, correct, total)
		}
		prev = band
	}
}
