package model

import (
	"math"
	"time"
)

// StudentStats holds a student's rolling per-skill band scores and the
// derived overall band.
type StudentStats struct {
	StudentID     int        `json:"student_id"`
	ListeningBand *float64   `json:"listening_band,omitempty"`
	ReadingBand   *float64   `json:"reading_band,omitempty"`
	WritingBand   *float64   `json:"writing_band,omitempty"`
	SpeakingBand  *float64   `json:"speaking_band,omitempty"`
	OverallBand   *float64   `json:"overall_band,omitempty"`
	TestsTaken    int        `json:"tests_taken"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// ValidBand reports whether b is an IELTS-style band: 0–9 in 0.5 steps.
func ValidBand(b float64) bool {
	if b < 0 || b > 9 {
		return false
	}
	return b == math.Trunc(b*2)/2
}

// RoundBandToHalf rounds a raw average to the nearest 0.5, halves up.
func RoundBandToHalf(v float64) float64 {
	return math.Round(v*2) / 2
}

// OverallBand averages the present (non-nil, > 0) skill bands and rounds to
// the nearest 0.5. Returns nil when no band is present.
func OverallBand(bands ...*float64) *float64 {
	var sum float64
	var n int
	for _, b := range bands {
		if b == nil || *b <= 0 {
			continue
		}
		sum += *b
		n++
	}
	if n == 0 {
		return nil
	}
	overall := RoundBandToHalf(sum / float64(n))
	return &overall
}

// Recompute refreshes the derived overall band from the skill bands.
func (s *StudentStats) Recompute() {
	s.OverallBand = OverallBand(s.ListeningBand, s.ReadingBand, s.WritingBand, s.SpeakingBand)
}
