package model

import "testing"

func fp(v float64) *float64 { return &v }

func TestValidBand(t *testing.T) {
	valid := []float64{0, 0.5, 1, 4.5, 6, 6.5, 9}
	for _, b := range valid {
		if !ValidBand(b) {
			t.Errorf("ValidBand(%v) = false, want true", b)
		}
	}

	invalid := []float64{-0.5, 9.5, 10, 6.25, 3.1, 8.75}
	for _, b := range invalid {
		if ValidBand(b) {
			t.Errorf("ValidBand(%v) = true, want false", b)
		}
	}
}

func TestRoundBandToHalf(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{6.0, 6.0},
		{6.125, 6.0},
		{6.25, 6.5}, // halves round up
		{6.375, 6.5},
		{6.75, 7.0},
		{8.875, 9.0},
	}
	for _, tt := range tests {
		if got := RoundBandToHalf(tt.in); got != tt.want {
			t.Errorf("RoundBandToHalf(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOverallBand(t *testing.T) {
	if got := OverallBand(nil, nil, nil, nil); got != nil {
		t.Errorf("OverallBand(all nil) = %v, want nil", *got)
	}

	// Single band counts as-is.
	if got := OverallBand(fp(7.0), nil, nil, nil); got == nil || *got != 7.0 {
		t.Errorf("OverallBand(7) = %v, want 7.0", got)
	}

	// (6.5 + 7.0 + 5.5 + 6.0) / 4 = 6.25 -> 6.5
	if got := OverallBand(fp(6.5), fp(7.0), fp(5.5), fp(6.0)); got == nil || *got != 6.5 {
		t.Errorf("OverallBand(four skills) = %v, want 6.5", got)
	}

	// Zero bands are treated as absent.
	if got := OverallBand(fp(0), fp(8.0)); got == nil || *got != 8.0 {
		t.Errorf("OverallBand(0, 8) = %v, want 8.0", got)
	}
}

func TestRecompute(t *testing.T) {
	s := &StudentStats{
		ListeningBand: fp(8.0),
		ReadingBand:   fp(7.0),
	}
	s.Recompute()
	if s.OverallBand == nil || *s.OverallBand != 7.5 {
		t.Errorf("OverallBand = %v, want 7.5", s.OverallBand)
	}

	s.ListeningBand = nil
	s.ReadingBand = nil
	s.Recompute()
	if s.OverallBand != nil {
		t.Errorf("OverallBand = %v, want nil after clearing skills", *s.OverallBand)
	}
}
