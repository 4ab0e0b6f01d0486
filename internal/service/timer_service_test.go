package service

import (
	"testing"
	"time"

	"github.com/celts/celts-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newBareTimerService() *TimerService {
	return &TimerService{
		log:    zerolog.Nop(),
		timers: make(map[uuid.UUID]*time.Timer),
	}
}

func TestSplitRecovered(t *testing.T) {
	now := time.Now()
	overdue := model.TestAttempt{ID: uuid.New(), EndsAt: now.Add(-time.Minute)}
	running := model.TestAttempt{ID: uuid.New(), EndsAt: now.Add(time.Hour)}
	exactlyNow := model.TestAttempt{ID: uuid.New(), EndsAt: now}

	live, expired := splitRecovered([]model.TestAttempt{overdue, running, exactlyNow}, now)

	if len(expired) != 1 || expired[0].ID != overdue.ID {
		t.Fatalf("expired = %d entries, want exactly the overdue attempt", len(expired))
	}
	if len(live) != 2 {
		t.Fatalf("live = %d entries, want 2", len(live))
	}
	for _, a := range live {
		if a.ID == overdue.ID {
			t.Fatal("overdue attempt landed in the live partition")
		}
	}
}

func TestSplitRecoveredEmpty(t *testing.T) {
	live, expired := splitRecovered(nil, time.Now())
	if len(live) != 0 || len(expired) != 0 {
		t.Fatalf("got %d live, %d expired from no attempts", len(live), len(expired))
	}
}

func TestTimerArmFiresAtDeadline(t *testing.T) {
	s := newBareTimerService()

	fired := make(chan uuid.UUID, 1)
	s.OnExpire(func(id uuid.UUID) { fired <- id })

	attemptID := uuid.New()
	s.arm(attemptID, time.Now().Add(20*time.Millisecond))

	select {
	case id := <-fired:
		if id != attemptID {
			t.Fatalf("expiry fired for %s, want %s", id, attemptID)
		}
	case <-time.After(time.Second):
		t.Fatal("expiry handler never fired")
	}

	s.mu.Lock()
	_, still := s.timers[attemptID]
	s.mu.Unlock()
	if still {
		t.Fatal("fired timer was not removed from the registry")
	}
}

func TestTimerArmPastDeadlineFiresImmediately(t *testing.T) {
	s := newBareTimerService()

	fired := make(chan uuid.UUID, 1)
	s.OnExpire(func(id uuid.UUID) { fired <- id })

	s.arm(uuid.New(), time.Now().Add(-time.Minute))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("past-deadline arm did not fire")
	}
}

func TestTimerRearmReplacesPrevious(t *testing.T) {
	s := newBareTimerService()

	fired := make(chan uuid.UUID, 2)
	s.OnExpire(func(id uuid.UUID) { fired <- id })

	attemptID := uuid.New()
	s.arm(attemptID, time.Now().Add(30*time.Millisecond))
	s.arm(attemptID, time.Now().Add(60*time.Millisecond))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("rearmed timer never fired")
	}

	select {
	case <-fired:
		t.Fatal("replaced timer fired as well")
	case <-time.After(150 * time.Millisecond):
	}
}
