package progress

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/skillforge/engine/internal/models"
)

// Valid daily goal targets, in XP per day.
var validGoalTargets = map[int]bool{10: true, 30: true, 50: true, 100: true}

// Service owns the in-memory Progress value and is its single writer.
// Every mutation persists synchronously before returning, so a crash
// loses at most the in-flight event. All access goes through one mutex
// because HTTP serving is concurrent.
type Service struct {
	store *Store

	mu sync.Mutex
	p  models.Progress

	now func() time.Time
}

// NewService loads durable state (falling back to defaults on a read
// failure) and reconciles the streak against today's date.
func NewService(store *Store) *Service {
	s := &Service{store: store, now: time.Now}

	p, err := store.Load()
	if err != nil {
		log.Printf("[progress] unreadable state, starting from defaults: %v", err)
	}
	ReconcileOnLoad(&p, s.now())
	s.p = p
	return s
}

// persist writes the current value through the store. Write failures are
// reported but never end the session: the in-memory value stays authoritative.
func (s *Service) persist() error {
	if err := s.store.Save(s.p); err != nil {
		log.Printf("[progress] save failed: %v", err)
		return err
	}
	return nil
}

// Snapshot returns the current progress with the daily XP counter
// normalized to today.
func (s *Service) Snapshot() models.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.p
	if p.TodayXPDate != DateString(s.now()) {
		p.TodayXP = 0
	}
	return p
}

// Lives returns the current lives value.
func (s *Service) Lives() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Lives
}

// DailyGoalCompleted reports whether today's XP has reached the goal target.
func (s *Service) DailyGoalCompleted() bool {
	p := s.Snapshot()
	return p.TodayXP >= p.DailyGoalTarget
}

// AwardXP adds amount to both the cumulative and the daily counter,
// resetting the daily counter first if the calendar day has changed.
func (s *Service) AwardXP(amount int) error {
	if amount < 0 {
		return fmt.Errorf("xp amount must be non-negative, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	today := DateString(s.now())
	if s.p.TodayXPDate != today {
		s.p.TodayXP = 0
		s.p.TodayXPDate = today
	}
	s.p.TotalXP += int64(amount)
	s.p.TodayXP += amount

	return s.persist()
}

// LoseLife decrements lives, floored at 0, and returns the resulting
// value so the caller detects the zero-crossing exactly once.
func (s *Service) LoseLife() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.p.Lives > 0 {
		s.p.Lives--
	}
	return s.p.Lives, s.persist()
}

// RefillLives resets lives to the maximum.
func (s *Service) RefillLives() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.p.Lives = models.MaxLives
	return s.persist()
}

// MarkActivity records streak activity for today.
func (s *Service) MarkActivity() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.p
	MarkActivity(&s.p, s.now())
	if s.p == before {
		return nil // already counted today, nothing to write
	}
	return s.persist()
}

// SetDailyGoal updates the daily XP target.
func (s *Service) SetDailyGoal(target int) error {
	if !validGoalTargets[target] {
		return fmt.Errorf("target must be 10, 30, 50, or 100")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.p.DailyGoalTarget = target
	return s.persist()
}
