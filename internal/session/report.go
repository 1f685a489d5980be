package session

import (
	"math"

	"github.com/skillforge/engine/internal/models"
)

// Performance messages by score percentage.
const (
	msgExcellent   = "Excellent!"
	msgGood        = "Good Job!"
	msgNotBad      = "Not Bad"
	msgNeedsImprov = "Needs Improvement"
)

// Summarize derives the final score report from a completed session's
// answer log. It is pure: it never mutates the session and never touches
// progress. Calling it on anything but a completed session is a caller bug.
func Summarize(s *models.Session) (models.Summary, error) {
	if s.State != models.StateCompleted {
		return models.Summary{}, &models.InvalidStateError{Op: "summarize", Reason: "session is not completed"}
	}

	correct := 0
	for i, q := range s.Questions {
		if s.Answers[i] == q.CorrectKey {
			correct++
		}
	}

	total := len(s.Questions)
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(100 * float64(correct) / float64(total)))
	}

	bonus := 0
	if s.Mode == models.ModePractice && s.LivesLost == 0 {
		bonus = FlawlessBonusXP
	}

	summary := models.Summary{
		Total:      total,
		Correct:    correct,
		Wrong:      total - correct,
		Percentage: percentage,
		XPEarned:   correct * XPPerCorrect,
		BonusXP:    bonus,
		Message:    performanceMessage(percentage),
	}
	if s.Mode == models.ModeTest {
		summary.ElapsedSeconds = s.ElapsedSeconds
	}
	return summary, nil
}

func performanceMessage(percentage int) string {
	switch {
	case percentage >= 90:
		return msgExcellent
	case percentage >= 70:
		return msgGood
	case percentage >= 50:
		return msgNotBad
	default:
		return msgNeedsImprov
	}
}
