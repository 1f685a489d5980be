package progress

import (
	"time"

	"github.com/skillforge/engine/internal/models"
)

// Calendar comparisons are date-only and always UTC, so a session played
// at 23:59 and one at 00:01 land on different streak days everywhere.
const dateLayout = "2006-01-02"

// DateString formats t as the stored day-granularity date.
func DateString(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func isYesterday(stored string, today time.Time) bool {
	d, err := time.Parse(dateLayout, stored)
	if err != nil {
		return false
	}
	return DateString(d.AddDate(0, 0, 1)) == DateString(today)
}

// ReconcileOnLoad zeroes the streak if the last played day is neither
// today nor yesterday. It never increments; that happens only on
// MarkActivity.
func ReconcileOnLoad(p *models.Progress, today time.Time) {
	if p.LastPlayedDate == DateString(today) || isYesterday(p.LastPlayedDate, today) {
		return
	}
	p.StreakDays = 0
}

// MarkActivity records that the user played today. Same-day calls are
// no-ops, a consecutive day increments the streak, and any gap of two or
// more days (or a first-ever activity) restarts it at 1.
func MarkActivity(p *models.Progress, today time.Time) {
	day := DateString(today)
	if p.LastPlayedDate == day {
		return
	}

	if isYesterday(p.LastPlayedDate, today) {
		p.StreakDays++
	} else {
		p.StreakDays = 1
	}
	p.LastPlayedDate = day
}
