package models

// MaxLives is the ceiling on the consumable lives resource.
const MaxLives = 5

// DefaultDailyGoalXP is the daily XP target assumed when none is stored.
const DefaultDailyGoalXP = 30

// Progress is the durable, process-wide state that survives restarts.
// Dates are stored at day granularity as "2006-01-02" strings in UTC;
// an empty string means "never".
type Progress struct {
	TotalXP         int64  `json:"total_xp"`
	TodayXP         int    `json:"today_xp"`
	TodayXPDate     string `json:"today_xp_date,omitempty"`
	Lives           int    `json:"lives"`
	StreakDays      int    `json:"streak_days"`
	LastPlayedDate  string `json:"last_played_date,omitempty"`
	DailyGoalTarget int    `json:"daily_goal_target"`
}

// DefaultProgress returns the documented defaults used when durable
// state is absent or unreadable.
func DefaultProgress() Progress {
	return Progress{
		Lives:           MaxLives,
		DailyGoalTarget: DefaultDailyGoalXP,
	}
}

// ── Request/Response Types ────────────────────────────────

type SetDailyGoalRequest struct {
	Target int `json:"target"`
}

type ProgressResponse struct {
	Progress
	DailyGoalCompleted bool `json:"daily_goal_completed"`
}

type RefillLivesResponse struct {
	Lives int `json:"lives"`
}
