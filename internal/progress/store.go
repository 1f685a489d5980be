package progress

import (
	"fmt"
	"strconv"

	"github.com/skillforge/engine/internal/database"
	"github.com/skillforge/engine/internal/models"
)

// Stored field names in progress_state. Absence of a row implies the
// documented default for that field.
const (
	keyTotalXP         = "total_xp"
	keyTodayXP         = "today_xp"
	keyTodayXPDate     = "today_xp_date"
	keyLives           = "lives"
	keyStreakDays      = "streak_days"
	keyLastPlayedDate  = "last_played_date"
	keyDailyGoalTarget = "daily_goal_target"
)

// Store persists Progress as key-value rows. There is a single logical
// writer at a time, so Save never races with itself.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Load reads the durable state. Missing or corrupt fields fall back to
// their defaults field by field; a read failure returns full defaults
// along with the error so the caller can keep running in memory.
func (s *Store) Load() (models.Progress, error) {
	p := models.DefaultProgress()

	rows, err := s.db.Query(`SELECT name, value FROM progress_state`)
	if err != nil {
		return p, &models.PersistenceError{Op: "load", Err: err}
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return p, &models.PersistenceError{Op: "load", Err: err}
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return p, &models.PersistenceError{Op: "load", Err: err}
	}

	if v, ok := parseInt64(values[keyTotalXP]); ok && v >= 0 {
		p.TotalXP = v
	}
	if v, ok := parseInt(values[keyTodayXP]); ok && v >= 0 {
		p.TodayXP = v
	}
	p.TodayXPDate = values[keyTodayXPDate]
	if v, ok := parseInt(values[keyLives]); ok && v >= 0 && v <= models.MaxLives {
		p.Lives = v
	}
	if v, ok := parseInt(values[keyStreakDays]); ok && v >= 0 {
		p.StreakDays = v
	}
	p.LastPlayedDate = values[keyLastPlayedDate]
	if v, ok := parseInt(values[keyDailyGoalTarget]); ok && v > 0 {
		p.DailyGoalTarget = v
	}

	return p, nil
}

// Save overwrites the durable state in one transaction, so a crash never
// leaves a partially written snapshot visible.
func (s *Store) Save(p models.Progress) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &models.PersistenceError{Op: "save", Err: err}
	}
	defer tx.Rollback()

	upsert := s.db.Dialect.RewriteQuery(s.db.Dialect.UpsertProgressQuery())
	pairs := map[string]string{
		keyTotalXP:         strconv.FormatInt(p.TotalXP, 10),
		keyTodayXP:         strconv.Itoa(p.TodayXP),
		keyTodayXPDate:     p.TodayXPDate,
		keyLives:           strconv.Itoa(p.Lives),
		keyStreakDays:      strconv.Itoa(p.StreakDays),
		keyLastPlayedDate:  p.LastPlayedDate,
		keyDailyGoalTarget: strconv.Itoa(p.DailyGoalTarget),
	}
	for name, value := range pairs {
		if _, err := tx.Exec(upsert, name, value); err != nil {
			return &models.PersistenceError{Op: "save", Err: fmt.Errorf("upsert %s: %w", name, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &models.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt64(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
