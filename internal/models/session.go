package models

import "time"

type SessionMode string

const (
	ModePractice SessionMode = "practice"
	ModeTest     SessionMode = "test"
)

var ValidSessionModes = map[SessionMode]bool{
	ModePractice: true,
	ModeTest:     true,
}

type SessionState string

const (
	StateActive    SessionState = "active"
	StateCompleted SessionState = "completed"
	StateAborted   SessionState = "aborted"
)

// Session is one practice or test run over a shuffled question set.
// It is created by the engine's Start, mutated only by engine operations,
// and discarded at the end; it is never persisted.
type Session struct {
	ID             string
	Mode           SessionMode
	Topic          string
	Questions      []Question
	CurrentIndex   int
	Answers        []ChoiceKey // per question position; "" means unanswered
	Submitted      []bool      // practice: answer event committed for this position
	Pending        ChoiceKey   // practice: staged choice, not yet scored
	Score          int
	LivesRemaining int // practice only; inert in test mode
	LivesLost      int
	Locked         bool // lives exhausted, feedback shown, no further answering
	State          SessionState
	StartedAt      time.Time
	ElapsedSeconds int // test mode ticker
}

// ── Request Types ─────────────────────────────────────────

type StartSessionRequest struct {
	Topic string      `json:"topic"`
	Mode  SessionMode `json:"mode"`
}

type SelectChoiceRequest struct {
	Choice ChoiceKey `json:"choice"`
}

// ── Response Types ────────────────────────────────────────

type SessionResponse struct {
	ID             string       `json:"id"`
	Mode           SessionMode  `json:"mode"`
	Topic          string       `json:"topic"`
	State          SessionState `json:"state"`
	Locked         bool         `json:"locked"`
	CurrentIndex   int          `json:"current_index"`
	TotalQuestions int          `json:"total_questions"`
	Question       *Question    `json:"question,omitempty"`
	Selected       ChoiceKey    `json:"selected,omitempty"`
	Answered       bool         `json:"answered"`
	LivesRemaining *int         `json:"lives_remaining,omitempty"`
	ElapsedSeconds int          `json:"elapsed_seconds,omitempty"`
}

type AnswerFeedback struct {
	Correct        bool      `json:"correct"`
	CorrectKey     ChoiceKey `json:"correct_key"`
	Solution       string    `json:"solution"`
	XPAwarded      int       `json:"xp_awarded"`
	LivesRemaining *int      `json:"lives_remaining,omitempty"`
	GameOver       bool      `json:"game_over"`
}

type Summary struct {
	Total          int    `json:"total"`
	Correct        int    `json:"correct"`
	Wrong          int    `json:"wrong"`
	Percentage     int    `json:"percentage"`
	XPEarned       int    `json:"xp_earned"`
	BonusXP        int    `json:"bonus_xp"`
	Message        string `json:"message"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
}
