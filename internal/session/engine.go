package session

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillforge/engine/internal/bank"
	"github.com/skillforge/engine/internal/models"
)

// XPPerCorrect is the fixed award for one correct answer.
const XPPerCorrect = 10

// FlawlessBonusXP is the practice completion bonus when no life was lost.
const FlawlessBonusXP = 5

const gameOverEffect = "game_over"

// ProgressRecorder is the slice of the progress service the engine
// mutates. Each call persists synchronously before returning.
type ProgressRecorder interface {
	AwardXP(amount int) error
	LoseLife() (int, error)
	MarkActivity() error
	Lives() int
}

// Engine runs one practice or test session at a time over the question
// bank. All operations serialize behind a single mutex; timed effects
// re-enter through it and verify the session ID first, so callbacks for
// a superseded session are no-ops.
type Engine struct {
	bank     *bank.Bank
	progress ProgressRecorder
	sched    *Scheduler

	gameOverDelay time.Duration
	tickInterval  time.Duration

	mu  sync.Mutex
	cur *models.Session
	rng *rand.Rand
}

func NewEngine(b *bank.Bank, p ProgressRecorder, gameOverDelay, tickInterval time.Duration) *Engine {
	return &Engine{
		bank:          b,
		progress:      p,
		sched:         NewScheduler(),
		gameOverDelay: gameOverDelay,
		tickInterval:  tickInterval,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start creates a new session over a shuffled copy of the topic's
// questions, discarding any previous session and cancelling its pending
// effects. Practice mode seeds session lives from durable progress and
// refuses to start on zero lives; test mode leaves lives inert and
// starts the elapsed-time ticker.
func (e *Engine) Start(topic string, mode models.SessionMode) (*models.SessionResponse, error) {
	if !models.ValidSessionModes[mode] {
		return nil, fmt.Errorf("mode must be %q or %q", models.ModePractice, models.ModeTest)
	}

	questions := e.bank.FilterByTopic(topic)
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions for topic %q", topic)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lives := 0
	if mode == models.ModePractice {
		lives = e.progress.Lives()
		if lives == 0 {
			return nil, &models.InvalidStateError{Op: "start", Reason: "no lives remaining; refill before starting a practice session"}
		}
	}

	// Any effect still pending for the previous session must die with it.
	e.sched.CancelAll()

	e.shuffle(questions)

	s := &models.Session{
		ID:             uuid.NewString(),
		Mode:           mode,
		Topic:          topic,
		Questions:      questions,
		Answers:        make([]models.ChoiceKey, len(questions)),
		Submitted:      make([]bool, len(questions)),
		LivesRemaining: lives,
		State:          models.StateActive,
		StartedAt:      time.Now().UTC(),
	}
	e.cur = s

	if mode == models.ModeTest {
		id := s.ID
		e.sched.StartTicker(e.tickInterval, func() { e.tick(id) })
	}

	log.Printf("[session] started %s session %s: topic=%q questions=%d", mode, s.ID, topic, len(questions))
	return e.viewLocked(), nil
}

// shuffle applies a Fisher-Yates pass, a full uniform permutation rather
// than a comparator trick.
func (e *Engine) shuffle(qs []models.Question) {
	for i := len(qs) - 1; i > 0; i-- {
		j := e.rng.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}

// tick advances the elapsed-seconds counter for the test session with
// the given ID. A stale tick for a superseded session does nothing.
func (e *Engine) tick(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil || e.cur.ID != id || e.cur.State != models.StateActive {
		return
	}
	e.cur.ElapsedSeconds++
}

// Current returns the state of the active session.
func (e *Engine) Current() (*models.SessionResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return nil, &models.InvalidStateError{Op: "session", Reason: "no session in progress"}
	}
	return e.viewLocked(), nil
}

// SelectChoice stages (practice) or records (test) a choice for the
// current question. Test mode may overwrite the selection any number of
// times before finish; practice may restage until submit.
func (e *Engine) SelectChoice(key models.ChoiceKey) (*models.SessionResponse, error) {
	if !models.ValidChoiceKeys[key] {
		return nil, fmt.Errorf("choice must be one of choice_1..choice_%d", models.ChoicesPerQuestion)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked("select"); err != nil {
		return nil, err
	}

	s := e.cur
	if s.Mode == models.ModePractice {
		if s.Submitted[s.CurrentIndex] {
			return nil, &models.InvalidStateError{Op: "select", Reason: "current question already answered"}
		}
		s.Pending = key
	} else {
		s.Answers[s.CurrentIndex] = key
	}
	return e.viewLocked(), nil
}

// SubmitAnswer evaluates the staged practice choice. The answer event
// commits its XP or life effect exactly once; losing the last life
// returns the feedback first and then locks the session, with the
// terminal game-over transition deferred behind a cancellable delay.
func (e *Engine) SubmitAnswer() (*models.AnswerFeedback, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked("submit"); err != nil {
		return nil, err
	}

	s := e.cur
	if s.Mode != models.ModePractice {
		return nil, &models.InvalidStateError{Op: "submit", Reason: "submit is a practice-mode operation; use finish"}
	}
	if s.Submitted[s.CurrentIndex] {
		return nil, &models.InvalidStateError{Op: "submit", Reason: "current question already answered"}
	}
	if s.Pending == "" {
		return nil, &models.InvalidStateError{Op: "submit", Reason: "no choice selected"}
	}

	q := s.Questions[s.CurrentIndex]
	selected := s.Pending
	s.Answers[s.CurrentIndex] = selected
	s.Submitted[s.CurrentIndex] = true
	s.Pending = ""

	correct := selected == q.CorrectKey
	feedback := &models.AnswerFeedback{
		Correct:    correct,
		CorrectKey: q.CorrectKey,
		Solution:   q.Solution,
	}

	if correct {
		s.Score++
		feedback.XPAwarded = XPPerCorrect
		if err := e.progress.AwardXP(XPPerCorrect); err != nil {
			log.Printf("[session] award xp: %v", err)
		}
		if err := e.progress.MarkActivity(); err != nil {
			log.Printf("[session] mark activity: %v", err)
		}
	} else {
		s.LivesLost++
		lives, err := e.progress.LoseLife()
		if err != nil {
			log.Printf("[session] lose life: %v", err)
		}
		s.LivesRemaining = lives
		if lives == 0 {
			// Feedback goes out with this response before the session
			// locks; the terminal transition waits so the solution
			// stays visible.
			s.Locked = true
			feedback.GameOver = true
			id := s.ID
			e.sched.Schedule(gameOverEffect, e.gameOverDelay, func() { e.gameOver(id) })
		}
	}

	lives := s.LivesRemaining
	feedback.LivesRemaining = &lives
	return feedback, nil
}

// gameOver applies the deferred terminal transition after the last life
// was lost. Stale invocations for a superseded session are no-ops.
func (e *Engine) gameOver(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil || e.cur.ID != id || e.cur.State != models.StateActive || !e.cur.Locked {
		return
	}
	e.cur.State = models.StateAborted
	log.Printf("[session] %s ended: out of lives", id)
}

// Advance moves to the next question. Practice requires the current
// question to be answered; moving past the final question completes the
// session. The index only ever moves forward.
func (e *Engine) Advance() (*models.SessionResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked("advance"); err != nil {
		return nil, err
	}

	s := e.cur
	atLast := s.CurrentIndex == len(s.Questions)-1

	if s.Mode == models.ModePractice {
		if !s.Submitted[s.CurrentIndex] {
			return nil, &models.InvalidStateError{Op: "advance", Reason: "current question not yet answered"}
		}
		if atLast {
			e.completePracticeLocked()
			return e.viewLocked(), nil
		}
	} else if atLast {
		return nil, &models.InvalidStateError{Op: "advance", Reason: "already at the last question; finish the test"}
	}

	s.CurrentIndex++
	return e.viewLocked(), nil
}

// completePracticeLocked finishes a practice run and awards the flawless
// completion bonus when no life was lost.
func (e *Engine) completePracticeLocked() {
	s := e.cur
	s.State = models.StateCompleted
	e.sched.CancelAll()

	if s.LivesLost == 0 {
		if err := e.progress.AwardXP(FlawlessBonusXP); err != nil {
			log.Printf("[session] award bonus xp: %v", err)
		}
	}
	log.Printf("[session] %s completed: score=%d/%d", s.ID, s.Score, len(s.Questions))
}

// Finish scores a test session's whole answer log in one pass, awards
// XP for the correct count, and marks streak activity once.
func (e *Engine) Finish() (*models.Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked("finish"); err != nil {
		return nil, err
	}

	s := e.cur
	if s.Mode != models.ModeTest {
		return nil, &models.InvalidStateError{Op: "finish", Reason: "finish is a test-mode operation"}
	}

	correct := 0
	for i, q := range s.Questions {
		if s.Answers[i] == q.CorrectKey {
			correct++
		}
	}
	s.Score = correct
	s.State = models.StateCompleted
	e.sched.CancelAll()

	if correct > 0 {
		if err := e.progress.AwardXP(correct * XPPerCorrect); err != nil {
			log.Printf("[session] award xp: %v", err)
		}
	}
	if err := e.progress.MarkActivity(); err != nil {
		log.Printf("[session] mark activity: %v", err)
	}

	log.Printf("[session] %s finished: score=%d/%d elapsed=%ds", s.ID, correct, len(s.Questions), s.ElapsedSeconds)

	summary, err := Summarize(s)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Abort terminates the session early. XP and life effects from already
// answered questions stay committed; nothing else is recorded.
func (e *Engine) Abort() (*models.SessionResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil || e.cur.State != models.StateActive {
		return nil, &models.InvalidStateError{Op: "abort", Reason: "no session in progress"}
	}

	e.cur.State = models.StateAborted
	e.sched.CancelAll()
	log.Printf("[session] %s aborted at question %d", e.cur.ID, e.cur.CurrentIndex+1)
	return e.viewLocked(), nil
}

// Summary reports the completed session's score.
func (e *Engine) Summary() (*models.Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return nil, &models.InvalidStateError{Op: "summarize", Reason: "no session in progress"}
	}
	summary, err := Summarize(e.cur)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// requireActiveLocked guards the answer-path operations: there must be a
// live, unlocked session.
func (e *Engine) requireActiveLocked(op string) error {
	if e.cur == nil {
		return &models.InvalidStateError{Op: op, Reason: "no session in progress"}
	}
	if e.cur.Locked {
		return &models.InvalidStateError{Op: op, Reason: "session locked: out of lives"}
	}
	if e.cur.State != models.StateActive {
		return &models.InvalidStateError{Op: op, Reason: fmt.Sprintf("session is %s", e.cur.State)}
	}
	return nil
}

// viewLocked builds the client-facing session state.
func (e *Engine) viewLocked() *models.SessionResponse {
	s := e.cur
	resp := &models.SessionResponse{
		ID:             s.ID,
		Mode:           s.Mode,
		Topic:          s.Topic,
		State:          s.State,
		Locked:         s.Locked,
		CurrentIndex:   s.CurrentIndex,
		TotalQuestions: len(s.Questions),
	}

	if s.Mode == models.ModePractice {
		lives := s.LivesRemaining
		resp.LivesRemaining = &lives
	} else {
		resp.ElapsedSeconds = s.ElapsedSeconds
	}

	if s.State == models.StateActive && s.CurrentIndex < len(s.Questions) {
		q := s.Questions[s.CurrentIndex]
		resp.Question = &q
		if s.Mode == models.ModePractice {
			resp.Answered = s.Submitted[s.CurrentIndex]
			if resp.Answered {
				resp.Selected = s.Answers[s.CurrentIndex]
			} else {
				resp.Selected = s.Pending
			}
		} else {
			resp.Selected = s.Answers[s.CurrentIndex]
			resp.Answered = resp.Selected != ""
		}
	}
	return resp
}
