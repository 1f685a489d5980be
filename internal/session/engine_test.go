package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skillforge/engine/internal/bank"
	"github.com/skillforge/engine/internal/models"
)

// fakeProgress satisfies ProgressRecorder in memory.
type fakeProgress struct {
	xp       int
	lives    int
	activity int
}

func (f *fakeProgress) AwardXP(amount int) error { f.xp += amount; return nil }

func (f *fakeProgress) LoseLife() (int, error) {
	if f.lives > 0 {
		f.lives--
	}
	return f.lives, nil
}

func (f *fakeProgress) MarkActivity() error { f.activity++; return nil }

func (f *fakeProgress) Lives() int { return f.lives }

func testBank(t *testing.T, topic string, n int) *bank.Bank {
	t.Helper()

	data := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			data += ","
		}
		data += fmt.Sprintf(`{
			"Topic": %q,
			"Question_Text": "question %d",
			"choice_1": "a", "choice_2": "b", "choice_3": "c", "choice_4": "d",
			"answer_key": %d,
			"Solution": "solution %d"
		}`, topic, i, i%4+1, i)
	}
	data += "]"

	b, err := bank.Parse([]byte(data))
	if err != nil {
		t.Fatalf("build bank: %v", err)
	}
	return b
}

func newTestEngine(t *testing.T, b *bank.Bank, p ProgressRecorder) *Engine {
	t.Helper()
	// A long game-over delay keeps the deferred transition out of the
	// way unless a test exercises it explicitly.
	return NewEngine(b, p, time.Hour, time.Hour)
}

func wrongKey(correct models.ChoiceKey) models.ChoiceKey {
	for key := range models.ValidChoiceKeys {
		if key != correct {
			return key
		}
	}
	return correct
}

func isInvalidState(err error) bool {
	var stateErr *models.InvalidStateError
	return errors.As(err, &stateErr)
}

// answerCurrent selects and submits for the practice session's current
// question, choosing the correct key or not.
func answerCurrent(t *testing.T, e *Engine, correctly bool) *models.AnswerFeedback {
	t.Helper()

	resp, err := e.Current()
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	key := resp.Question.CorrectKey
	if !correctly {
		key = wrongKey(key)
	}
	if _, err := e.SelectChoice(key); err != nil {
		t.Fatalf("SelectChoice(%s) error: %v", key, err)
	}
	feedback, err := e.SubmitAnswer()
	if err != nil {
		t.Fatalf("SubmitAnswer() error: %v", err)
	}
	return feedback
}

// ── Start ───────────────────────────────────────────────

func TestStartProducesFullPermutation(t *testing.T) {
	b := testBank(t, "Arrays", 10)
	e := newTestEngine(t, b, &fakeProgress{lives: 5})

	resp, err := e.Start("Arrays", models.ModeTest)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if resp.TotalQuestions != 10 {
		t.Fatalf("TotalQuestions = %d, want 10", resp.TotalQuestions)
	}

	// Walk the whole session and collect question IDs.
	seen := make(map[int]int)
	for i := 0; i < 10; i++ {
		cur, err := e.Current()
		if err != nil {
			t.Fatalf("Current() at %d error: %v", i, err)
		}
		seen[cur.Question.ID]++
		if i < 9 {
			if _, err := e.Advance(); err != nil {
				t.Fatalf("Advance() at %d error: %v", i, err)
			}
		}
	}

	if len(seen) != 10 {
		t.Errorf("session served %d distinct questions, want 10", len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("question %d served %d times, want exactly once", id, count)
		}
	}
}

func TestStartUnknownTopicFails(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 3), &fakeProgress{lives: 5})

	if _, err := e.Start("Pointers", models.ModePractice); err == nil {
		t.Error("Start() with unknown topic = nil error, want failure")
	}
	if _, err := e.Start("Arrays", models.SessionMode("exam")); err == nil {
		t.Error("Start() with invalid mode = nil error, want failure")
	}
}

func TestStartPracticeRequiresLives(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 3), &fakeProgress{lives: 0})

	_, err := e.Start("Arrays", models.ModePractice)
	if !isInvalidState(err) {
		t.Errorf("Start() with 0 lives: err = %v, want InvalidStateError", err)
	}
}

func TestStartTestModeIgnoresLives(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 3), &fakeProgress{lives: 0})

	resp, err := e.Start("Arrays", models.ModeTest)
	if err != nil {
		t.Fatalf("Start() test mode with 0 lives error: %v", err)
	}
	if resp.LivesRemaining != nil {
		t.Errorf("test session exposes lives = %d, want none", *resp.LivesRemaining)
	}
}

func TestStartReplacesPreviousSession(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 3), &fakeProgress{lives: 5})

	first, err := e.Start("Arrays", models.ModePractice)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	second, err := e.Start("Arrays", models.ModeTest)
	if err != nil {
		t.Fatalf("restart error: %v", err)
	}
	if first.ID == second.ID {
		t.Error("restart reused the previous session ID")
	}

	cur, err := e.Current()
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if cur.ID != second.ID || cur.Mode != models.ModeTest {
		t.Errorf("Current() = %s/%s, want the new test session", cur.ID, cur.Mode)
	}
}

// ── Practice mode ───────────────────────────────────────

func TestPracticeFlowScenario(t *testing.T) {
	// Topic with 3 questions; correct, incorrect, correct; one life
	// lost, so the flawless bonus is denied.
	fake := &fakeProgress{lives: 5}
	e := newTestEngine(t, testBank(t, "Arrays", 3), fake)

	if _, err := e.Start("Arrays", models.ModePractice); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	fb := answerCurrent(t, e, true)
	if !fb.Correct || fb.XPAwarded != XPPerCorrect {
		t.Errorf("Q1 feedback = correct:%v xp:%d, want correct with %d XP", fb.Correct, fb.XPAwarded, XPPerCorrect)
	}
	if fb.Solution == "" {
		t.Error("Q1 feedback missing solution text")
	}
	if _, err := e.Advance(); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}

	fb = answerCurrent(t, e, false)
	if fb.Correct || fb.XPAwarded != 0 {
		t.Errorf("Q2 feedback = correct:%v xp:%d, want incorrect with 0 XP", fb.Correct, fb.XPAwarded)
	}
	if fb.LivesRemaining == nil || *fb.LivesRemaining != 4 {
		t.Errorf("Q2 lives remaining = %v, want 4", fb.LivesRemaining)
	}
	if _, err := e.Advance(); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}

	answerCurrent(t, e, true)
	resp, err := e.Advance() // past the final question
	if err != nil {
		t.Fatalf("final Advance() error: %v", err)
	}
	if resp.State != models.StateCompleted {
		t.Fatalf("state after final advance = %s, want completed", resp.State)
	}

	summary, err := e.Summary()
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	want := models.Summary{Total: 3, Correct: 2, Wrong: 1, Percentage: 67, XPEarned: 20, BonusXP: 0, Message: "Not Bad"}
	if *summary != want {
		t.Errorf("Summary() = %+v, want %+v", *summary, want)
	}

	if fake.xp != 20 {
		t.Errorf("progress XP = %d, want 20 (no bonus after a lost life)", fake.xp)
	}
	if fake.lives != 4 {
		t.Errorf("progress lives = %d, want 4", fake.lives)
	}
	if fake.activity != 2 {
		t.Errorf("activity marks = %d, want 2 (one per correct answer)", fake.activity)
	}
}

func TestPracticeFlawlessBonus(t *testing.T) {
	fake := &fakeProgress{lives: 5}
	e := newTestEngine(t, testBank(t, "Arrays", 3), fake)
	e.Start("Arrays", models.ModePractice)

	for i := 0; i < 3; i++ {
		answerCurrent(t, e, true)
		if _, err := e.Advance(); err != nil {
			t.Fatalf("Advance() error: %v", err)
		}
	}

	summary, err := e.Summary()
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if summary.BonusXP != FlawlessBonusXP {
		t.Errorf("BonusXP = %d, want %d", summary.BonusXP, FlawlessBonusXP)
	}
	if summary.Percentage != 100 || summary.Message != "Excellent!" {
		t.Errorf("summary = %d%% %q, want 100%% Excellent!", summary.Percentage, summary.Message)
	}

	if fake.xp != 3*XPPerCorrect+FlawlessBonusXP {
		t.Errorf("progress XP = %d, want %d", fake.xp, 3*XPPerCorrect+FlawlessBonusXP)
	}
}

func TestPracticeXPAppliedExactlyOncePerQuestion(t *testing.T) {
	fake := &fakeProgress{lives: 5}
	e := newTestEngine(t, testBank(t, "Arrays", 2), fake)
	e.Start("Arrays", models.ModePractice)

	answerCurrent(t, e, true)
	if fake.xp != XPPerCorrect {
		t.Fatalf("XP after submit = %d, want %d", fake.xp, XPPerCorrect)
	}

	// Re-submitting and re-selecting the answered question must not
	// re-trigger the XP effect.
	if _, err := e.SubmitAnswer(); !isInvalidState(err) {
		t.Errorf("second SubmitAnswer(): err = %v, want InvalidStateError", err)
	}
	if _, err := e.SelectChoice(models.Choice1); !isInvalidState(err) {
		t.Errorf("SelectChoice() after answer: err = %v, want InvalidStateError", err)
	}
	if fake.xp != XPPerCorrect {
		t.Errorf("XP after duplicate submit = %d, want %d", fake.xp, XPPerCorrect)
	}

	// Re-reading never re-triggers either.
	e.Current()
	e.Current()
	if fake.xp != XPPerCorrect {
		t.Errorf("XP after re-reads = %d, want %d", fake.xp, XPPerCorrect)
	}
}

func TestPracticeSubmitWithoutSelection(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 2), &fakeProgress{lives: 5})
	e.Start("Arrays", models.ModePractice)

	if _, err := e.SubmitAnswer(); !isInvalidState(err) {
		t.Errorf("SubmitAnswer() without selection: err = %v, want InvalidStateError", err)
	}
}

func TestPracticeAdvanceRequiresAnswer(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 2), &fakeProgress{lives: 5})
	e.Start("Arrays", models.ModePractice)

	if _, err := e.Advance(); !isInvalidState(err) {
		t.Errorf("Advance() before answering: err = %v, want InvalidStateError", err)
	}
}

func TestPracticeRestageBeforeSubmit(t *testing.T) {
	fake := &fakeProgress{lives: 5}
	e := newTestEngine(t, testBank(t, "Arrays", 1), fake)
	e.Start("Arrays", models.ModePractice)

	cur, _ := e.Current()
	correct := cur.Question.CorrectKey

	// Stage a wrong choice, change mind, then submit the correct one.
	if _, err := e.SelectChoice(wrongKey(correct)); err != nil {
		t.Fatalf("SelectChoice() error: %v", err)
	}
	if _, err := e.SelectChoice(correct); err != nil {
		t.Fatalf("restage error: %v", err)
	}

	fb, err := e.SubmitAnswer()
	if err != nil {
		t.Fatalf("SubmitAnswer() error: %v", err)
	}
	if !fb.Correct {
		t.Error("restaged correct choice scored as incorrect")
	}
	if fake.lives != 5 {
		t.Errorf("staging a wrong choice cost a life: lives = %d, want 5", fake.lives)
	}
}

func TestLastLifeLocksSessionAfterFeedback(t *testing.T) {
	fake := &fakeProgress{lives: 1}
	e := NewEngine(testBank(t, "Arrays", 3), fake, 20*time.Millisecond, time.Hour)
	e.Start("Arrays", models.ModePractice)

	fb := answerCurrent(t, e, false)

	// The answer feedback must be delivered with the lock: solution
	// text first, terminal state after.
	if !fb.GameOver {
		t.Error("feedback.GameOver = false after last life lost")
	}
	if fb.Solution == "" {
		t.Error("no solution text delivered with the locking answer")
	}
	if fb.LivesRemaining == nil || *fb.LivesRemaining != 0 {
		t.Errorf("lives remaining = %v, want 0", fb.LivesRemaining)
	}

	xpBefore := fake.xp
	if _, err := e.SelectChoice(models.Choice1); !isInvalidState(err) {
		t.Errorf("SelectChoice() after lock: err = %v, want InvalidStateError", err)
	}
	if _, err := e.SubmitAnswer(); !isInvalidState(err) {
		t.Errorf("SubmitAnswer() after lock: err = %v, want InvalidStateError", err)
	}
	if _, err := e.Advance(); !isInvalidState(err) {
		t.Errorf("Advance() after lock: err = %v, want InvalidStateError", err)
	}
	if fake.xp != xpBefore || fake.lives != 0 {
		t.Errorf("locked session mutated progress: xp %d->%d lives %d", xpBefore, fake.xp, fake.lives)
	}

	// The deferred terminal transition lands after the delay.
	deadline := time.Now().Add(time.Second)
	for {
		cur, err := e.Current()
		if err != nil {
			t.Fatalf("Current() error: %v", err)
		}
		if cur.State == models.StateAborted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session state = %s, want aborted after game-over delay", cur.State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := e.Summary(); !isInvalidState(err) {
		t.Errorf("Summary() on game-over session: err = %v, want InvalidStateError", err)
	}
}

func TestNewSessionCancelsPendingGameOver(t *testing.T) {
	fake := &fakeProgress{lives: 1}
	e := NewEngine(testBank(t, "Arrays", 3), fake, 30*time.Millisecond, time.Hour)
	e.Start("Arrays", models.ModePractice)

	answerCurrent(t, e, false) // lives hit 0, game-over pending

	fake.lives = 5 // refill, then immediately start over
	resp, err := e.Start("Arrays", models.ModePractice)
	if err != nil {
		t.Fatalf("restart error: %v", err)
	}

	time.Sleep(80 * time.Millisecond) // well past the old delay

	cur, err := e.Current()
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if cur.ID != resp.ID || cur.State != models.StateActive {
		t.Errorf("stale game-over reached the new session: id=%s state=%s", cur.ID, cur.State)
	}
}

// ── Test mode ───────────────────────────────────────────

func TestTestModeFlowScenario(t *testing.T) {
	// Q1 correct, Q2 unanswered, Q3 correct; lives must be untouched.
	fake := &fakeProgress{lives: 3}
	e := newTestEngine(t, testBank(t, "Arrays", 3), fake)
	e.Start("Arrays", models.ModeTest)

	cur, _ := e.Current()
	if _, err := e.SelectChoice(cur.Question.CorrectKey); err != nil {
		t.Fatalf("SelectChoice() error: %v", err)
	}
	if _, err := e.Advance(); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}

	// Q2 skipped entirely
	if _, err := e.Advance(); err != nil {
		t.Fatalf("Advance() over unanswered question error: %v", err)
	}

	cur, _ = e.Current()
	if _, err := e.SelectChoice(cur.Question.CorrectKey); err != nil {
		t.Fatalf("SelectChoice() error: %v", err)
	}

	summary, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
	if summary.Total != 3 || summary.Correct != 2 || summary.Percentage != 67 || summary.XPEarned != 20 {
		t.Errorf("Finish() summary = %+v, want total:3 correct:2 67%% 20xp", summary)
	}

	if fake.lives != 3 {
		t.Errorf("test mode consumed lives: %d, want 3", fake.lives)
	}
	if fake.xp != 20 {
		t.Errorf("progress XP = %d, want 20", fake.xp)
	}
	if fake.activity != 1 {
		t.Errorf("activity marks = %d, want exactly 1 for the whole test", fake.activity)
	}
}

func TestTestModeOverwritesSelection(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 1), &fakeProgress{lives: 5})
	e.Start("Arrays", models.ModeTest)

	cur, _ := e.Current()
	correct := cur.Question.CorrectKey

	// Change the recorded answer several times; only the last counts.
	e.SelectChoice(wrongKey(correct))
	e.SelectChoice(correct)
	e.SelectChoice(wrongKey(correct))
	if _, err := e.SelectChoice(correct); err != nil {
		t.Fatalf("SelectChoice() error: %v", err)
	}

	summary, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
	if summary.Correct != 1 {
		t.Errorf("Correct = %d, want 1 (last selection wins)", summary.Correct)
	}
}

func TestTestModeRejectsPracticeOperations(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 2), &fakeProgress{lives: 5})

	e.Start("Arrays", models.ModeTest)
	if _, err := e.SubmitAnswer(); !isInvalidState(err) {
		t.Errorf("SubmitAnswer() in test mode: err = %v, want InvalidStateError", err)
	}

	e.Start("Arrays", models.ModePractice)
	if _, err := e.Finish(); !isInvalidState(err) {
		t.Errorf("Finish() in practice mode: err = %v, want InvalidStateError", err)
	}
}

func TestTestModeAdvancePastLastFails(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 1), &fakeProgress{lives: 5})
	e.Start("Arrays", models.ModeTest)

	if _, err := e.Advance(); !isInvalidState(err) {
		t.Errorf("Advance() at last test question: err = %v, want InvalidStateError (finish instead)", err)
	}
}

func TestTestModeTimerTicks(t *testing.T) {
	e := NewEngine(testBank(t, "Arrays", 2), &fakeProgress{lives: 5}, time.Hour, 10*time.Millisecond)
	e.Start("Arrays", models.ModeTest)

	deadline := time.Now().Add(time.Second)
	for {
		cur, err := e.Current()
		if err != nil {
			t.Fatalf("Current() error: %v", err)
		}
		if cur.ElapsedSeconds >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ElapsedSeconds = %d, ticker never advanced", cur.ElapsedSeconds)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ── Abort ───────────────────────────────────────────────

func TestAbortKeepsCommittedEffects(t *testing.T) {
	fake := &fakeProgress{lives: 5}
	e := newTestEngine(t, testBank(t, "Arrays", 3), fake)
	e.Start("Arrays", models.ModePractice)

	answerCurrent(t, e, true) // 10 XP committed
	e.Advance()
	answerCurrent(t, e, false) // one life committed

	resp, err := e.Abort()
	if err != nil {
		t.Fatalf("Abort() error: %v", err)
	}
	if resp.State != models.StateAborted {
		t.Errorf("state after abort = %s, want aborted", resp.State)
	}

	// Per-answer effects are not transactional per session: they stay.
	if fake.xp != XPPerCorrect {
		t.Errorf("XP after abort = %d, want %d", fake.xp, XPPerCorrect)
	}
	if fake.lives != 4 {
		t.Errorf("lives after abort = %d, want 4", fake.lives)
	}

	if _, err := e.Abort(); !isInvalidState(err) {
		t.Errorf("second Abort(): err = %v, want InvalidStateError", err)
	}
	if _, err := e.Summary(); !isInvalidState(err) {
		t.Errorf("Summary() on aborted session: err = %v, want InvalidStateError", err)
	}
}

func TestOperationsWithoutSession(t *testing.T) {
	e := newTestEngine(t, testBank(t, "Arrays", 1), &fakeProgress{lives: 5})

	if _, err := e.Current(); !isInvalidState(err) {
		t.Errorf("Current() without session: err = %v, want InvalidStateError", err)
	}
	if _, err := e.SelectChoice(models.Choice1); !isInvalidState(err) {
		t.Errorf("SelectChoice() without session: err = %v, want InvalidStateError", err)
	}
	if _, err := e.SubmitAnswer(); !isInvalidState(err) {
		t.Errorf("SubmitAnswer() without session: err = %v, want InvalidStateError", err)
	}
	if _, err := e.Advance(); !isInvalidState(err) {
		t.Errorf("Advance() without session: err = %v, want InvalidStateError", err)
	}
	if _, err := e.Summary(); !isInvalidState(err) {
		t.Errorf("Summary() without session: err = %v, want InvalidStateError", err)
	}
}
