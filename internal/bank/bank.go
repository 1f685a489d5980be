package bank

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/skillforge/engine/internal/models"
)

// rawQuestion mirrors one record of the question source file.
type rawQuestion struct {
	Topic        string          `json:"Topic"`
	QuestionText string          `json:"Question_Text"`
	Choice1      string          `json:"choice_1"`
	Choice2      string          `json:"choice_2"`
	Choice3      string          `json:"choice_3"`
	Choice4      string          `json:"choice_4"`
	AnswerKey    json.RawMessage `json:"answer_key"`
	Solution     string          `json:"Solution"`
}

// Bank holds all loaded questions. It is immutable after Load; derived
// views (topics, counts, filters) are recomputed from the loaded set.
type Bank struct {
	questions []models.Question
	topics    []string // first-seen order
	counts    map[string]int
}

// Load reads and parses the question source. Any failure is a
// models.LoadError: the caller must treat it as fatal, since an engine
// without questions cannot start sessions.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.LoadError{Source: path, Err: err}
	}

	b, err := Parse(data)
	if err != nil {
		return nil, &models.LoadError{Source: path, Err: err}
	}
	return b, nil
}

// Parse builds a Bank from a JSON array of raw records, normalizing each
// answer key at load time so later comparisons are pure key equality.
func Parse(data []byte) (*Bank, error) {
	var raw []rawQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse question records: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("question source contains no records")
	}

	b := &Bank{counts: make(map[string]int)}
	for i, r := range raw {
		q, err := buildQuestion(i, r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		if _, seen := b.counts[q.Topic]; !seen {
			b.topics = append(b.topics, q.Topic)
		}
		b.counts[q.Topic]++
		b.questions = append(b.questions, q)
	}
	return b, nil
}

func buildQuestion(id int, r rawQuestion) (models.Question, error) {
	if strings.TrimSpace(r.Topic) == "" {
		return models.Question{}, fmt.Errorf("missing topic")
	}
	if strings.TrimSpace(r.QuestionText) == "" {
		return models.Question{}, fmt.Errorf("missing question text")
	}

	choices := []models.Choice{
		{Key: models.Choice1, Text: r.Choice1},
		{Key: models.Choice2, Text: r.Choice2},
		{Key: models.Choice3, Text: r.Choice3},
		{Key: models.Choice4, Text: r.Choice4},
	}
	for _, c := range choices {
		if strings.TrimSpace(c.Text) == "" {
			return models.Question{}, fmt.Errorf("missing text for %s", c.Key)
		}
	}

	key, err := normalizeAnswerKey(r.AnswerKey)
	if err != nil {
		return models.Question{}, err
	}

	return models.Question{
		ID:         id,
		Topic:      r.Topic,
		Text:       r.QuestionText,
		Choices:    choices,
		CorrectKey: key,
		Solution:   r.Solution,
	}, nil
}

// normalizeAnswerKey resolves the source's answer indicator, which is
// either a 1-based integer or a string that may already carry the
// choice_ prefix, into the canonical key space.
func normalizeAnswerKey(raw json.RawMessage) (models.ChoiceKey, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("missing answer_key")
	}

	var idx int
	if err := json.Unmarshal(raw, &idx); err == nil {
		return models.ChoiceKeyForIndex(idx)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("answer_key is neither an integer nor a string: %s", raw)
	}

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "choice_") {
		// Bare index encoded as a string, e.g. "3"
		i, err := strconv.Atoi(s)
		if err != nil {
			return "", fmt.Errorf("malformed answer_key %q", s)
		}
		return models.ChoiceKeyForIndex(i)
	}

	key := models.ChoiceKey(s)
	if !models.ValidChoiceKeys[key] {
		return "", fmt.Errorf("answer_key %q is not one of choice_1..choice_%d", s, models.ChoicesPerQuestion)
	}
	return key, nil
}

// Len returns the number of loaded questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Topics returns topic names in first-seen source order.
func (b *Bank) Topics() []string {
	out := make([]string, len(b.topics))
	copy(out, b.topics)
	return out
}

// CountByTopic returns the number of questions per topic.
func (b *Bank) CountByTopic() map[string]int {
	out := make(map[string]int, len(b.counts))
	for topic, n := range b.counts {
		out[topic] = n
	}
	return out
}

// FilterByTopic returns all questions for the topic in stable source order.
func (b *Bank) FilterByTopic(topic string) []models.Question {
	var out []models.Question
	for _, q := range b.questions {
		if q.Topic == topic {
			out = append(out, q)
		}
	}
	return out
}
