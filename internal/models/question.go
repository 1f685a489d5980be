package models

import "fmt"

// ChoiceKey is the canonical identifier of an answer choice. Raw question data
// may encode the correct answer as a bare 1-based index or as an already-prefixed
// key; both resolve to this key space at load time.
type ChoiceKey string

const (
	Choice1 ChoiceKey = "choice_1"
	Choice2 ChoiceKey = "choice_2"
	Choice3 ChoiceKey = "choice_3"
	Choice4 ChoiceKey = "choice_4"
)

// ChoicesPerQuestion is fixed by the question format.
const ChoicesPerQuestion = 4

var ValidChoiceKeys = map[ChoiceKey]bool{
	Choice1: true,
	Choice2: true,
	Choice3: true,
	Choice4: true,
}

// ChoiceKeyForIndex maps a 1-based index to its canonical key.
func ChoiceKeyForIndex(i int) (ChoiceKey, error) {
	if i < 1 || i > ChoicesPerQuestion {
		return "", fmt.Errorf("choice index %d out of range 1..%d", i, ChoicesPerQuestion)
	}
	return ChoiceKey(fmt.Sprintf("choice_%d", i)), nil
}

type Choice struct {
	Key  ChoiceKey `json:"key"`
	Text string    `json:"text"`
}

// Question is immutable after load. CorrectKey and Solution are never
// serialized to clients; they surface only through answer feedback.
type Question struct {
	ID         int       `json:"id"`
	Topic      string    `json:"topic"`
	Text       string    `json:"text"`
	Choices    []Choice  `json:"choices"`
	CorrectKey ChoiceKey `json:"-"`
	Solution   string    `json:"-"`
}

type TopicInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type TopicListResponse struct {
	Topics []TopicInfo `json:"topics"`
	Total  int         `json:"total"`
}
