package review

import (
	"fmt"

	"github.com/Nephrolytics-ai/study-notes/pkg/study"
)

// AnswerState holds one selection per question: 0 while unanswered, otherwise
// the 1-indexed option position.
type AnswerState struct {
	selections []int
}

func NewAnswerState(questions int) AnswerState {
	if questions < 0 {
		questions = 0
	}
	return AnswerState{selections: make([]int, questions)}
}

// Select records option for question (both 0-based question index and
// 1-indexed option). Option 0 clears the selection.
func (a *AnswerState) Select(question int, option int) error {
	if question < 0 || question >= len(a.selections) {
		return fmt.Errorf("question %d out of range", question+1)
	}
	if option < 0 || option > study.OptionsPerQuestion {
		return fmt.Errorf("question %d: option %d out of range", question+1, option)
	}
	a.selections[question] = option
	return nil
}

func (a AnswerState) Selected(question int) int {
	if question < 0 || question >= len(a.selections) {
		return 0
	}
	return a.selections[question]
}

func (a AnswerState) Len() int {
	return len(a.selections)
}

func (a *AnswerState) Reset() {
	for i := range a.selections {
		a.selections[i] = 0
	}
}

func (a AnswerState) Grade(quiz study.Quiz) []study.Outcome {
	return quiz.Grade(a.selections)
}
