package study

import "fmt"

type OutcomeStatus string

const (
	OutcomeCorrect    OutcomeStatus = "correct"
	OutcomeIncorrect  OutcomeStatus = "incorrect"
	OutcomeUnanswered OutcomeStatus = "unanswered"
)

// Outcome is the grading result for one question.
type Outcome struct {
	Index         int
	Status        OutcomeStatus
	Selected      int
	CorrectAnswer int
	CorrectOption string
}

func (o Outcome) Message() string {
	switch o.Status {
	case OutcomeCorrect:
		return fmt.Sprintf("Question %d: Correct! The answer is %s.", o.Index+1, o.CorrectOption)
	case OutcomeIncorrect:
		return fmt.Sprintf("Question %d: Incorrect. The correct answer is %s.", o.Index+1, o.CorrectOption)
	default:
		return fmt.Sprintf("Question %d: No option selected.", o.Index+1)
	}
}

// Grade compares selections (1-indexed option positions, 0 for unanswered) to
// each question's CorrectAnswer. Missing or out-of-range selections count as
// unanswered.
func (q Quiz) Grade(selected []int) []Outcome {
	outcomes := make([]Outcome, len(q.Questions))
	for i, question := range q.Questions {
		outcome := Outcome{
			Index:         i,
			Status:        OutcomeUnanswered,
			CorrectAnswer: question.CorrectAnswer,
			CorrectOption: question.CorrectOption(),
		}
		if i < len(selected) && selected[i] >= 1 && selected[i] <= len(question.Options) {
			outcome.Selected = selected[i]
			if selected[i] == question.CorrectAnswer {
				outcome.Status = OutcomeCorrect
			} else {
				outcome.Status = OutcomeIncorrect
			}
		}
		outcomes[i] = outcome
	}
	return outcomes
}
