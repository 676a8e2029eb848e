package domain

import "time"

// OptionsPerQuestion is the number of answer options every authored question carries.
const OptionsPerQuestion = 4

// AnswerOption is one possible answer to a question.
type AnswerOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Rationale string `json:"rationale,omitempty"`
}

// Question models a multiple-choice question.
type Question struct {
	Question      string         `json:"question"`
	AnswerOptions []AnswerOption `json:"answerOptions"`
	Hint          string         `json:"hint,omitempty"`
}

// CorrectIndex returns the index of the first option flagged correct, or -1.
func (q Question) CorrectIndex() int {
	for i, opt := range q.AnswerOptions {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// Quiz is a stored quiz document. ID is assigned by the collection on creation.
type Quiz struct {
	ID        string     `json:"id,omitempty"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
}

// Snapshot is one delivery of a collection subscription: either the complete
// current set of quizzes or the error that prevented reading it.
type Snapshot struct {
	Namespace   string
	Quizzes     []Quiz
	Err         error
	DeliveredAt time.Time
}

// CollectionPath returns the document path quizzes are scoped under for an app.
func CollectionPath(appID string) string {
	return "apps/" + appID + "/quizzes"
}

// Clone returns a deep copy so callers can hold quiz content independently of
// the collection it came from.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = question
		out.Questions[i].AnswerOptions = append([]AnswerOption(nil), question.AnswerOptions...)
	}
	return out
}

// CloneQuizzes deep-copies a quiz list, keeping order.
func CloneQuizzes(quizzes []Quiz) []Quiz {
	out := make([]Quiz, len(quizzes))
	for i, quiz := range quizzes {
		out[i] = quiz.Clone()
	}
	return out
}
