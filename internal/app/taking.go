package app

import "quizboard/internal/domain"

// Phase is the position of a taking session within the current question.
type Phase int

const (
	PhaseAnswering Phase = iota // waiting for an answer to the current question
	PhaseRationale              // answer recorded, feedback and rationale shown
	PhaseResults                // all questions answered, score shown
)

func (p Phase) String() string {
	switch p {
	case PhaseAnswering:
		return "answering"
	case PhaseRationale:
		return "rationale"
	case PhaseResults:
		return "results"
	default:
		return "unknown"
	}
}

// Feedback texts shown after an answer.
const (
	FeedbackCorrect   = "Correct!"
	FeedbackIncorrect = "Incorrect."
)

// AnswerRecord is the recorded answer for one question.
type AnswerRecord struct {
	OptionIndex int
	Selected    domain.AnswerOption
	IsCorrect   bool
}

// OptionState is how an answer option is highlighted.
type OptionState string

const (
	OptionNeutral   OptionState = "neutral"
	OptionSelected  OptionState = "selected"
	OptionCorrect   OptionState = "correct"
	OptionIncorrect OptionState = "incorrect"
)

// TakingSession is one pass through a quiz. It holds its own copy of the quiz,
// so later list snapshots never change the questions being answered.
type TakingSession struct {
	quiz     domain.Quiz
	index    int
	phase    Phase
	answers  map[int]AnswerRecord
	feedback string
}

// NewTakingSession starts quiz at its first question with no answers.
func NewTakingSession(quiz domain.Quiz) (*TakingSession, error) {
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrQuizHasNoQuestions
	}
	s := &TakingSession{quiz: quiz.Clone()}
	s.reset()
	return s, nil
}

func (s *TakingSession) reset() {
	s.index = 0
	s.phase = PhaseAnswering
	s.answers = make(map[int]AnswerRecord)
	s.feedback = ""
}

func (s *TakingSession) Quiz() domain.Quiz { return s.quiz }
func (s *TakingSession) Index() int        { return s.index }
func (s *TakingSession) Phase() Phase      { return s.phase }
func (s *TakingSession) Feedback() string  { return s.feedback }
func (s *TakingSession) Total() int        { return len(s.quiz.Questions) }

// Current returns the question under the cursor.
func (s *TakingSession) Current() domain.Question {
	return s.quiz.Questions[s.index]
}

// Answer returns the record for question index, if any.
func (s *TakingSession) Answer(index int) (AnswerRecord, bool) {
	record, ok := s.answers[index]
	return record, ok
}

// SelectAnswer records option for the current question and shows its rationale.
// A question can be answered once; later calls leave the record untouched.
func (s *TakingSession) SelectAnswer(option int) error {
	switch s.phase {
	case PhaseRationale:
		return ErrAnswerLocked
	case PhaseResults:
		return ErrNotTaking
	}
	if _, answered := s.answers[s.index]; answered {
		return ErrAnswerLocked
	}
	question := s.Current()
	if option < 0 || option >= len(question.AnswerOptions) {
		return domain.ErrOptionNotFound
	}

	selected := question.AnswerOptions[option]
	s.answers[s.index] = AnswerRecord{
		OptionIndex: option,
		Selected:    selected,
		IsCorrect:   selected.IsCorrect,
	}
	if selected.IsCorrect {
		s.feedback = FeedbackCorrect
	} else {
		s.feedback = FeedbackIncorrect
	}
	s.phase = PhaseRationale
	return nil
}

// CanAdvance reports whether the next-question control is enabled: the current
// question has a recorded answer or its rationale is showing.
func (s *TakingSession) CanAdvance() bool {
	if s.phase == PhaseResults {
		return false
	}
	_, answered := s.answers[s.index]
	return answered || s.phase == PhaseRationale
}

// Advance moves to the next question, or to the results after the last one.
func (s *TakingSession) Advance() error {
	if !s.CanAdvance() {
		return ErrCannotAdvance
	}
	if s.index == len(s.quiz.Questions)-1 {
		s.phase = PhaseResults
		return nil
	}
	s.index++
	s.phase = PhaseAnswering
	s.feedback = ""
	return nil
}

// Retake restarts the same quiz content from the first question.
func (s *TakingSession) Retake() error {
	if s.phase != PhaseResults {
		return ErrNotFinished
	}
	s.reset()
	return nil
}

// Score counts correct answers.
func (s *TakingSession) Score() int {
	score := 0
	for _, record := range s.answers {
		if record.IsCorrect {
			score++
		}
	}
	return score
}

// OptionStates returns the highlight of every option of the current question.
// Before the rationale only a selected option stands out. After it, the picked
// option shows its own correctness and the correct option is always marked.
func (s *TakingSession) OptionStates() []OptionState {
	question := s.Current()
	record, answered := s.answers[s.index]
	states := make([]OptionState, len(question.AnswerOptions))
	for i, opt := range question.AnswerOptions {
		state := OptionNeutral
		switch {
		case s.phase != PhaseRationale:
			if answered && record.OptionIndex == i {
				state = OptionSelected
			}
		case opt.IsCorrect:
			state = OptionCorrect
		case answered && record.OptionIndex == i:
			state = OptionIncorrect
		}
		states[i] = state
	}
	return states
}

// Rationale returns the explanation shown after answering the current question:
// the picked option's rationale, else the correct option's.
func (s *TakingSession) Rationale() string {
	if s.phase != PhaseRationale {
		return ""
	}
	record := s.answers[s.index]
	if record.Selected.Rationale != "" {
		return record.Selected.Rationale
	}
	return correctRationale(s.Current())
}

func correctRationale(question domain.Question) string {
	if i := question.CorrectIndex(); i >= 0 {
		return question.AnswerOptions[i].Rationale
	}
	return ""
}
