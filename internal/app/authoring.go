package app

import (
	"fmt"
	"strings"
	"time"

	"quizboard/internal/domain"
)

// NoCorrectOption marks a question draft whose correct option is not chosen yet.
const NoCorrectOption = -1

// OptionDraft is an editable answer option.
type OptionDraft struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale"`
}

// QuestionDraft is an editable question. The correct answer is an index into
// Options, so at most one option can ever be correct.
type QuestionDraft struct {
	Question string                                 `json:"question"`
	Hint     string                                 `json:"hint"`
	Options  [domain.OptionsPerQuestion]OptionDraft `json:"options"`
	Correct  int                                    `json:"correct"`
}

func blankQuestion() QuestionDraft {
	return QuestionDraft{Correct: NoCorrectOption}
}

// AuthoringBuffer holds a quiz being written. Questions can be appended but
// never removed.
type AuthoringBuffer struct {
	Title     string
	Questions []QuestionDraft
}

// NewAuthoringBuffer returns a buffer with one blank question.
func NewAuthoringBuffer() *AuthoringBuffer {
	return &AuthoringBuffer{Questions: []QuestionDraft{blankQuestion()}}
}

func (b *AuthoringBuffer) SetTitle(title string) {
	b.Title = title
}

// AddQuestion appends a blank question and returns its index.
func (b *AuthoringBuffer) AddQuestion() int {
	b.Questions = append(b.Questions, blankQuestion())
	return len(b.Questions) - 1
}

func (b *AuthoringBuffer) SetQuestionText(q int, text string) error {
	draft, err := b.question(q)
	if err != nil {
		return err
	}
	draft.Question = text
	return nil
}

func (b *AuthoringBuffer) SetHint(q int, text string) error {
	draft, err := b.question(q)
	if err != nil {
		return err
	}
	draft.Hint = text
	return nil
}

func (b *AuthoringBuffer) SetOptionText(q, o int, text string) error {
	opt, err := b.option(q, o)
	if err != nil {
		return err
	}
	opt.Text = text
	return nil
}

func (b *AuthoringBuffer) SetOptionRationale(q, o int, text string) error {
	opt, err := b.option(q, o)
	if err != nil {
		return err
	}
	opt.Rationale = text
	return nil
}

// SetCorrectOption makes option o the only correct option of question q.
func (b *AuthoringBuffer) SetCorrectOption(q, o int) error {
	if _, err := b.option(q, o); err != nil {
		return err
	}
	b.Questions[q].Correct = o
	return nil
}

func (b *AuthoringBuffer) question(q int) (*QuestionDraft, error) {
	if q < 0 || q >= len(b.Questions) {
		return nil, domain.ErrQuestionNotFound
	}
	return &b.Questions[q], nil
}

func (b *AuthoringBuffer) option(q, o int) (*OptionDraft, error) {
	draft, err := b.question(q)
	if err != nil {
		return nil, err
	}
	if o < 0 || o >= len(draft.Options) {
		return nil, domain.ErrOptionNotFound
	}
	return &draft.Options[o], nil
}

// ValidationError lists every problem that blocks a save.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidQuiz.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidQuiz }

// Validate checks the buffer can be saved: a title, text for every question
// and option, and a correct option per question. Blank means empty after trimming.
func (b *AuthoringBuffer) Validate() error {
	var problems []string
	if strings.TrimSpace(b.Title) == "" {
		problems = append(problems, "title is required")
	}
	if len(b.Questions) == 0 {
		problems = append(problems, "at least one question is required")
	}
	for i, draft := range b.Questions {
		label := fmt.Sprintf("question %d", i+1)
		if strings.TrimSpace(draft.Question) == "" {
			problems = append(problems, label+": text is required")
		}
		var blank []string
		for o, opt := range draft.Options {
			if strings.TrimSpace(opt.Text) == "" {
				blank = append(blank, fmt.Sprint(o+1))
			}
		}
		if len(blank) > 0 {
			problems = append(problems, fmt.Sprintf("%s: option %s text is required", label, strings.Join(blank, ", ")))
		}
		if draft.Correct < 0 || draft.Correct >= len(draft.Options) {
			problems = append(problems, label+": mark one option as correct")
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Build validates the buffer and returns the quiz document to write.
func (b *AuthoringBuffer) Build(createdBy string, now time.Time) (domain.Quiz, error) {
	if err := b.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	quiz := domain.Quiz{
		Title:     b.Title,
		Questions: make([]domain.Question, 0, len(b.Questions)),
		CreatedAt: now,
		CreatedBy: createdBy,
	}
	for _, draft := range b.Questions {
		question := domain.Question{
			Question:      draft.Question,
			Hint:          draft.Hint,
			AnswerOptions: make([]domain.AnswerOption, 0, len(draft.Options)),
		}
		for o, opt := range draft.Options {
			question.AnswerOptions = append(question.AnswerOptions, domain.AnswerOption{
				Text:      opt.Text,
				IsCorrect: o == draft.Correct,
				Rationale: opt.Rationale,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz, nil
}
