package domain

import "errors"

var (
	// ErrQuizNotFound is returned when a selected quiz is not in the current list.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizHasNoQuestions is returned when a stored quiz cannot be taken.
	ErrQuizHasNoQuestions = errors.New("quiz has no questions")
	// ErrQuestionNotFound indicates a question index outside the quiz or buffer.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates an option index outside the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNamespaceRequired is returned by collections given an empty namespace.
	ErrNamespaceRequired = errors.New("collection namespace required")
)
