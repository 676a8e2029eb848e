package app

import "errors"

var (
	// ErrNotReady is returned when a data operation runs before identity resolution.
	ErrNotReady = errors.New("session not ready")
	// ErrBootstrapMisconfigured is the fatal error for a bootstrapper without an identity provider.
	ErrBootstrapMisconfigured = errors.New("identity provider not configured")
	// ErrNotTaking is returned by taking commands while no quiz is being taken.
	ErrNotTaking = errors.New("no quiz in progress")
	// ErrNotAuthoring is returned by authoring commands while the form is closed.
	ErrNotAuthoring = errors.New("authoring form is not open")
	// ErrAnswerLocked is returned when the current question was already answered.
	ErrAnswerLocked = errors.New("question already answered")
	// ErrCannotAdvance is returned when advancing past an unanswered question.
	ErrCannotAdvance = errors.New("answer the current question first")
	// ErrNotFinished is returned by Retake before the results are shown.
	ErrNotFinished = errors.New("quiz not finished")
	// ErrSaveInFlight is returned when a save is requested while one is running.
	ErrSaveInFlight = errors.New("save already in progress")
	// ErrInvalidQuiz is wrapped by every ValidationError.
	ErrInvalidQuiz = errors.New("quiz is incomplete")
	// ErrUnknownCommand is returned for command types the runtime does not handle.
	ErrUnknownCommand = errors.New("unsupported command")
)
