package app

import (
	"fmt"
	"time"

	"quizboard/internal/domain"
)

// Mode is the top-level screen of a client. Results are a phase of ModeTaking,
// so a client can never show results and the authoring form together.
type Mode int

const (
	ModeList Mode = iota
	ModeTaking
	ModeAuthoring
)

func (m Mode) String() string {
	switch m {
	case ModeList:
		return "list"
	case ModeTaking:
		return "taking"
	case ModeAuthoring:
		return "authoring"
	default:
		return "unknown"
	}
}

// SaveState tracks authoring writes.
type SaveState int

const (
	SaveIdle SaveState = iota
	SaveInFlight
)

// Runtime is the view state of one client. It is not safe for concurrent use;
// a Client owns it and applies every event on a single goroutine.
type Runtime struct {
	mode      Mode
	list      ListState
	taking    *TakingSession
	authoring *AuthoringBuffer
	saving    map[*AuthoringBuffer]struct{}

	errorText   string
	successText string
	successSeq  uint64
}

func NewRuntime() *Runtime {
	return &Runtime{mode: ModeList, saving: make(map[*AuthoringBuffer]struct{})}
}

func (r *Runtime) Mode() Mode                  { return r.mode }
func (r *Runtime) List() ListState             { return r.list }
func (r *Runtime) Taking() *TakingSession      { return r.taking }
func (r *Runtime) Authoring() *AuthoringBuffer { return r.authoring }
func (r *Runtime) ErrorText() string           { return r.errorText }
func (r *Runtime) SuccessText() string         { return r.successText }

// SaveState reports whether any save started by this runtime is still running.
func (r *Runtime) SaveState() SaveState {
	if len(r.saving) > 0 {
		return SaveInFlight
	}
	return SaveIdle
}

// Saving reports whether the open form has a save running.
func (r *Runtime) Saving() bool {
	if r.authoring == nil {
		return false
	}
	_, ok := r.saving[r.authoring]
	return ok
}

// ApplySnapshot replaces the quiz list. Taking and authoring state are untouched.
func (r *Runtime) ApplySnapshot(snapshot domain.Snapshot) {
	r.list.apply(snapshot)
	if snapshot.Err != nil {
		r.errorText = fmt.Sprintf("Failed to load quizzes: %v", snapshot.Err)
	}
}

// Apply runs a synchronous user command. Saves go through BeginSave/FinishSave.
func (r *Runtime) Apply(cmd Command) error {
	switch cmd.Type {
	case CmdSelectQuiz:
		return r.SelectQuiz(cmd.QuizID)
	case CmdSelectAnswer:
		return r.withTaking(func(s *TakingSession) error { return s.SelectAnswer(cmd.Option) })
	case CmdAdvance:
		return r.withTaking(func(s *TakingSession) error { return s.Advance() })
	case CmdRetake:
		return r.withTaking(func(s *TakingSession) error { return s.Retake() })
	case CmdExitToList:
		return r.ExitToList()
	case CmdOpenAuthoring:
		r.OpenAuthoring()
		return nil
	case CmdCloseAuthoring:
		r.CloseAuthoring()
		return nil
	case CmdSetTitle:
		return r.withAuthoring(func(b *AuthoringBuffer) error {
			b.SetTitle(cmd.Text)
			return nil
		})
	case CmdAddQuestion:
		return r.withAuthoring(func(b *AuthoringBuffer) error {
			b.AddQuestion()
			return nil
		})
	case CmdSetQuestionText:
		return r.withAuthoring(func(b *AuthoringBuffer) error { return b.SetQuestionText(cmd.Question, cmd.Text) })
	case CmdSetHint:
		return r.withAuthoring(func(b *AuthoringBuffer) error { return b.SetHint(cmd.Question, cmd.Text) })
	case CmdSetOptionText:
		return r.withAuthoring(func(b *AuthoringBuffer) error { return b.SetOptionText(cmd.Question, cmd.Option, cmd.Text) })
	case CmdSetOptionRationale:
		return r.withAuthoring(func(b *AuthoringBuffer) error { return b.SetOptionRationale(cmd.Question, cmd.Option, cmd.Text) })
	case CmdSetCorrectOption:
		return r.withAuthoring(func(b *AuthoringBuffer) error { return b.SetCorrectOption(cmd.Question, cmd.Option) })
	case CmdDismissError:
		r.DismissError()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

// SelectQuiz starts taking the listed quiz id from its first question. It
// works from any mode and discards an open authoring form.
func (r *Runtime) SelectQuiz(id string) error {
	quiz, ok := r.list.find(id)
	if !ok {
		r.errorText = "Quiz not found."
		return fmt.Errorf("select quiz %s: %w", id, domain.ErrQuizNotFound)
	}
	session, err := NewTakingSession(quiz)
	if err != nil {
		r.errorText = fmt.Sprintf("Quiz %q cannot be taken: %v", quiz.Title, err)
		return fmt.Errorf("select quiz %s: %w", id, err)
	}
	r.taking = session
	r.authoring = nil
	r.mode = ModeTaking
	return nil
}

// ExitToList leaves the taking session. The list subscription keeps running.
func (r *Runtime) ExitToList() error {
	if r.mode != ModeTaking {
		return ErrNotTaking
	}
	r.taking = nil
	r.mode = ModeList
	return nil
}

// OpenAuthoring shows the form with a fresh buffer unless one is already open.
func (r *Runtime) OpenAuthoring() {
	if r.mode == ModeAuthoring && r.authoring != nil {
		return
	}
	r.taking = nil
	r.authoring = NewAuthoringBuffer()
	r.mode = ModeAuthoring
}

// CloseAuthoring discards the buffer and returns to the list.
func (r *Runtime) CloseAuthoring() {
	if r.mode != ModeAuthoring {
		return
	}
	r.authoring = nil
	r.mode = ModeList
}

// SaveTicket identifies one write started by BeginSave.
type SaveTicket struct {
	Quiz   domain.Quiz
	buffer *AuthoringBuffer
}

// BeginSave validates the open form and returns the document to write. A
// validation failure becomes the error banner and nothing is written.
func (r *Runtime) BeginSave(createdBy string, now time.Time) (SaveTicket, error) {
	if r.mode != ModeAuthoring || r.authoring == nil {
		return SaveTicket{}, ErrNotAuthoring
	}
	if r.Saving() {
		return SaveTicket{}, ErrSaveInFlight
	}
	quiz, err := r.authoring.Build(createdBy, now)
	if err != nil {
		r.errorText = err.Error()
		return SaveTicket{}, err
	}
	r.saving[r.authoring] = struct{}{}
	return SaveTicket{Quiz: quiz, buffer: r.authoring}, nil
}

// FinishSave completes the write identified by ticket. On success it returns
// the sequence number of the success notice, to be passed to ClearSuccess
// later. The form is cleared only if it is still the one that was saved; on
// failure it is kept for a retry.
func (r *Runtime) FinishSave(ticket SaveTicket, err error) (uint64, bool) {
	delete(r.saving, ticket.buffer)
	if err != nil {
		r.errorText = fmt.Sprintf("Failed to save quiz: %v", err)
		return 0, false
	}
	if r.mode == ModeAuthoring && r.authoring == ticket.buffer {
		r.authoring = nil
		r.mode = ModeList
	}
	r.successSeq++
	r.successText = fmt.Sprintf("Quiz %q saved.", ticket.Quiz.Title)
	return r.successSeq, true
}

// ClearSuccess hides the success notice identified by seq, unless a newer one replaced it.
func (r *Runtime) ClearSuccess(seq uint64) {
	if seq == r.successSeq {
		r.successText = ""
	}
}

func (r *Runtime) DismissError() {
	r.errorText = ""
}

func (r *Runtime) withTaking(fn func(*TakingSession) error) error {
	if r.mode != ModeTaking || r.taking == nil {
		return ErrNotTaking
	}
	return fn(r.taking)
}

func (r *Runtime) withAuthoring(fn func(*AuthoringBuffer) error) error {
	if r.mode != ModeAuthoring || r.authoring == nil {
		return ErrNotAuthoring
	}
	return fn(r.authoring)
}
