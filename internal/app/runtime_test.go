package app_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"quizboard/internal/app"
	"quizboard/internal/domain"
)

func loadedRuntime(t *testing.T, quizzes ...domain.Quiz) *app.Runtime {
	t.Helper()
	runtime := app.NewRuntime()
	runtime.ApplySnapshot(domain.Snapshot{Namespace: "apps/a/quizzes", Quizzes: quizzes, DeliveredAt: time.Now()})
	return runtime
}

func apply(t *testing.T, runtime *app.Runtime, cmds ...app.Command) {
	t.Helper()
	for _, cmd := range cmds {
		if err := runtime.Apply(cmd); err != nil {
			t.Fatalf("apply %s: %v", cmd.Type, err)
		}
	}
}

func TestSnapshotDoesNotDisturbTakingSession(t *testing.T) {
	runtime := loadedRuntime(t, sampleQuiz("quiz-1"))
	apply(t, runtime,
		app.Command{Type: app.CmdSelectQuiz, QuizID: "quiz-1"},
		app.Command{Type: app.CmdSelectAnswer, Option: 1},
	)

	edited := sampleQuiz("quiz-1")
	edited.Title = "Renamed"
	edited.Questions = edited.Questions[:1]
	runtime.ApplySnapshot(domain.Snapshot{Quizzes: []domain.Quiz{edited, sampleQuiz("quiz-2")}, DeliveredAt: time.Now()})

	view := runtime.View(nil)
	if view.Mode != "taking" || view.Taking == nil {
		t.Fatalf("expected taking view, got %+v", view)
	}
	if view.Taking.Title != "Cells" || view.Taking.QuestionCount != 2 || view.Taking.QuestionIndex != 0 {
		t.Fatalf("taking session changed by snapshot: %+v", view.Taking)
	}
	if view.Taking.Phase != "rationale" || view.Taking.Feedback != app.FeedbackCorrect {
		t.Fatalf("answer lost: %+v", view.Taking)
	}
	if len(view.Quizzes) != 2 || view.Quizzes[0].Title != "Renamed" {
		t.Fatalf("list not refreshed: %+v", view.Quizzes)
	}

	apply(t, runtime,
		app.Command{Type: app.CmdAdvance},
		app.Command{Type: app.CmdSelectAnswer, Option: 2},
		app.Command{Type: app.CmdAdvance},
	)
	view = runtime.View(nil)
	if view.Mode != "results" || view.Results == nil || view.Results.Score != 2 || view.Results.Total != 2 {
		t.Fatalf("unexpected results %+v", view.Results)
	}
	if view.Results.Items[0].CorrectAnswer != "Mitochondria" || view.Results.Items[1].Selected != "Ribosome" {
		t.Fatalf("unexpected result items %+v", view.Results.Items)
	}
}

func TestSnapshotErrorKeepsLastList(t *testing.T) {
	runtime := loadedRuntime(t, sampleQuiz("quiz-1"))
	runtime.ApplySnapshot(domain.Snapshot{Err: errors.New("permission denied")})

	view := runtime.View(nil)
	if len(view.Quizzes) != 1 || !view.ListLoaded {
		t.Fatalf("last list should survive an error: %+v", view.Quizzes)
	}
	if view.Error != "Failed to load quizzes: permission denied" {
		t.Fatalf("unexpected banner %q", view.Error)
	}
	runtime.DismissError()
	if runtime.ErrorText() != "" {
		t.Fatalf("banner not dismissed")
	}
}

func TestSelectUnknownQuizSetsBanner(t *testing.T) {
	runtime := loadedRuntime(t, sampleQuiz("quiz-1"))

	err := runtime.SelectQuiz("missing")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if runtime.Mode() != app.ModeList || runtime.ErrorText() != "Quiz not found." {
		t.Fatalf("mode %s banner %q", runtime.Mode(), runtime.ErrorText())
	}
}

func TestSelectEmptyQuizIsRejected(t *testing.T) {
	empty := domain.Quiz{ID: "empty", Title: "Nothing"}
	runtime := loadedRuntime(t, empty)

	if err := runtime.SelectQuiz("empty"); !errors.Is(err, domain.ErrQuizHasNoQuestions) {
		t.Fatalf("expected no-questions error, got %v", err)
	}
	if runtime.Mode() != app.ModeList || !strings.Contains(runtime.ErrorText(), "Nothing") {
		t.Fatalf("mode %s banner %q", runtime.Mode(), runtime.ErrorText())
	}
}

func TestSelectQuizClosesAuthoring(t *testing.T) {
	runtime := loadedRuntime(t, sampleQuiz("quiz-1"))
	apply(t, runtime,
		app.Command{Type: app.CmdOpenAuthoring},
		app.Command{Type: app.CmdSetTitle, Text: "Draft"},
		app.Command{Type: app.CmdSelectQuiz, QuizID: "quiz-1"},
	)

	view := runtime.View(nil)
	if view.Mode != "taking" || view.Authoring != nil || runtime.Authoring() != nil {
		t.Fatalf("authoring form should be discarded: %+v", view)
	}
}

func TestExitToListFromResults(t *testing.T) {
	runtime := loadedRuntime(t, sampleQuiz("quiz-1"))
	apply(t, runtime, app.Command{Type: app.CmdSelectQuiz, QuizID: "quiz-1"})
	for _, pick := range []int{0, 0} {
		apply(t, runtime, app.Command{Type: app.CmdSelectAnswer, Option: pick}, app.Command{Type: app.CmdAdvance})
	}
	apply(t, runtime, app.Command{Type: app.CmdExitToList})

	if runtime.Mode() != app.ModeList || runtime.Taking() != nil {
		t.Fatalf("expected list mode, got %s", runtime.Mode())
	}
	if err := runtime.ExitToList(); !errors.Is(err, app.ErrNotTaking) {
		t.Fatalf("expected ErrNotTaking, got %v", err)
	}
}

func TestCommandsRequireMatchingMode(t *testing.T) {
	runtime := loadedRuntime(t)

	if err := runtime.Apply(app.Command{Type: app.CmdAdvance}); !errors.Is(err, app.ErrNotTaking) {
		t.Fatalf("expected ErrNotTaking, got %v", err)
	}
	if err := runtime.Apply(app.Command{Type: app.CmdSetTitle, Text: "x"}); !errors.Is(err, app.ErrNotAuthoring) {
		t.Fatalf("expected ErrNotAuthoring, got %v", err)
	}
	if err := runtime.Apply(app.Command{Type: "shout"}); !errors.Is(err, app.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestSaveFailureKeepsBuffer(t *testing.T) {
	runtime := loadedRuntime(t)
	openCellsForm(t, runtime)

	ticket, err := runtime.BeginSave("u1", time.Now())
	if err != nil {
		t.Fatalf("begin save: %v", err)
	}
	if runtime.View(nil).Authoring == nil || !runtime.View(nil).Authoring.Saving {
		t.Fatalf("expected saving flag")
	}
	if _, err := runtime.BeginSave("u1", time.Now()); !errors.Is(err, app.ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight, got %v", err)
	}

	if _, ok := runtime.FinishSave(ticket, errors.New("unavailable")); ok {
		t.Fatalf("failed save reported success")
	}
	if runtime.Mode() != app.ModeAuthoring || runtime.Authoring().Title != "Cells" {
		t.Fatalf("buffer should be kept for retry")
	}
	if runtime.ErrorText() != "Failed to save quiz: unavailable" {
		t.Fatalf("unexpected banner %q", runtime.ErrorText())
	}
	if runtime.SaveState() != app.SaveIdle {
		t.Fatalf("save should be idle after failure")
	}
}

func TestSaveSuccessReturnsToList(t *testing.T) {
	runtime := loadedRuntime(t)
	openCellsForm(t, runtime)

	ticket, err := runtime.BeginSave("u1", time.Now())
	if err != nil {
		t.Fatalf("begin save: %v", err)
	}
	if ticket.Quiz.CreatedBy != "u1" {
		t.Fatalf("createdBy = %q", ticket.Quiz.CreatedBy)
	}
	seq, ok := runtime.FinishSave(ticket, nil)
	if !ok {
		t.Fatalf("expected success")
	}
	if runtime.Mode() != app.ModeList || runtime.Authoring() != nil {
		t.Fatalf("expected list with cleared buffer")
	}
	if runtime.SuccessText() != `Quiz "Cells" saved.` {
		t.Fatalf("unexpected notice %q", runtime.SuccessText())
	}

	// a second save replaces the notice; clearing the first must not hide it
	openCellsForm(t, runtime)
	ticket, _ = runtime.BeginSave("u1", time.Now())
	next, _ := runtime.FinishSave(ticket, nil)
	runtime.ClearSuccess(seq)
	if runtime.SuccessText() == "" {
		t.Fatalf("stale clear hid the newer notice")
	}
	runtime.ClearSuccess(next)
	if runtime.SuccessText() != "" {
		t.Fatalf("notice not cleared")
	}
}

func TestSaveDoesNotTouchReopenedForm(t *testing.T) {
	runtime := loadedRuntime(t)
	openCellsForm(t, runtime)

	ticket, err := runtime.BeginSave("u1", time.Now())
	if err != nil {
		t.Fatalf("begin save: %v", err)
	}
	apply(t, runtime,
		app.Command{Type: app.CmdCloseAuthoring},
		app.Command{Type: app.CmdOpenAuthoring},
		app.Command{Type: app.CmdSetTitle, Text: "Atoms"},
	)

	view := runtime.View(nil)
	if view.Authoring == nil || view.Authoring.Saving {
		t.Fatalf("new form must not show the earlier save: %+v", view.Authoring)
	}
	if runtime.SaveState() != app.SaveInFlight {
		t.Fatalf("earlier save should still be tracked")
	}

	if _, ok := runtime.FinishSave(ticket, nil); !ok {
		t.Fatalf("expected success")
	}
	if runtime.Mode() != app.ModeAuthoring || runtime.Authoring() == nil || runtime.Authoring().Title != "Atoms" {
		t.Fatalf("reopened form was discarded by the earlier save")
	}
	if runtime.SuccessText() != `Quiz "Cells" saved.` || runtime.SaveState() != app.SaveIdle {
		t.Fatalf("notice %q state %v", runtime.SuccessText(), runtime.SaveState())
	}
}

func TestInvalidSaveSetsBanner(t *testing.T) {
	runtime := loadedRuntime(t)
	apply(t, runtime, app.Command{Type: app.CmdOpenAuthoring})

	_, err := runtime.BeginSave("u1", time.Now())
	if !errors.Is(err, app.ErrInvalidQuiz) {
		t.Fatalf("expected ErrInvalidQuiz, got %v", err)
	}
	if !strings.Contains(runtime.ErrorText(), "title is required") || runtime.SaveState() != app.SaveIdle {
		t.Fatalf("banner %q state %v", runtime.ErrorText(), runtime.SaveState())
	}
}

func openCellsForm(t *testing.T, runtime *app.Runtime) {
	t.Helper()
	apply(t, runtime, cellsCommands()...)
}

func cellsCommands() []app.Command {
	return []app.Command{
		{Type: app.CmdOpenAuthoring},
		{Type: app.CmdSetTitle, Text: "Cells"},
		{Type: app.CmdSetQuestionText, Question: 0, Text: "What is the powerhouse of the cell?"},
		{Type: app.CmdSetHint, Question: 0, Text: "Think energy."},
		{Type: app.CmdSetOptionText, Question: 0, Option: 0, Text: "Nucleus"},
		{Type: app.CmdSetOptionText, Question: 0, Option: 1, Text: "Mitochondria"},
		{Type: app.CmdSetOptionText, Question: 0, Option: 2, Text: "Ribosome"},
		{Type: app.CmdSetOptionText, Question: 0, Option: 3, Text: "Golgi"},
		{Type: app.CmdSetOptionRationale, Question: 0, Option: 1, Text: "Mitochondria make ATP."},
		{Type: app.CmdSetCorrectOption, Question: 0, Option: 1},
	}
}
