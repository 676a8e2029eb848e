package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizboard/internal/domain"
)

func TestCollectionSubscribeReceivesSnapshots(t *testing.T) {
	ctx := context.Background()
	collection := NewCollection()

	ch, cancel, err := collection.Subscribe(ctx, "apps/a/quizzes")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if len(initial.Quizzes) != 0 || initial.Err != nil {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	id, err := collection.Create(ctx, "apps/a/quizzes", sampleQuiz("Cells"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatalf("expected assigned id")
	}

	update := <-ch
	if len(update.Quizzes) != 1 || update.Quizzes[0].ID != id || update.Quizzes[0].Title != "Cells" {
		t.Fatalf("unexpected snapshot %+v", update.Quizzes)
	}
}

func TestCollectionNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	collection := NewCollection()

	if _, err := collection.Create(ctx, "apps/a/quizzes", sampleQuiz("A")); err != nil {
		t.Fatalf("create: %v", err)
	}
	quizzes, err := collection.List(ctx, "apps/b/quizzes")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(quizzes) != 0 {
		t.Fatalf("expected no quizzes in other namespace, got %d", len(quizzes))
	}
	if _, err := collection.Create(ctx, "", sampleQuiz("A")); !errors.Is(err, domain.ErrNamespaceRequired) {
		t.Fatalf("expected namespace error, got %v", err)
	}
}

func TestCollectionSnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	collection := NewCollection()
	if _, err := collection.Create(ctx, "ns", sampleQuiz("A")); err != nil {
		t.Fatalf("create: %v", err)
	}
	quizzes, _ := collection.List(ctx, "ns")
	quizzes[0].Questions[0].AnswerOptions[0].Text = "mutated"

	again, _ := collection.List(ctx, "ns")
	if again[0].Questions[0].AnswerOptions[0].Text == "mutated" {
		t.Fatalf("expected stored document to be unaffected by caller mutation")
	}
}

func TestCollectionInterruptAndCancel(t *testing.T) {
	ctx := context.Background()
	collection := NewCollection()
	ch, cancel, err := collection.Subscribe(ctx, "ns")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	<-ch

	collection.Interrupt("ns", errors.New("network down"))
	snapshot := <-ch
	if snapshot.Err == nil {
		t.Fatalf("expected error snapshot")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
}

func TestCollectionCancelOnContextDone(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	collection := NewCollection()
	ch, cancel, err := collection.Subscribe(ctx, "ns")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-ch
	stop()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription not released after context cancel")
	}
}

func sampleQuiz(title string) domain.Quiz {
	return domain.Quiz{
		Title:     title,
		CreatedBy: "u1",
		Questions: []domain.Question{
			{
				Question: "What is the powerhouse of the cell?",
				AnswerOptions: []domain.AnswerOption{
					{Text: "Nucleus"},
					{Text: "Mitochondria", IsCorrect: true, Rationale: "It produces ATP."},
					{Text: "Ribosome"},
					{Text: "Golgi"},
				},
			},
		},
	}
}
