package app

import (
	"time"

	"quizboard/internal/domain"
)

// ListState is the latest quiz list delivered by the collection subscription.
type ListState struct {
	Quizzes   []domain.Quiz
	Loaded    bool
	UpdatedAt time.Time
	LastErr   error
}

// apply replaces the list with a successful snapshot, or records the error and
// keeps the last known list.
func (l *ListState) apply(snapshot domain.Snapshot) {
	if snapshot.Err != nil {
		l.LastErr = snapshot.Err
		return
	}
	l.Quizzes = snapshot.Quizzes
	l.Loaded = true
	l.UpdatedAt = snapshot.DeliveredAt
	l.LastErr = nil
}

func (l *ListState) find(id string) (domain.Quiz, bool) {
	for _, quiz := range l.Quizzes {
		if quiz.ID == id {
			return quiz, true
		}
	}
	return domain.Quiz{}, false
}
