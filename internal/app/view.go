package app

import "time"

// View is everything a client renders, rebuilt after every event.
type View struct {
	Mode       string         `json:"mode"`
	User       *UserView      `json:"user,omitempty"`
	Quizzes    []QuizSummary  `json:"quizzes"`
	ListLoaded bool           `json:"listLoaded"`
	Taking     *TakingView    `json:"taking,omitempty"`
	Results    *ResultsView   `json:"results,omitempty"`
	Authoring  *AuthoringView `json:"authoring,omitempty"`
	Error      string         `json:"error,omitempty"`
	Success    string         `json:"success,omitempty"`
}

type UserView struct {
	ID        string `json:"id"`
	Anonymous bool   `json:"anonymous"`
	SessionID string `json:"sessionId"`
}

type QuizSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"questionCount"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
}

type OptionView struct {
	Text  string      `json:"text"`
	State OptionState `json:"state"`
}

type TakingView struct {
	QuizID        string       `json:"quizId"`
	Title         string       `json:"title"`
	QuestionIndex int          `json:"questionIndex"`
	QuestionCount int          `json:"questionCount"`
	Question      string       `json:"question"`
	Hint          string       `json:"hint,omitempty"`
	Options       []OptionView `json:"options"`
	Phase         string       `json:"phase"`
	Feedback      string       `json:"feedback,omitempty"`
	Rationale     string       `json:"rationale,omitempty"`
	CanAdvance    bool         `json:"canAdvance"`
	IsLast        bool         `json:"isLast"`
}

type ResultItem struct {
	Question      string `json:"question"`
	Selected      string `json:"selected"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	Rationale     string `json:"rationale,omitempty"`
}

type ResultsView struct {
	QuizID string       `json:"quizId"`
	Title  string       `json:"title"`
	Score  int          `json:"score"`
	Total  int          `json:"total"`
	Items  []ResultItem `json:"items"`
}

type AuthoringView struct {
	Title     string          `json:"title"`
	Questions []QuestionDraft `json:"questions"`
	Saving    bool            `json:"saving"`
}

// View renders the runtime for user (nil before identity is resolved).
func (r *Runtime) View(user *UserView) View {
	view := View{
		Mode:       r.mode.String(),
		User:       user,
		Quizzes:    make([]QuizSummary, 0, len(r.list.Quizzes)),
		ListLoaded: r.list.Loaded,
		Error:      r.errorText,
		Success:    r.successText,
	}
	for _, quiz := range r.list.Quizzes {
		view.Quizzes = append(view.Quizzes, QuizSummary{
			ID:            quiz.ID,
			Title:         quiz.Title,
			QuestionCount: len(quiz.Questions),
			CreatedBy:     quiz.CreatedBy,
			CreatedAt:     quiz.CreatedAt,
		})
	}

	switch {
	case r.mode == ModeTaking && r.taking != nil && r.taking.Phase() == PhaseResults:
		view.Mode = "results"
		view.Results = resultsView(r.taking)
	case r.mode == ModeTaking && r.taking != nil:
		view.Taking = takingView(r.taking)
	case r.mode == ModeAuthoring && r.authoring != nil:
		view.Authoring = &AuthoringView{
			Title:     r.authoring.Title,
			Questions: append([]QuestionDraft(nil), r.authoring.Questions...),
			Saving:    r.Saving(),
		}
	}
	return view
}

func takingView(s *TakingSession) *TakingView {
	quiz := s.Quiz()
	question := s.Current()
	states := s.OptionStates()
	options := make([]OptionView, len(question.AnswerOptions))
	for i, opt := range question.AnswerOptions {
		options[i] = OptionView{Text: opt.Text, State: states[i]}
	}
	return &TakingView{
		QuizID:        quiz.ID,
		Title:         quiz.Title,
		QuestionIndex: s.Index(),
		QuestionCount: s.Total(),
		Question:      question.Question,
		Hint:          question.Hint,
		Options:       options,
		Phase:         s.Phase().String(),
		Feedback:      s.Feedback(),
		Rationale:     s.Rationale(),
		CanAdvance:    s.CanAdvance(),
		IsLast:        s.Index() == s.Total()-1,
	}
}

func resultsView(s *TakingSession) *ResultsView {
	quiz := s.Quiz()
	results := &ResultsView{
		QuizID: quiz.ID,
		Title:  quiz.Title,
		Score:  s.Score(),
		Total:  s.Total(),
		Items:  make([]ResultItem, 0, len(quiz.Questions)),
	}
	for i, question := range quiz.Questions {
		item := ResultItem{
			Question:  question.Question,
			Rationale: correctRationale(question),
		}
		if record, ok := s.Answer(i); ok {
			item.Selected = record.Selected.Text
			item.IsCorrect = record.IsCorrect
		}
		if c := question.CorrectIndex(); c >= 0 {
			item.CorrectAnswer = question.AnswerOptions[c].Text
		}
		results.Items = append(results.Items, item)
	}
	return results
}
