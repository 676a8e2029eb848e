package app

// CommandType names a user action sent by a client.
type CommandType string

const (
	CmdSelectQuiz         CommandType = "selectQuiz"
	CmdSelectAnswer       CommandType = "selectAnswer"
	CmdAdvance            CommandType = "advance"
	CmdRetake             CommandType = "retake"
	CmdExitToList         CommandType = "exitToList"
	CmdOpenAuthoring      CommandType = "openAuthoring"
	CmdCloseAuthoring     CommandType = "closeAuthoring"
	CmdSetTitle           CommandType = "setTitle"
	CmdAddQuestion        CommandType = "addQuestion"
	CmdSetQuestionText    CommandType = "setQuestionText"
	CmdSetHint            CommandType = "setHint"
	CmdSetOptionText      CommandType = "setOptionText"
	CmdSetOptionRationale CommandType = "setOptionRationale"
	CmdSetCorrectOption   CommandType = "setCorrectOption"
	CmdSave               CommandType = "save"
	CmdDismissError       CommandType = "dismissError"
)

// Command is one user action. Only the fields its type needs are read.
type Command struct {
	Type     CommandType `json:"-"`
	QuizID   string      `json:"quizId,omitempty"`
	Question int         `json:"question"`
	Option   int         `json:"option"`
	Text     string      `json:"text"`
}
