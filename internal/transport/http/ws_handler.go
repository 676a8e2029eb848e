package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"quizboard/internal/app"
	"quizboard/internal/config"
	"quizboard/internal/identity"
)

// Server message types.
const (
	msgReady = "ready"
	msgView  = "view"
	msgFatal = "fatal"
	msgError = "error"
)

// commandFields lists, per client message type, which payload fields must be
// present. Unlisted types are rejected.
var commandFields = map[app.CommandType]requiredFields{
	app.CmdSelectQuiz:         {quizID: true},
	app.CmdSelectAnswer:       {option: true},
	app.CmdAdvance:            {},
	app.CmdRetake:             {},
	app.CmdExitToList:         {},
	app.CmdOpenAuthoring:      {},
	app.CmdCloseAuthoring:     {},
	app.CmdSetTitle:           {text: true},
	app.CmdAddQuestion:        {},
	app.CmdSetQuestionText:    {question: true, text: true},
	app.CmdSetHint:            {question: true, text: true},
	app.CmdSetOptionText:      {question: true, option: true, text: true},
	app.CmdSetOptionRationale: {question: true, option: true, text: true},
	app.CmdSetCorrectOption:   {question: true, option: true},
	app.CmdSave:               {},
	app.CmdDismissError:       {},
}

type requiredFields struct {
	quizID, question, option, text bool
}

// commandPayload is the wire form of a command; nil means the field was absent.
type commandPayload struct {
	QuizID   *string `json:"quizId"`
	Question *int    `json:"question"`
	Option   *int    `json:"option"`
	Text     *string `json:"text"`
}

// WSOptions configure the clients served by a WSHandler.
type WSOptions struct {
	Namespace    string
	InitialToken string
	SuccessDelay time.Duration
}

type WSHandler struct {
	identity   *identity.Service
	collection app.QuizCollection
	opts       WSOptions
	upgrader   websocket.Upgrader
}

func NewWSHandler(svc *identity.Service, collection app.QuizCollection, opts WSOptions) *WSHandler {
	return &WSHandler{
		identity:   svc,
		collection: collection,
		opts:       opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type readyPayload struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Anonymous bool   `json:"anonymous"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, resolves the caller's identity and runs one
// quiz client for the lifetime of the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = h.opts.InitialToken
	}
	resumeID := r.URL.Query().Get("session")
	log := config.WithContext(r.Context()).WithField("component", "ws")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	boot, err := app.NewBootstrapper(h.identity.NewAuth(), log)
	if err != nil {
		writeFatal(conn, log, err)
		return
	}
	defer boot.Close()

	session, err := boot.Start(r.Context(), token, resumeID)
	if err != nil {
		log.WithError(err).Error("identity bootstrap failed")
		writeFatal(conn, log, err)
		return
	}
	log = log.WithField("user_id", session.User.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	client := app.NewClient(boot, h.collection, log, app.ClientOptions{
		Namespace:    h.opts.Namespace,
		SuccessDelay: h.opts.SuccessDelay,
	})

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	forwardDone := make(chan struct{})
	runDone := make(chan struct{})

	// the writer is the only goroutine that writes to conn
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				// unblock the read loop
				_ = conn.Close()
				return
			}
		}
	}()

	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	enqueue(outboundMessage[any]{Type: msgReady, Payload: readyPayload{
		UserID:    session.User.ID,
		SessionID: session.ID,
		Anonymous: session.User.Anonymous,
	}})

	go func() {
		defer close(forwardDone)
		for view := range client.Views() {
			enqueue(outboundMessage[any]{Type: msgView, Payload: view})
		}
	}()

	go func() {
		defer close(runDone)
		if err := client.Run(ctx); err != nil {
			log.WithError(err).Error("quiz client stopped")
		}
	}()

	log.Info("client connected")
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		cmd, err := decodeCommand(inbound)
		if err != nil {
			enqueue(outboundMessage[any]{Type: msgError, Payload: errorPayload{Message: err.Error()}})
			continue
		}
		client.Dispatch(cmd)
	}

	cancel()
	<-runDone
	<-forwardDone
	close(send)
	<-writerDone
	log.Info("client disconnected")
}

func decodeCommand(inbound inboundMessage) (app.Command, error) {
	cmdType := app.CommandType(inbound.Type)
	required, ok := commandFields[cmdType]
	if !ok {
		return app.Command{}, errUnsupportedMessage
	}
	var payload commandPayload
	if len(inbound.Payload) > 0 && string(inbound.Payload) != "null" {
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return app.Command{}, errInvalidPayload
		}
	}

	cmd := app.Command{Type: cmdType}
	switch {
	case required.quizID && (payload.QuizID == nil || *payload.QuizID == ""):
		return app.Command{}, fmt.Errorf("%w: %s requires quizId", errInvalidPayload, cmdType)
	case required.question && payload.Question == nil:
		return app.Command{}, fmt.Errorf("%w: %s requires question", errInvalidPayload, cmdType)
	case required.option && payload.Option == nil:
		return app.Command{}, fmt.Errorf("%w: %s requires option", errInvalidPayload, cmdType)
	case required.text && payload.Text == nil:
		return app.Command{}, fmt.Errorf("%w: %s requires text", errInvalidPayload, cmdType)
	}
	if payload.QuizID != nil {
		cmd.QuizID = *payload.QuizID
	}
	if payload.Question != nil {
		cmd.Question = *payload.Question
	}
	if payload.Option != nil {
		cmd.Option = *payload.Option
	}
	if payload.Text != nil {
		cmd.Text = *payload.Text
	}
	return cmd, nil
}

func writeFatal(conn *websocket.Conn, log *logrus.Entry, err error) {
	msg := outboundMessage[errorPayload]{Type: msgFatal, Payload: errorPayload{Message: err.Error()}}
	if werr := conn.WriteJSON(msg); werr != nil {
		log.WithError(werr).Debug("ws fatal write failed")
	}
}
