package http

import "errors"

var (
	errUnsupportedMessage = errors.New("unsupported message type")
	errInvalidPayload     = errors.New("invalid message payload")
)
