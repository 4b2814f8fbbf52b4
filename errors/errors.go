package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrEmptyWords          = fmt.Errorf("no words have been found")
	ErrNotParticipant      = fmt.Errorf("sender is not a participant of this conversation")
	ErrUnknownConversation = fmt.Errorf("conversation does not exist")
	ErrSelfConversation    = fmt.Errorf("a conversation requires two distinct participants")
	ErrEmptyBody           = fmt.Errorf("message has neither text nor image")
	ErrNotAnImage          = fmt.Errorf("attachment is not an image")
	ErrInvalidToken        = fmt.Errorf("identity token is invalid")
	ErrHandshakeTimeout    = fmt.Errorf("connection did not identify itself in time")
	ErrSinkClosed          = fmt.Errorf("sink closed")
)
