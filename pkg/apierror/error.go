package apierror

import (
	"fmt"
	"net/http"
)

// Error is the JSON body returned for failed requests.
type Error struct {
	Status    int    `json:"-"`
	Message   string `json:"error"`
	Detail    string `json:"details,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%d] %s", e.Status, e.Message)
}

// ForSession returns a copy of e tagged with an upload session id.
func (e *Error) ForSession(sessionID string) *Error {
	out := *e
	out.SessionID = sessionID
	return &out
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func WithDetail(status int, message, detail string) *Error {
	return &Error{Status: status, Message: message, Detail: detail}
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

func Unprocessable(message string) *Error {
	return New(http.StatusUnprocessableEntity, message)
}

func NotFound(resource string) *Error {
	return New(http.StatusNotFound, fmt.Sprintf("%s not found", resource))
}

func Internal(message string) *Error {
	return New(http.StatusInternalServerError, message)
}

func TooManyRequests() *Error {
	return New(http.StatusTooManyRequests, "rate limit exceeded")
}
