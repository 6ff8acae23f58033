package api

import "net/http"

// Error is an API error with the HTTP status it should be reported with.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

func NewBadRequestError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

func NewNotFoundError(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

func NewConflictError(message string) *Error {
	return &Error{Status: http.StatusConflict, Message: message}
}

func NewPreconditionError(message string) *Error {
	return &Error{Status: http.StatusPreconditionFailed, Message: message}
}

func NewInternalError(message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message}
}

// StatusOf maps an error to an HTTP status, defaulting to 500.
func StatusOf(err error) int {
	if apiErr, ok := err.(*Error); ok {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
