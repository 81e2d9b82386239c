package services

import "errors"

var (
	// ErrInvalidInput is returned when the submitted query is empty.
	ErrInvalidInput = errors.New("query is empty")

	// ErrNotFound is returned when the assignment id does not resolve.
	ErrNotFound = errors.New("assignment not found")

	// ErrForbidden is returned when the query contains a denylisted keyword.
	ErrForbidden = errors.New("action forbidden: read-only sandbox")
)

// QueryError carries a database execution failure back to the student.
// Message is the server's message, passed through verbatim.
type QueryError struct {
	Message string
	Code    string
}

func (e *QueryError) Error() string {
	return e.Message
}
