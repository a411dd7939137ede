package records

import (
	"errors"
	"fmt"
)

// ServerError is a failure reported by the record service with a message
// meant for the user.
type ServerError struct {
	Status  int
	Message string
	Err     error // underlying cause, if known
}

func (e *ServerError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
	}
	return e.Message
}

func (e *ServerError) Unwrap() error { return e.Err }

// MessageOf returns the server-provided message carried by err, falling back
// to the error text.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}
