package gateway

import (
	"errors"
	"fmt"
)

var errUnexpectedStatus = errors.New("unexpected status")

// TransportError reports that the scheduling service could not be reached
// or answered with something that could not be decoded.
type TransportError struct {
	Op     string
	Status int // HTTP status when a response arrived, 0 otherwise
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Reason is the user-facing cause, without the operation prefix.
func (e *TransportError) Reason() string {
	if e.Status != 0 {
		return fmt.Sprintf("HTTP %d: %v", e.Status, e.Err)
	}
	return e.Err.Error()
}

// ApplicationError reports that the service understood the command but
// rejected it. Message is shown to the user verbatim.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return "command rejected: " + e.Message
}

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsApplication reports whether err is or wraps an *ApplicationError.
func IsApplication(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}
