package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("quiz not found")
	ErrInvalidAnswers = errors.New("invalid answers")
	ErrUnknown        = errors.New("unknown error")
	ErrMalformedQuiz  = errors.New("malformed quiz")
)

// APIError carries the transport detail behind one of the sentinel kinds.
type APIError struct {
	Op     string // "fetch" or "submit"
	Status int    // HTTP status, 0 for transport failures
	Kind   error
	Err    error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s quiz: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind classifies err into one of the sentinel kinds. Anything that does
// not wrap a known kind is ErrUnknown.
func Kind(err error) error {
	for _, k := range []error{ErrUnauthorized, ErrForbidden, ErrNotFound, ErrInvalidAnswers, ErrMalformedQuiz} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUnknown
}

// UserMessage is the text shown for a fetch or submit failure.
func UserMessage(err error) string {
	switch Kind(err) {
	case ErrUnauthorized:
		return "Your session has expired. Sign in again and retry."
	case ErrForbidden:
		return "You do not have access to this quiz."
	case ErrNotFound:
		return "Quiz not found."
	case ErrInvalidAnswers:
		return "The server rejected the submitted answers."
	case ErrMalformedQuiz:
		return "The quiz could not be read."
	default:
		return "Something went wrong. Please try again."
	}
}
