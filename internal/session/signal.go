package session

import "time"

// SignalWindow is how long a validation advisory stays visible.
const SignalWindow = 3 * time.Second

// SignalKind classifies a user-facing advisory.
type SignalKind int

const (
	SignalNone         SignalKind = iota
	SignalUnanswered              // Next refused: current question unanswered
	SignalIncomplete              // Submit refused: not every question answered
	SignalSubmitFailed            // Submission failed; answers kept
)

// Signal is an advisory raised instead of a refused transition or after a
// failed submission. Validation signals expire after SignalWindow; a
// submit failure stays until the next user action. Signals never gate a
// transition.
type Signal struct {
	Kind    SignalKind
	Message string
	Err     error

	expires time.Time // zero for sticky signals
}

// Transient reports whether the signal clears itself.
func (s Signal) Transient() bool {
	return !s.expires.IsZero()
}

func (s Signal) expiredAt(now time.Time) bool {
	return s.Transient() && !now.Before(s.expires)
}

func unansweredSignal(now time.Time) Signal {
	return Signal{
		Kind:    SignalUnanswered,
		Message: "Please select an answer before continuing.",
		expires: now.Add(SignalWindow),
	}
}

func incompleteSignal(now time.Time, missing int) Signal {
	msg := "Please answer all questions before submitting."
	if missing == 1 {
		msg = "One question is still unanswered."
	}
	return Signal{
		Kind:    SignalIncomplete,
		Message: msg,
		expires: now.Add(SignalWindow),
	}
}
