package quiz

import (
	"time"

	qz "github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/session"
)

// quizLoadedMsg carries a fetch outcome back to the machine.
type quizLoadedMsg struct {
	Token session.Token
	Quiz  *qz.Quiz
	Err   error
}

// submittedMsg carries a scoring outcome back to the machine.
type submittedMsg struct {
	Token  session.Token
	Result *qz.Result
	Err    error
}

// signalTickMsg fires when a transient signal may have expired.
type signalTickMsg time.Time
