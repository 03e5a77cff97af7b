package assessment

import (
	"errors"
	"fmt"
	"time"

	"github.com/nfrund/campus/internal/domain"
)

// State is the lifecycle position of a Session.
type State int

const (
	NotStarted State = iota
	Running
	Submitting
	Terminated
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Submitting:
		return "submitting"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SubmitReason records what triggered the submission of an attempt.
type SubmitReason string

const (
	SubmitManual      SubmitReason = "manual"
	SubmitExpired     SubmitReason = "expired"
	SubmitInterrupted SubmitReason = "interrupted"
)

var (
	ErrAlreadyStarted     = errors.New("exam attempt already started")
	ErrNotRunning         = errors.New("exam attempt is not running")
	ErrNoPendingFocusLoss = errors.New("no focus loss awaiting a decision")
	ErrUnknownQuestion    = errors.New("question is not part of the exam")
	ErrInvalidDuration    = errors.New("exam has no duration")
)

// UnavailableError is returned when an exam cannot be started: it is not
// published yet or the student already has a result. It carries what to show
// instead of a start action.
type UnavailableError struct {
	Exam *domain.ExamView
	Now  time.Time
}

func (e *UnavailableError) Error() string {
	if e.Exam.AlreadyTaken {
		return fmt.Sprintf("exam %s already taken", e.Exam.ExamID)
	}
	return fmt.Sprintf("exam %s opens in %s", e.Exam.ExamID, e.UntilPublish().Round(time.Second))
}

// Unwrap exposes the matching domain sentinel.
func (e *UnavailableError) Unwrap() error {
	if e.Exam.AlreadyTaken {
		return domain.ErrExamAlreadyTaken
	}
	return domain.ErrExamNotPublished
}

// UntilPublish is the time left before the exam opens.
func (e *UnavailableError) UntilPublish() time.Duration {
	if e.Exam.AlreadyTaken || e.Exam.PublishAt.IsZero() {
		return 0
	}
	if d := e.Exam.PublishAt.Sub(e.Now); d > 0 {
		return d
	}
	return 0
}

// PriorResult returns the earlier result of the student, if any.
func (e *UnavailableError) PriorResult() *domain.ResultSummary {
	return e.Exam.PriorResult
}

// Outcome is the final result of a terminated attempt.
type Outcome struct {
	Reason  SubmitReason
	Answers domain.Answers
	Result  *domain.SubmissionResult
	Err     error
}
