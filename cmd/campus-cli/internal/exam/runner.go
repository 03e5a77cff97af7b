package exam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nfrund/campus/internal/assessment"
	"github.com/nfrund/campus/internal/domain"
)

const (
	keyCtrlC     = 0x03
	keyEsc       = 0x1b
	keyBackspace = 0x7f
	maxOptions   = 8
)

// Focus is a focus lock the runner can give up when the student presses Esc.
type Focus interface {
	assessment.FocusLock
	Lose()
}

// Runner drives an assessment session from keyboard input:
//
//	1-9      jump to a question
//	[ ]      previous / next question
//	a-h      choose an option
//	Backspace clear the answer
//	s        submit
//	Esc      leave the exam screen (focus lost), then r to resume or s to submit
type Runner struct {
	in      io.Reader
	out     io.Writer
	focus   Focus
	ticks   chan time.Duration
	current int
}

// NewRunner creates a runner reading keys from in and drawing to out.
func NewRunner(in io.Reader, out io.Writer, focus Focus) *Runner {
	return &Runner{in: in, out: out, focus: focus, ticks: make(chan time.Duration, 1)}
}

// SessionOptions connects a session's countdown to the runner's display.
func (r *Runner) SessionOptions() []assessment.Option {
	return []assessment.Option{
		assessment.WithOnTick(func(d time.Duration) {
			select {
			case <-r.ticks:
			default:
			}
			select {
			case r.ticks <- d:
			default:
			}
		}),
	}
}

// Run starts the session and blocks until it terminates.
func (r *Runner) Run(ctx context.Context, s *assessment.Session) (*assessment.Outcome, error) {
	if err := s.Startable(); err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	defer close(stop)
	keys := r.readKeys(stop)

	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	exam := s.Exam()
	r.printf("%s: %d questions, %d minutes. Esc leaves the exam, s submits.\n\n",
		Title(exam.ExamName), len(exam.Questions), exam.DurationMinutes)
	r.showQuestion(s)

	ctxDone := ctx.Done()
	for {
		select {
		case <-s.Done():
			out := s.Outcome()
			r.showOutcome(out)
			return out, nil
		case <-ctxDone:
			// The session submits on its own once ctx is cancelled.
			ctxDone = nil
		case d := <-r.ticks:
			if !s.AwaitingDecision() {
				r.showStatus(s, d)
			}
		case <-s.FocusLost():
			r.printf("\nYou left the exam. The clock is still running (%s left).\n", FormatRemaining(s.Remaining()))
			r.printf("Press r to resume or s to submit now.\n")
		case k, ok := <-keys:
			if !ok {
				keys = nil
				r.submit(ctx, s)
				continue
			}
			r.handleKey(ctx, s, k)
		}
	}
}

func (r *Runner) readKeys(stop <-chan struct{}) <-chan byte {
	keys := make(chan byte)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := r.in.Read(buf)
			if n == 1 {
				select {
				case keys <- buf[0]:
				case <-stop:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return keys
}

func (r *Runner) handleKey(ctx context.Context, s *assessment.Session, k byte) {
	if s.AwaitingDecision() {
		switch k {
		case 'r', 'R':
			if err := s.Resume(); err != nil {
				r.printf("Could not resume: %v\n", err)
				return
			}
			r.printf("\nResumed with %s left.\n", FormatRemaining(s.Remaining()))
			r.showQuestion(s)
		case 's', 'S':
			r.submit(ctx, s)
		}
		return
	}

	questions := s.Exam().Questions
	switch {
	case k == keyEsc || k == keyCtrlC:
		r.focus.Lose()
	case k == 's' || k == 'S':
		r.submit(ctx, s)
	case k >= '1' && k <= '9':
		if i := int(k - '1'); i < len(questions) {
			r.current = i
			r.showQuestion(s)
		}
	case k == ']':
		if r.current < len(questions)-1 {
			r.current++
			r.showQuestion(s)
		}
	case k == '[':
		if r.current > 0 {
			r.current--
			r.showQuestion(s)
		}
	case k >= 'a' && k < 'a'+maxOptions:
		r.choose(s, int(k-'a'))
	case k == keyBackspace:
		if len(questions) == 0 {
			return
		}
		q := questions[r.current]
		if err := s.Answer(q.QuestionID, ""); err == nil {
			r.printf("Cleared answer to question %d.\n", r.current+1)
		}
	}
}

func (r *Runner) choose(s *assessment.Session, option int) {
	questions := s.Exam().Questions
	if len(questions) == 0 {
		return
	}
	q := questions[r.current]
	if option >= len(q.Options) {
		return
	}
	if err := s.Answer(q.QuestionID, q.Options[option].Text); err != nil {
		r.printf("Could not record answer: %v\n", err)
		return
	}
	r.printf("Question %d: %c) %s\n", r.current+1, 'a'+option, q.Options[option].Text)
	if r.current < len(questions)-1 {
		r.current++
		r.showQuestion(s)
	}
}

func (r *Runner) submit(ctx context.Context, s *assessment.Session) {
	r.printf("\nSubmitting...\n")
	// Rejections are reported from the outcome once the session is done.
	if _, err := s.Submit(ctx); errors.Is(err, assessment.ErrNotRunning) {
		r.printf("Nothing to submit: %v\n", err)
	}
}

func (r *Runner) showQuestion(s *assessment.Session) {
	questions := s.Exam().Questions
	if len(questions) == 0 {
		return
	}
	q := questions[r.current]
	chosen := s.Answers()[q.QuestionID]

	r.printf("\nQuestion %d/%d (%d marks)\n%s\n", r.current+1, len(questions), q.Marks, q.QuestionText)
	for i, o := range q.Options {
		if i >= maxOptions {
			break
		}
		mark := " "
		if o.Text == chosen {
			mark = "*"
		}
		r.printf(" %s %c) %s\n", mark, 'a'+i, o.Text)
	}
}

func (r *Runner) showStatus(s *assessment.Session, remaining time.Duration) {
	r.printf("\r\033[K[%s] %d/%d answered", FormatRemaining(remaining), len(s.Answers()), len(s.Exam().Questions))
}

func (r *Runner) showOutcome(out *assessment.Outcome) {
	switch out.Reason {
	case assessment.SubmitExpired:
		r.printf("\nTime is up. Your answers were submitted.\n")
	case assessment.SubmitInterrupted:
		r.printf("\nThe exam was interrupted. Your answers were submitted.\n")
	}
	if out.Err != nil {
		r.printf("Submission failed: %v\n", out.Err)
		return
	}
	if out.Result != nil && out.Result.Result != nil {
		res := out.Result.Result
		r.printf("Score: %d/%d\n", res.Marks, res.TotalMarks)
		if res.Remarks != "" {
			r.printf("Remarks: %s\n", res.Remarks)
		}
	}
}

// printf writes CRLF line endings so output stays aligned in raw mode.
func (r *Runner) printf(format string, args ...any) {
	fmt.Fprint(r.out, strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", "\r\n"))
}

// Describe explains why an exam cannot be started.
func Describe(err error) string {
	u, ok := assessment.IsUnavailable(err)
	if !ok {
		return err.Error()
	}
	if errors.Is(err, domain.ErrExamAlreadyTaken) {
		if p := u.PriorResult(); p != nil {
			return fmt.Sprintf("You already took %s and scored %d/%d.", Title(u.Exam.ExamName), p.Marks, p.TotalMarks)
		}
		return fmt.Sprintf("You already took %s.", Title(u.Exam.ExamName))
	}
	return fmt.Sprintf("%s opens in %s.", Title(u.Exam.ExamName), formatWait(u.UntilPublish()))
}
