package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/nfrund/campus/internal/domain"
)

// ExamProvider returns the student's view of an exam.
type ExamProvider interface {
	GetExam(ctx context.Context, examID, userID string) (*domain.ExamView, error)
}

// Grader accepts a finished attempt.
type Grader interface {
	Submit(ctx context.Context, examID, userID string, answers domain.Answers) (*domain.SubmissionResult, error)
}

// FocusLock is the exclusive foreground mode an attempt runs in. Acquire
// returns a channel that is closed when focus is lost by any means other
// than Release. Release is safe to call when the lock is not held.
type FocusLock interface {
	Acquire() (<-chan struct{}, error)
	Release() error
}

// Ticker delivers the once-per-second countdown ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Option configures a Session.
type Option func(*Session)

// WithTicker replaces the wall-clock ticker.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(s *Session) { s.newTicker = newTicker }
}

// WithOnTick registers a callback receiving the remaining time after every tick.
func WithOnTick(fn func(remaining time.Duration)) Option {
	return func(s *Session) { s.onTick = fn }
}

// WithClock replaces time.Now for availability checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session runs one timed exam attempt:
// NotStarted -> Running -> Submitting -> Terminated.
//
// Every transition happens under mu after checking the current state, so an
// attempt is submitted exactly once even when the countdown and the student
// submit at the same moment.
type Session struct {
	exam   *domain.ExamView
	userID string
	grader Grader
	focus  FocusLock

	newTicker func(time.Duration) Ticker
	onTick    func(time.Duration)
	now       func() time.Time
	logger    *slog.Logger

	mu              sync.Mutex
	state           State
	remaining       int // seconds
	answers         domain.Answers
	pendingDecision bool
	stop            chan struct{}
	relock          chan (<-chan struct{})
	outcome         *Outcome

	focusLost chan struct{}
	done      chan struct{}
}

// New creates a session for an exam view that was already fetched.
func New(exam *domain.ExamView, userID string, grader Grader, focus FocusLock, opts ...Option) *Session {
	s := &Session{
		exam:      exam,
		userID:    userID,
		grader:    grader,
		focus:     focus,
		newTicker: newTimeTicker,
		now:       time.Now,
		answers:   domain.Answers{},
		relock:    make(chan (<-chan struct{})),
		focusLost: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = slog.Default().With("component", "assessment", "exam_id", exam.ExamID, "user_id", userID)
	return s
}

// Load fetches the exam and returns a session ready to start. Exams that are
// not published yet or already taken return an *UnavailableError instead.
func Load(ctx context.Context, provider ExamProvider, examID, userID string, grader Grader, focus FocusLock, opts ...Option) (*Session, error) {
	exam, err := provider.GetExam(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	s := New(exam, userID, grader, focus, opts...)
	if err := s.Startable(); err != nil {
		return nil, err
	}
	return s, nil
}

// Startable reports why the exam cannot be started, or nil.
func (s *Session) Startable() error {
	if s.exam.AlreadyTaken || !s.exam.IsPublished {
		return &UnavailableError{Exam: s.exam, Now: s.now()}
	}
	return nil
}

// Exam returns the exam being taken.
func (s *Session) Exam() *domain.ExamView {
	return s.exam
}

// Start enters the focus lock and starts the countdown. On any error the
// session stays NotStarted. ctx bounds the submission triggered by the
// countdown; cancelling it submits the attempt as interrupted.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != NotStarted {
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, s.state)
	}
	if err := s.Startable(); err != nil {
		return err
	}
	if s.exam.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}

	lost, err := s.focus.Acquire()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrExclusiveModeDenied, err)
	}

	s.remaining = s.exam.DurationMinutes * 60
	s.stop = make(chan struct{})
	s.state = Running

	go s.run(ctx, s.newTicker(time.Second), lost, s.stop)

	s.logger.Info("Exam attempt started", "duration_minutes", s.exam.DurationMinutes)
	return nil
}

func (s *Session) run(ctx context.Context, ticker Ticker, lost <-chan struct{}, stop <-chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.submit(context.WithoutCancel(ctx), SubmitInterrupted)
			return
		case <-ticker.C():
			if s.tick() {
				s.submit(ctx, SubmitExpired)
				return
			}
		case <-lost:
			lost = nil
			s.markFocusLost()
		case lost = <-s.relock:
		}
	}
}

// tick counts one second down and reports whether time is up.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	remaining := s.remaining
	s.mu.Unlock()

	if s.onTick != nil {
		s.onTick(time.Duration(remaining) * time.Second)
	}
	return remaining == 0
}

func (s *Session) markFocusLost() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running || s.pendingDecision {
		return
	}
	s.pendingDecision = true
	s.logger.Warn("Focus lost during exam attempt", "remaining_seconds", s.remaining)

	select {
	case s.focusLost <- struct{}{}:
	default:
	}
}

// FocusLost signals each time the focus lock is lost while running. The
// student then chooses between Resume and Submit; the countdown keeps going
// while they decide.
func (s *Session) FocusLost() <-chan struct{} {
	return s.focusLost
}

// Resume re-enters the focus lock after a focus loss. No time is refunded.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRunning, s.state)
	}
	if !s.pendingDecision {
		s.mu.Unlock()
		return ErrNoPendingFocusLoss
	}
	lost, err := s.focus.Acquire()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", domain.ErrExclusiveModeDenied, err)
	}
	s.pendingDecision = false
	stop := s.stop
	s.mu.Unlock()

	select {
	case s.relock <- lost:
	case <-stop:
	}
	s.logger.Info("Exam attempt resumed")
	return nil
}

// Answer records the chosen option for a question. An empty option clears it.
func (s *Session) Answer(questionID, option string) error {
	if !s.exam.HasQuestion(questionID) {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return fmt.Errorf("%w: %s", ErrNotRunning, s.state)
	}
	if option == "" {
		delete(s.answers, questionID)
		return nil
	}
	s.answers[questionID] = option
	return nil
}

// Submit hands the recorded answers to the grader. The session terminates
// whether or not the grader accepts them; a failed submission is returned
// wrapped in domain.ErrSubmissionRejected and is not retried.
func (s *Session) Submit(ctx context.Context) (*domain.SubmissionResult, error) {
	return s.submit(ctx, SubmitManual)
}

func (s *Session) submit(ctx context.Context, reason SubmitReason) (*domain.SubmissionResult, error) {
	s.mu.Lock()
	switch s.state {
	case Running:
	case Submitting, Terminated:
		s.mu.Unlock()
		return nil, domain.ErrAlreadySubmitted
	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotRunning, s.state)
	}
	s.state = Submitting
	s.pendingDecision = false
	close(s.stop)
	answers := maps.Clone(s.answers)
	remaining := s.remaining
	s.mu.Unlock()

	s.logger.Info("Submitting exam attempt", "reason", reason, "answered", len(answers), "remaining_seconds", remaining)

	result, err := s.grader.Submit(ctx, s.exam.ExamID, s.userID, answers)
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %w", domain.ErrSubmissionRejected, err)
	case result == nil || !result.Accepted:
		msg := "not accepted"
		if result != nil && result.Message != "" {
			msg = result.Message
		}
		err = fmt.Errorf("%w: %s", domain.ErrSubmissionRejected, msg)
	}

	s.mu.Lock()
	s.state = Terminated
	s.outcome = &Outcome{Reason: reason, Answers: answers, Result: result, Err: err}
	s.mu.Unlock()

	if rerr := s.focus.Release(); rerr != nil {
		s.logger.Warn("Failed to release focus lock", "error", rerr)
	}
	close(s.done)

	if err != nil {
		s.logger.Error("Exam submission failed", "reason", reason, "error", err)
	}
	return result, err
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the time left on the countdown.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.remaining) * time.Second
}

// AwaitingDecision reports whether a focus loss is waiting for Resume or Submit.
func (s *Session) AwaitingDecision() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingDecision
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() domain.Answers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.answers)
}

// Done is closed once the session has terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the final outcome, or nil before termination.
func (s *Session) Outcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Wait blocks until the session terminates or ctx is done.
func (s *Session) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-s.done:
		return s.Outcome(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsUnavailable reports whether err means the exam cannot be started.
func IsUnavailable(err error) (*UnavailableError, bool) {
	var u *UnavailableError
	ok := errors.As(err, &u)
	return u, ok
}
