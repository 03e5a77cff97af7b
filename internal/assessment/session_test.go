package assessment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/campus/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type manualTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

// tick delivers one tick, or gives up once the session has terminated.
func (m *manualTicker) tick(t *testing.T, s *Session) bool {
	t.Helper()
	select {
	case m.c <- testNow:
		return true
	case <-s.Done():
		return false
	case <-time.After(2 * time.Second):
		t.Fatal("countdown loop did not take the tick")
		return false
	}
}

type fakeFocus struct {
	mu       sync.Mutex
	acquired int
	released int
	deny     error
	lost     chan struct{}
}

func (f *fakeFocus) Acquire() (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deny != nil {
		return nil, f.deny
	}
	f.acquired++
	f.lost = make(chan struct{})
	return f.lost, nil
}

func (f *fakeFocus) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

func (f *fakeFocus) lose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.lost)
}

func (f *fakeFocus) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquired, f.released
}

type fakeGrader struct {
	mu       sync.Mutex
	calls    int
	answers  []domain.Answers
	err      error
	rejected bool
}

func (g *fakeGrader) Submit(_ context.Context, _, _ string, answers domain.Answers) (*domain.SubmissionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.answers = append(g.answers, answers)
	if g.err != nil {
		return nil, g.err
	}
	if g.rejected {
		return &domain.SubmissionResult{Accepted: false, Message: "closed"}, nil
	}
	return &domain.SubmissionResult{Accepted: true, Result: &domain.ResultSummary{Marks: len(answers), TotalMarks: 2}}, nil
}

func (g *fakeGrader) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func testExam(minutes int) *domain.ExamView {
	return &domain.ExamView{
		ExamID:          "midterm",
		CourseID:        "cs101",
		ExamName:        "Midterm",
		IsPublished:     true,
		PublishAt:       testNow.Add(-time.Hour),
		DurationMinutes: minutes,
		TotalMarks:      2,
		Questions: []domain.QuestionView{
			{QuestionID: "q1", QuestionText: "2+2", Marks: 1, Options: []domain.OptionView{{Text: "4"}, {Text: "5"}}},
			{QuestionID: "q2", QuestionText: "3*3", Marks: 1, Options: []domain.OptionView{{Text: "6"}, {Text: "9"}}},
		},
	}
}

type fixture struct {
	session *Session
	ticker  *manualTicker
	focus   *fakeFocus
	grader  *fakeGrader
}

func newFixture(exam *domain.ExamView, opts ...Option) *fixture {
	f := &fixture{ticker: newManualTicker(), focus: &fakeFocus{}, grader: &fakeGrader{}}
	opts = append([]Option{
		WithTicker(func(time.Duration) Ticker { return f.ticker }),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	f.session = New(exam, "s1", f.grader, f.focus, opts...)
	return f
}

func waitDone(t *testing.T, s *Session) *Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := s.Wait(ctx)
	require.NoError(t, err, "session did not terminate")
	return out
}

func TestSession_ExpiresAfterDuration(t *testing.T) {
	f := newFixture(testExam(1))
	var ticks []time.Duration
	var mu sync.Mutex
	f.session.onTick = func(d time.Duration) {
		mu.Lock()
		ticks = append(ticks, d)
		mu.Unlock()
	}

	require.NoError(t, f.session.Start(context.Background()))
	assert.Equal(t, Running, f.session.State())
	assert.Equal(t, time.Minute, f.session.Remaining())

	for i := 0; i < 59; i++ {
		require.True(t, f.ticker.tick(t, f.session))
	}
	assert.Equal(t, time.Second, f.session.Remaining())
	assert.Equal(t, Running, f.session.State())

	require.True(t, f.ticker.tick(t, f.session))
	out := waitDone(t, f.session)

	assert.Equal(t, Terminated, f.session.State())
	assert.Equal(t, SubmitExpired, out.Reason)
	assert.NoError(t, out.Err)
	assert.Empty(t, out.Answers)
	assert.Equal(t, 1, f.grader.callCount())
	assert.Empty(t, f.grader.answers[0])
	assert.Zero(t, f.session.Remaining())

	_, released := f.focus.counts()
	assert.Equal(t, 1, released)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ticks, 60)
	assert.Equal(t, 59*time.Second, ticks[0])
	assert.Zero(t, ticks[59])
}

func TestSession_LastTickRacingManualSubmit(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(testExam(1))
		require.NoError(t, f.session.Start(context.Background()))
		require.NoError(t, f.session.Answer("q1", "4"))
		for j := 0; j < 59; j++ {
			require.True(t, f.ticker.tick(t, f.session))
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.ticker.tick(t, f.session)
		}()
		var submitErr error
		go func() {
			defer wg.Done()
			_, submitErr = f.session.Submit(context.Background())
		}()
		wg.Wait()

		out := waitDone(t, f.session)
		assert.Equal(t, 1, f.grader.callCount())
		assert.Equal(t, domain.Answers{"q1": "4"}, out.Answers)
		if submitErr != nil {
			assert.ErrorIs(t, submitErr, domain.ErrAlreadySubmitted)
			assert.Equal(t, SubmitExpired, out.Reason)
		} else {
			assert.Equal(t, SubmitManual, out.Reason)
		}
	}
}

func TestSession_FocusLossAndResume(t *testing.T) {
	f := newFixture(testExam(30))
	require.NoError(t, f.session.Start(context.Background()))

	for i := 0; i < 10; i++ {
		require.True(t, f.ticker.tick(t, f.session))
	}
	before := f.session.Remaining()
	assert.Equal(t, 30*time.Minute-10*time.Second, before)

	f.focus.lose()
	select {
	case <-f.session.FocusLost():
	case <-time.After(2 * time.Second):
		t.Fatal("focus loss was not reported")
	}
	assert.True(t, f.session.AwaitingDecision())
	assert.Equal(t, Running, f.session.State())
	assert.Equal(t, before, f.session.Remaining())

	t.Run("countdown keeps running while deciding", func(t *testing.T) {
		require.True(t, f.ticker.tick(t, f.session))
		assert.Equal(t, before-time.Second, f.session.Remaining())
	})

	remaining := f.session.Remaining()
	require.NoError(t, f.session.Resume())
	assert.False(t, f.session.AwaitingDecision())
	assert.Equal(t, Running, f.session.State())
	assert.Equal(t, remaining, f.session.Remaining())

	acquired, _ := f.focus.counts()
	assert.Equal(t, 2, acquired)

	t.Run("resume without a pending loss", func(t *testing.T) {
		assert.ErrorIs(t, f.session.Resume(), ErrNoPendingFocusLoss)
	})

	t.Run("a second loss is reported again", func(t *testing.T) {
		f.focus.lose()
		select {
		case <-f.session.FocusLost():
		case <-time.After(2 * time.Second):
			t.Fatal("second focus loss was not reported")
		}
		assert.True(t, f.session.AwaitingDecision())
	})

	t.Run("submit instead of resume", func(t *testing.T) {
		res, err := f.session.Submit(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.False(t, f.session.AwaitingDecision())
		assert.Equal(t, SubmitManual, waitDone(t, f.session).Reason)
		assert.ErrorIs(t, f.session.Resume(), ErrNotRunning)
	})
}

func TestSession_StartUnavailable(t *testing.T) {
	t.Run("already taken", func(t *testing.T) {
		exam := testExam(30)
		exam.AlreadyTaken = true
		exam.Questions = nil
		exam.PriorResult = &domain.ResultSummary{Marks: 1, TotalMarks: 2}
		f := newFixture(exam)

		err := f.session.Start(context.Background())
		require.ErrorIs(t, err, domain.ErrExamAlreadyTaken)
		u, ok := IsUnavailable(err)
		require.True(t, ok)
		assert.Equal(t, 1, u.PriorResult().Marks)
		assert.Zero(t, u.UntilPublish())

		assert.Equal(t, NotStarted, f.session.State())
		acquired, _ := f.focus.counts()
		assert.Zero(t, acquired)
	})

	t.Run("not published", func(t *testing.T) {
		exam := testExam(30)
		exam.IsPublished = false
		exam.PublishAt = testNow.Add(90 * time.Minute)
		exam.Questions = nil
		f := newFixture(exam)

		err := f.session.Start(context.Background())
		require.ErrorIs(t, err, domain.ErrExamNotPublished)
		u, ok := IsUnavailable(err)
		require.True(t, ok)
		assert.Equal(t, 90*time.Minute, u.UntilPublish())
		assert.Contains(t, err.Error(), "1h30m0s")

		assert.Equal(t, NotStarted, f.session.State())
		acquired, _ := f.focus.counts()
		assert.Zero(t, acquired)
	})

	t.Run("zero duration", func(t *testing.T) {
		f := newFixture(testExam(0))
		assert.ErrorIs(t, f.session.Start(context.Background()), ErrInvalidDuration)
		assert.Equal(t, NotStarted, f.session.State())
	})
}

func TestSession_FocusDenied(t *testing.T) {
	f := newFixture(testExam(30))
	f.focus.deny = errors.New("not a terminal")

	err := f.session.Start(context.Background())
	require.ErrorIs(t, err, domain.ErrExclusiveModeDenied)
	assert.Equal(t, NotStarted, f.session.State())

	f.focus.deny = nil
	require.NoError(t, f.session.Start(context.Background()))
	assert.ErrorIs(t, f.session.Start(context.Background()), ErrAlreadyStarted)
}

func TestSession_GraderFailureTerminates(t *testing.T) {
	tests := []struct {
		name   string
		grader *fakeGrader
	}{
		{name: "transport error", grader: &fakeGrader{err: errors.New("connection refused")}},
		{name: "not accepted", grader: &fakeGrader{rejected: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(testExam(5))
			f.grader = tt.grader
			f.session.grader = tt.grader
			require.NoError(t, f.session.Start(context.Background()))

			_, err := f.session.Submit(context.Background())
			require.ErrorIs(t, err, domain.ErrSubmissionRejected)
			assert.Equal(t, Terminated, f.session.State())

			out := f.session.Outcome()
			require.NotNil(t, out)
			assert.ErrorIs(t, out.Err, domain.ErrSubmissionRejected)

			_, err = f.session.Submit(context.Background())
			assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)
			assert.Equal(t, 1, tt.grader.callCount())

			_, released := f.focus.counts()
			assert.Equal(t, 1, released)
		})
	}
}

func TestSession_Answer(t *testing.T) {
	f := newFixture(testExam(5))

	assert.ErrorIs(t, f.session.Answer("q1", "4"), ErrNotRunning)
	require.NoError(t, f.session.Start(context.Background()))

	assert.ErrorIs(t, f.session.Answer("q9", "4"), ErrUnknownQuestion)
	require.NoError(t, f.session.Answer("q1", "5"))
	require.NoError(t, f.session.Answer("q1", "4"))
	require.NoError(t, f.session.Answer("q2", "6"))
	require.NoError(t, f.session.Answer("q2", ""))
	assert.Equal(t, domain.Answers{"q1": "4"}, f.session.Answers())

	res, err := f.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Result.Marks)
	assert.Equal(t, domain.Answers{"q1": "4"}, f.grader.answers[0])

	assert.ErrorIs(t, f.session.Answer("q2", "9"), ErrNotRunning)
}

func TestSession_ContextCancelSubmitsInterrupted(t *testing.T) {
	f := newFixture(testExam(5))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.session.Start(ctx))
	require.NoError(t, f.session.Answer("q2", "9"))

	cancel()
	out := waitDone(t, f.session)
	assert.Equal(t, SubmitInterrupted, out.Reason)
	assert.NoError(t, out.Err)
	assert.Equal(t, domain.Answers{"q2": "9"}, out.Answers)
	assert.Equal(t, 1, f.grader.callCount())
	assert.True(t, f.ticker.stopped.Load())
}

type stubProvider struct {
	exam *domain.ExamView
	err  error
}

func (p stubProvider) GetExam(context.Context, string, string) (*domain.ExamView, error) {
	return p.exam, p.err
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	s, err := Load(ctx, stubProvider{exam: testExam(5)}, "midterm", "s1", &fakeGrader{}, &fakeFocus{})
	require.NoError(t, err)
	assert.Equal(t, "Midterm", s.Exam().ExamName)
	assert.Equal(t, NotStarted, s.State())

	taken := testExam(5)
	taken.AlreadyTaken = true
	_, err = Load(ctx, stubProvider{exam: taken}, "midterm", "s1", &fakeGrader{}, &fakeFocus{})
	assert.ErrorIs(t, err, domain.ErrExamAlreadyTaken)

	_, err = Load(ctx, stubProvider{err: domain.ErrExamNotFound}, "nope", "s1", &fakeGrader{}, &fakeFocus{})
	assert.ErrorIs(t, err, domain.ErrExamNotFound)
}
