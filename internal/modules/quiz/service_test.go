package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/handlers"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type memExams struct {
	exams []*domain.Exam
}

func (m *memExams) FindByID(_ context.Context, courseID, examID string) (*domain.Exam, error) {
	for _, e := range m.exams {
		if e.CourseID == courseID && e.ExamID == examID {
			return e, nil
		}
	}
	return nil, domain.ErrExamNotFound
}

func (m *memExams) ListByCourse(_ context.Context, courseID string) ([]*domain.Exam, error) {
	var out []*domain.Exam
	for _, e := range m.exams {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memResults struct {
	mu        sync.Mutex
	results   map[string]*domain.QuizResult
	createErr error
}

func (m *memResults) FindForStudent(_ context.Context, courseID, examID, studentID string) (*domain.QuizResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[courseID+"_"+examID+"_"+studentID], nil
}

func (m *memResults) Create(_ context.Context, r *domain.QuizResult) (*domain.QuizResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	key := r.CourseID + "_" + r.ExamID + "_" + r.StudentID
	if _, ok := m.results[key]; ok {
		return nil, errors.New("record already exists")
	}
	m.results[key] = r
	return r, nil
}

type memProfiles map[string]string

func (m memProfiles) ResolveSender(_ context.Context, userID string) (*domain.Sender, error) {
	name, ok := m[userID]
	if !ok {
		return nil, domain.ErrSenderNotFound
	}
	return &domain.Sender{UserID: userID, Name: name}, nil
}

func sampleExams() []*domain.Exam {
	return []*domain.Exam{
		{
			ExamID:          "midterm",
			CourseID:        "cs101",
			ExamName:        "Midterm",
			PublishAt:       &surrealmodels.CustomDateTime{Time: fixedNow.Add(-time.Hour)},
			DurationMinutes: 30,
			TotalMarks:      5,
			Questions: []domain.Question{
				{QuestionID: "q1", QuestionText: "2+2", Marks: 2, Options: []domain.Option{{Text: "4", IsCorrect: true}, {Text: "5"}}},
				{QuestionID: "q2", QuestionText: "3*3", Marks: 3, Options: []domain.Option{{Text: "6"}, {Text: "9", IsCorrect: true}}},
			},
		},
		{
			ExamID:          "final",
			CourseID:        "cs101",
			ExamName:        "Final",
			PublishAt:       &surrealmodels.CustomDateTime{Time: fixedNow.Add(24 * time.Hour)},
			DurationMinutes: 60,
			TotalMarks:      10,
			Questions:       []domain.Question{{QuestionID: "f1", QuestionText: "?", Marks: 10, Options: []domain.Option{{Text: "a", IsCorrect: true}}}},
		},
	}
}

func newTestService() (*Service, *memResults) {
	results := &memResults{results: map[string]*domain.QuizResult{}}
	s := NewService(&memExams{exams: sampleExams()}, results, memProfiles{"s1": "Asha"})
	s.now = func() time.Time { return fixedNow }
	return s, results
}

func TestService_View(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	t.Run("published and not taken includes questions without answers", func(t *testing.T) {
		v, err := s.View(ctx, "cs101", "midterm", "s1")
		require.NoError(t, err)
		assert.True(t, v.IsPublished)
		assert.False(t, v.AlreadyTaken)
		require.Len(t, v.Questions, 2)

		raw, err := json.Marshal(v)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "is_correct")
		assert.NotContains(t, string(raw), "isCorrect")
	})

	t.Run("unpublished has no questions", func(t *testing.T) {
		v, err := s.View(ctx, "cs101", "final", "s1")
		require.NoError(t, err)
		assert.False(t, v.IsPublished)
		assert.Empty(t, v.Questions)
		assert.Equal(t, fixedNow.Add(24*time.Hour), v.PublishAt)
	})

	t.Run("unknown exam", func(t *testing.T) {
		_, err := s.View(ctx, "cs101", "nope", "s1")
		assert.ErrorIs(t, err, domain.ErrExamNotFound)
	})
}

func TestService_Submit(t *testing.T) {
	s, results := newTestService()
	ctx := context.Background()

	res, err := s.Submit(ctx, "cs101", "midterm", "s1", domain.Answers{"q1": "4", "q2": "6"})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 2, res.Result.Marks)
	assert.Equal(t, 5, res.Result.TotalMarks)
	assert.Equal(t, "Asha", results.results["cs101_midterm_s1"].StudentName)

	t.Run("second attempt is rejected", func(t *testing.T) {
		_, err := s.Submit(ctx, "cs101", "midterm", "s1", domain.Answers{"q1": "4", "q2": "9"})
		assert.ErrorIs(t, err, domain.ErrExamAlreadyTaken)
		assert.Equal(t, 2, results.results["cs101_midterm_s1"].Marks)
	})

	t.Run("view now shows the prior result", func(t *testing.T) {
		v, err := s.View(ctx, "cs101", "midterm", "s1")
		require.NoError(t, err)
		assert.True(t, v.AlreadyTaken)
		assert.Empty(t, v.Questions)
		require.NotNil(t, v.PriorResult)
		assert.Equal(t, 2, v.PriorResult.Marks)
	})

	t.Run("unpublished exam", func(t *testing.T) {
		_, err := s.Submit(ctx, "cs101", "final", "s1", nil)
		assert.ErrorIs(t, err, domain.ErrExamNotPublished)
	})

	t.Run("empty answers from a student without profile", func(t *testing.T) {
		res, err := s.Submit(ctx, "cs101", "midterm", "s2", nil)
		require.NoError(t, err)
		assert.Zero(t, res.Result.Marks)
		assert.Equal(t, "s2", results.results["cs101_midterm_s2"].StudentName)
		assert.NotNil(t, results.results["cs101_midterm_s2"].Answers)
	})
}

func TestService_ResultsAreScopedToCourse(t *testing.T) {
	s, results := newTestService()
	ctx := context.Background()

	other := *sampleExams()[0]
	other.CourseID = "cs202"
	other.ExamName = "Networks Midterm"
	s.exams.(*memExams).exams = append(s.exams.(*memExams).exams, &other)

	_, err := s.Submit(ctx, "cs101", "midterm", "s1", domain.Answers{"q1": "4"})
	require.NoError(t, err)

	v, err := s.View(ctx, "cs202", "midterm", "s1")
	require.NoError(t, err)
	assert.False(t, v.AlreadyTaken)
	assert.Nil(t, v.PriorResult)
	assert.Len(t, v.Questions, 2)

	listed, err := s.List(ctx, "cs202", "s1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.False(t, listed[0].AlreadyTaken)

	res, err := s.Submit(ctx, "cs202", "midterm", "s1", domain.Answers{"q1": "4", "q2": "9"})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Result.Marks)

	assert.Equal(t, 2, results.results["cs101_midterm_s1"].Marks)
	assert.Equal(t, 5, results.results["cs202_midterm_s1"].Marks)
}

func TestService_ConcurrentSubmitsRecordOneResult(t *testing.T) {
	s, results := newTestService()
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Submit(ctx, "cs101", "midterm", "s1", domain.Answers{"q1": "4"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrExamAlreadyTaken)
	}
	assert.Equal(t, 1, accepted)
	assert.Len(t, results.results, 1)
}

func TestService_List(t *testing.T) {
	s, _ := newTestService()

	views, err := s.List(context.Background(), "cs101", "s1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Empty(t, v.Questions)
	}
	assert.True(t, views[0].IsPublished)
	assert.False(t, views[1].IsPublished)
}

func setupQuizServer(t *testing.T) *echo.Echo {
	t.Helper()

	s, _ := newTestService()
	e := echo.New()
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(e)

	injector := do.New()
	m := New(Dependencies{Exams: &memExams{}, Results: &memResults{}, Profiles: memProfiles{}})
	require.NoError(t, m.Register(injector))
	do.OverrideValue(injector, s)
	require.NoError(t, m.Boot(context.Background(), e.Group("/api/"+m.Name()), injector))
	return e
}

func TestHandler(t *testing.T) {
	e := setupQuizServer(t)

	send := func(method, target, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		} else {
			req = httptest.NewRequest(method, target, nil)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	t.Run("view requires a user", func(t *testing.T) {
		rec := send(http.MethodGet, "/api/student/courses/cs101/quiz/midterm", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("view", func(t *testing.T) {
		rec := send(http.MethodGet, "/api/student/courses/cs101/quiz/midterm?userId=s1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var v domain.ExamView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
		assert.Equal(t, "Midterm", v.ExamName)
		assert.Len(t, v.Questions, 2)
	})

	t.Run("unknown exam is 404", func(t *testing.T) {
		rec := send(http.MethodGet, "/api/student/courses/cs101/quiz/nope?userId=s1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("submit then resubmit", func(t *testing.T) {
		rec := send(http.MethodPost, "/api/student/courses/cs101/quiz/midterm/submit", `{"userId":"s1","answers":{"q1":"4","q2":"9"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res domain.SubmissionResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.True(t, res.Accepted)
		assert.Equal(t, 5, res.Result.Marks)

		rec = send(http.MethodPost, "/api/student/courses/cs101/quiz/midterm/submit", `{"userId":"s1","answers":{}}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("submit before publish is 422", func(t *testing.T) {
		rec := send(http.MethodPost, "/api/student/courses/cs101/quiz/final/submit", `{"userId":"s1"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("submit without user is 400", func(t *testing.T) {
		rec := send(http.MethodPost, "/api/student/courses/cs101/quiz/midterm/submit", `{"answers":{}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := send(http.MethodGet, "/api/student/courses/cs101/quiz?userId=s1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var views []domain.ExamView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
		assert.Len(t, views, 2)
	})
}
