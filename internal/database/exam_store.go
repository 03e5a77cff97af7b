package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nfrund/campus/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const (
	examTable   = "exam"
	resultTable = "quiz_result"
)

var (
	_ domain.ExamRepository   = (*ExamStore)(nil)
	_ domain.ResultRepository = (*ResultStore)(nil)
)

// ExamStore reads and seeds exam definitions.
type ExamStore struct {
	client Client[domain.Exam]
}

// NewExamStore creates a new ExamStore with the given database client.
func NewExamStore(client Client[domain.Exam]) *ExamStore {
	return &ExamStore{client: client}
}

// FindByID implements domain.ExamRepository.
func (s *ExamStore) FindByID(ctx context.Context, courseID, examID string) (*domain.Exam, error) {
	exam, err := s.client.QueryOne(ctx, "SELECT * FROM exam WHERE course_id = $course_id AND exam_id = $exam_id",
		map[string]any{"course_id": courseID, "exam_id": examID})
	if err != nil {
		return nil, persistenceError("find exam", err)
	}
	if exam == nil {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrExamNotFound, courseID, examID)
	}
	return exam, nil
}

// ListByCourse implements domain.ExamRepository, ordered by publish date.
func (s *ExamStore) ListByCourse(ctx context.Context, courseID string) ([]*domain.Exam, error) {
	rows, err := s.client.Query(ctx, "SELECT * FROM exam WHERE course_id = $course_id ORDER BY date ASC",
		map[string]any{"course_id": courseID})
	if err != nil {
		return nil, persistenceError("list exams", err)
	}
	out := make([]*domain.Exam, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

// Save creates or replaces an exam keyed by course and exam ID.
func (s *ExamStore) Save(ctx context.Context, e *domain.Exam) (*domain.Exam, error) {
	if e == nil {
		return nil, errors.New("exam cannot be nil")
	}
	questions := e.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	data := map[string]any{
		"exam_id":     e.ExamID,
		"course_id":   e.CourseID,
		"exam_name":   e.ExamName,
		"date":        e.PublishAt,
		"duration":    e.DurationMinutes,
		"total_marks": e.TotalMarks,
		"guidelines":  e.Guidelines,
		"questions":   questions,
	}
	saved, err := s.client.Upsert(ctx, examTable, e.CourseID+"_"+e.ExamID, data)
	if err != nil {
		return nil, persistenceError("save exam", err)
	}
	return saved, nil
}

// ResultStore stores graded quiz attempts.
type ResultStore struct {
	client Client[domain.QuizResult]
	now    func() time.Time
}

// NewResultStore creates a new ResultStore with the given database client.
func NewResultStore(client Client[domain.QuizResult]) *ResultStore {
	return &ResultStore{client: client, now: time.Now}
}

// FindForStudent implements domain.ResultRepository.
func (s *ResultStore) FindForStudent(ctx context.Context, courseID, examID, studentID string) (*domain.QuizResult, error) {
	r, err := s.client.QueryOne(ctx,
		"SELECT * FROM quiz_result WHERE course_id = $course_id AND exam_id = $exam_id AND student_id = $student_id",
		map[string]any{"course_id": courseID, "exam_id": examID, "student_id": studentID})
	if err != nil {
		return nil, persistenceError("find result", err)
	}
	return r, nil
}

// Create implements domain.ResultRepository. The record key is derived from
// course, exam and student, so a second attempt fails at the database as well.
func (s *ResultStore) Create(ctx context.Context, r *domain.QuizResult) (*domain.QuizResult, error) {
	if r == nil {
		return nil, errors.New("result cannot be nil")
	}
	r.SubmittedAt = &surrealmodels.CustomDateTime{Time: s.now().UTC()}
	answers := r.Answers
	if answers == nil {
		answers = domain.Answers{}
	}

	created, err := s.client.QueryOne(ctx, "CREATE type::thing($table, $key) CONTENT $data", map[string]any{
		"table": resultTable,
		"key":   resultKey(r.CourseID, r.ExamID, r.StudentID),
		"data": map[string]any{
			"exam_id":      r.ExamID,
			"course_id":    r.CourseID,
			"student_id":   r.StudentID,
			"student_name": r.StudentName,
			"marks":        r.Marks,
			"remarks":      r.Remarks,
			"answers":      answers,
			"submitted_at": r.SubmittedAt,
		},
	})
	if err != nil {
		return nil, persistenceError("create result", err)
	}
	if created == nil {
		return nil, persistenceError("create result", ErrQueryFailed)
	}
	return created, nil
}

func resultKey(courseID, examID, studentID string) string {
	return courseID + "_" + examID + "_" + studentID
}
