package domain

import (
	"context"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Option is one choice of a multiple-choice question.
type Option struct {
	Text      string `json:"text" surrealdb:"text"`
	IsCorrect bool   `json:"is_correct" surrealdb:"is_correct"`
}

// Question is a stored exam question, including the answer key.
type Question struct {
	QuestionID   string   `json:"question_id" surrealdb:"question_id"`
	QuestionText string   `json:"question_text" surrealdb:"question_text"`
	Options      []Option `json:"options" surrealdb:"options"`
	Marks        int      `json:"marks" surrealdb:"marks"`
}

// Exam is a timed quiz attached to a course. It becomes available at PublishAt.
type Exam struct {
	ID              *surrealmodels.RecordID       `json:"id,omitempty" surrealdb:"id,omitempty"`
	ExamID          string                        `json:"exam_id" surrealdb:"exam_id"`
	CourseID        string                        `json:"course_id" surrealdb:"course_id"`
	ExamName        string                        `json:"exam_name" surrealdb:"exam_name"`
	PublishAt       *surrealmodels.CustomDateTime `json:"date,omitempty" surrealdb:"date,omitempty"`
	DurationMinutes int                           `json:"duration" surrealdb:"duration"`
	TotalMarks      int                           `json:"total_marks" surrealdb:"total_marks"`
	Guidelines      string                        `json:"guidelines" surrealdb:"guidelines"`
	Questions       []Question                    `json:"questions" surrealdb:"questions"`
}

// Answers maps a question ID to the text of the chosen option.
type Answers map[string]string

// QuizResult is one student's graded attempt.
type QuizResult struct {
	ID          *surrealmodels.RecordID       `json:"id,omitempty" surrealdb:"id,omitempty"`
	ExamID      string                        `json:"exam_id" surrealdb:"exam_id"`
	CourseID    string                        `json:"course_id" surrealdb:"course_id"`
	StudentID   string                        `json:"student_id" surrealdb:"student_id"`
	StudentName string                        `json:"student_name" surrealdb:"student_name"`
	Marks       int                           `json:"marks" surrealdb:"marks"`
	Remarks     string                        `json:"remarks" surrealdb:"remarks"`
	Answers     Answers                       `json:"answers" surrealdb:"answers"`
	SubmittedAt *surrealmodels.CustomDateTime `json:"submitted_at,omitempty" surrealdb:"submitted_at,omitempty"`
}

// IsPublished reports whether the exam can be taken at now.
func (e *Exam) IsPublished(now time.Time) bool {
	return e.PublishAt == nil || !now.Before(e.PublishAt.Time)
}

// Grade sums the marks of every question whose chosen option is correct.
// Unknown question IDs and unanswered questions score zero.
func (e *Exam) Grade(answers Answers) int {
	marks := 0
	for _, q := range e.Questions {
		chosen, ok := answers[q.QuestionID]
		if !ok {
			continue
		}
		for _, o := range q.Options {
			if o.IsCorrect && o.Text == chosen {
				marks += q.Marks
				break
			}
		}
	}
	return marks
}

// View builds what a student may see of the exam at now. Questions are only
// included when the exam can be started, and never carry the answer key.
func (e *Exam) View(now time.Time, prior *QuizResult) *ExamView {
	v := &ExamView{
		ExamID:          e.ExamID,
		CourseID:        e.CourseID,
		ExamName:        e.ExamName,
		IsPublished:     e.IsPublished(now),
		AlreadyTaken:    prior != nil,
		DurationMinutes: e.DurationMinutes,
		TotalMarks:      e.TotalMarks,
		Guidelines:      e.Guidelines,
	}
	if e.PublishAt != nil {
		v.PublishAt = e.PublishAt.Time
	}
	if prior != nil {
		v.PriorResult = &ResultSummary{Marks: prior.Marks, TotalMarks: e.TotalMarks, Remarks: prior.Remarks}
	}
	if v.IsPublished && !v.AlreadyTaken {
		v.Questions = make([]QuestionView, 0, len(e.Questions))
		for _, q := range e.Questions {
			qv := QuestionView{QuestionID: q.QuestionID, QuestionText: q.QuestionText, Marks: q.Marks}
			for _, o := range q.Options {
				qv.Options = append(qv.Options, OptionView{Text: o.Text})
			}
			v.Questions = append(v.Questions, qv)
		}
	}
	return v
}

// OptionView is an option without its correctness flag.
type OptionView struct {
	Text string `json:"text"`
}

// QuestionView is a question as shown to a student.
type QuestionView struct {
	QuestionID   string       `json:"questionId"`
	QuestionText string       `json:"questionText"`
	Options      []OptionView `json:"options"`
	Marks        int          `json:"marks"`
}

// ResultSummary is the graded outcome shown to the student.
type ResultSummary struct {
	Marks      int    `json:"marks"`
	TotalMarks int    `json:"totalMarks"`
	Remarks    string `json:"remarks"`
}

// ExamView is the exam metadata exchanged with exam clients.
type ExamView struct {
	ExamID          string         `json:"examId"`
	CourseID        string         `json:"courseId"`
	ExamName        string         `json:"examName"`
	IsPublished     bool           `json:"isPublished"`
	PublishAt       time.Time      `json:"publishAt"`
	AlreadyTaken    bool           `json:"alreadyTaken"`
	DurationMinutes int            `json:"durationMinutes"`
	TotalMarks      int            `json:"totalMarks"`
	Guidelines      string         `json:"guidelines,omitempty"`
	Questions       []QuestionView `json:"questions,omitempty"`
	PriorResult     *ResultSummary `json:"priorResult,omitempty"`
}

// HasQuestion reports whether questionID belongs to the exam.
func (v *ExamView) HasQuestion(questionID string) bool {
	for _, q := range v.Questions {
		if q.QuestionID == questionID {
			return true
		}
	}
	return false
}

// SubmissionResult is the grader's reply to a submission.
type SubmissionResult struct {
	Accepted bool           `json:"accepted"`
	Result   *ResultSummary `json:"result,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// ExamRepository reads exam definitions.
type ExamRepository interface {
	// FindByID returns ErrExamNotFound if the exam does not exist in the course.
	FindByID(ctx context.Context, courseID, examID string) (*Exam, error)
	ListByCourse(ctx context.Context, courseID string) ([]*Exam, error)
}

// ResultRepository stores graded attempts.
type ResultRepository interface {
	// FindForStudent returns nil, nil when the student has no result for the
	// course's exam yet.
	FindForStudent(ctx context.Context, courseID, examID, studentID string) (*QuizResult, error)
	Create(ctx context.Context, r *QuizResult) (*QuizResult, error)
}
