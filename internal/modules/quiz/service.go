package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/campus/internal/domain"
)

// Service serves exam metadata to students and grades submissions.
type Service struct {
	exams    domain.ExamRepository
	results  domain.ResultRepository
	profiles domain.ProfileRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates the quiz service.
func NewService(exams domain.ExamRepository, results domain.ResultRepository, profiles domain.ProfileRepository) *Service {
	return &Service{
		exams:    exams,
		results:  results,
		profiles: profiles,
		now:      time.Now,
		logger:   slog.Default().With("component", "quiz"),
	}
}

// List returns the exams of a course as seen by userID, without questions.
func (s *Service) List(ctx context.Context, courseID, userID string) ([]*domain.ExamView, error) {
	exams, err := s.exams.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]*domain.ExamView, 0, len(exams))
	for _, e := range exams {
		prior, err := s.results.FindForStudent(ctx, courseID, e.ExamID, userID)
		if err != nil {
			return nil, err
		}
		v := e.View(now, prior)
		v.Questions = nil
		views = append(views, v)
	}
	return views, nil
}

// View returns one exam as seen by userID. Questions are only present when
// the exam is published and not yet taken by the user.
func (s *Service) View(ctx context.Context, courseID, examID, userID string) (*domain.ExamView, error) {
	exam, err := s.exams.FindByID(ctx, courseID, examID)
	if err != nil {
		return nil, err
	}
	prior, err := s.results.FindForStudent(ctx, courseID, examID, userID)
	if err != nil {
		return nil, err
	}
	return exam.View(s.now(), prior), nil
}

// Submit grades answers and records the result. Each student gets one
// attempt per exam of a course.
func (s *Service) Submit(ctx context.Context, courseID, examID, userID string, answers domain.Answers) (*domain.SubmissionResult, error) {
	exam, err := s.exams.FindByID(ctx, courseID, examID)
	if err != nil {
		return nil, err
	}
	if !exam.IsPublished(s.now()) {
		return nil, fmt.Errorf("%w: %s opens at %s", domain.ErrExamNotPublished, examID, exam.PublishAt.Time.Format(time.RFC3339))
	}

	prior, err := s.results.FindForStudent(ctx, courseID, examID, userID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return nil, fmt.Errorf("%w: %s by %s", domain.ErrExamAlreadyTaken, examID, userID)
	}

	studentName := userID
	if sender, err := s.profiles.ResolveSender(ctx, userID); err == nil {
		studentName = sender.Name
	} else if !errors.Is(err, domain.ErrSenderNotFound) {
		return nil, err
	}

	marks := exam.Grade(answers)
	if answers == nil {
		answers = domain.Answers{}
	}
	stored, err := s.results.Create(ctx, &domain.QuizResult{
		ExamID:      examID,
		CourseID:    courseID,
		StudentID:   userID,
		StudentName: studentName,
		Marks:       marks,
		Answers:     answers,
	})
	if err != nil {
		// A concurrent submission may have won the unique key.
		if again, ferr := s.results.FindForStudent(ctx, courseID, examID, userID); ferr == nil && again != nil {
			return nil, fmt.Errorf("%w: %s by %s", domain.ErrExamAlreadyTaken, examID, userID)
		}
		return nil, err
	}

	s.logger.Info("Quiz submitted", "course_id", courseID, "exam_id", examID, "student_id", userID,
		"marks", marks, "total_marks", exam.TotalMarks, "answered", len(answers))

	return &domain.SubmissionResult{
		Accepted: true,
		Result:   &domain.ResultSummary{Marks: stored.Marks, TotalMarks: exam.TotalMarks, Remarks: stored.Remarks},
	}, nil
}
