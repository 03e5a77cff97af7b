package quiz

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"

	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/middleware"
	"github.com/nfrund/campus/internal/module"
)

// QuizModule serves the student quiz API under /api/student.
type QuizModule struct {
	module.BaseModule
	deps Dependencies
}

// Dependencies holds all the services that the QuizModule requires to operate.
type Dependencies struct {
	Exams         domain.ExamRepository
	Results       domain.ResultRepository
	Profiles      domain.ProfileRepository
	SubmitLimiter echo.MiddlewareFunc
}

// New creates a new instance of the QuizModule, injecting its dependencies.
func New(deps Dependencies) *QuizModule {
	return &QuizModule{deps: deps}
}

// Name returns the module name.
func (m *QuizModule) Name() string {
	return "student"
}

// Register provides the quiz Service to the injector.
func (m *QuizModule) Register(i do.Injector) error {
	do.ProvideValue(i, NewService(m.deps.Exams, m.deps.Results, m.deps.Profiles))
	return nil
}

// Boot sets up the routes.
func (m *QuizModule) Boot(ctx context.Context, g *echo.Group, i do.Injector) error {
	service, err := do.Invoke[*Service](i)
	if err != nil {
		return err
	}

	slog.Info("Booting QuizModule: Setting up routes...")
	handler := NewHandler(service)

	var submitMiddleware []echo.MiddlewareFunc
	if m.deps.SubmitLimiter != nil {
		submitMiddleware = append(submitMiddleware, m.deps.SubmitLimiter)
	}

	courses := g.Group("/courses/:courseId/quiz")
	courses.GET("", handler.ListExams, middleware.RequireUser)
	courses.GET("/:examId", handler.GetExam, middleware.RequireUser)
	courses.POST("/:examId/submit", handler.SubmitExam, submitMiddleware...)
	return nil
}
