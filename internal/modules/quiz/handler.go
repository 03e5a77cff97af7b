package quiz

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/middleware"
)

// Handler serves the student quiz endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new quiz Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type submitRequest struct {
	UserID  string         `json:"userId" validate:"required"`
	Answers domain.Answers `json:"answers"`
}

// ListExams returns the exams of a course for the requesting student.
func (h *Handler) ListExams(c echo.Context) error {
	views, err := h.service.List(c.Request().Context(), c.Param("courseId"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

// GetExam returns the exam view for the requesting student.
func (h *Handler) GetExam(c echo.Context) error {
	view, err := h.service.View(c.Request().Context(), c.Param("courseId"), c.Param("examId"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// SubmitExam grades and records an attempt.
func (h *Handler) SubmitExam(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Submit(c.Request().Context(), c.Param("courseId"), c.Param("examId"), req.UserID, req.Answers)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
