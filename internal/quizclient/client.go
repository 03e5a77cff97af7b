// Package quizclient talks to the quiz REST endpoints of the campus server.
// A Client is bound to one course and serves as both the exam provider and
// the grader of an assessment session.
package quizclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nfrund/campus/internal/assessment"
	"github.com/nfrund/campus/internal/domain"
)

const defaultTimeout = 15 * time.Second

var (
	_ assessment.ExamProvider = (*Client)(nil)
	_ assessment.Grader       = (*Client)(nil)
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned status %d (%s): %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the reply to the matching domain error.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrExamNotFound
	case http.StatusConflict:
		return domain.ErrExamAlreadyTaken
	case http.StatusUnprocessableEntity:
		return domain.ErrExamNotPublished
	}
	return nil
}

// Client calls /api/student/courses/{courseId}/quiz.
type Client struct {
	baseURL  string
	courseID string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the course at baseURL (e.g. http://localhost:8080).
func New(baseURL, courseID string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		courseID: courseID,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   slog.Default().With("component", "quizclient", "course_id", courseID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) quizURL(parts ...string) string {
	u := c.baseURL + "/api/student/courses/" + url.PathEscape(c.courseID) + "/quiz"
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// ListExams returns every exam of the course as seen by userID.
func (c *Client) ListExams(ctx context.Context, userID string) ([]domain.ExamView, error) {
	var views []domain.ExamView
	target := c.quizURL() + "?userId=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, target, nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// GetExam returns the student's view of one exam.
func (c *Client) GetExam(ctx context.Context, examID, userID string) (*domain.ExamView, error) {
	var view domain.ExamView
	target := c.quizURL(examID) + "?userId=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, target, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

type submitRequest struct {
	UserID  string         `json:"userId"`
	Answers domain.Answers `json:"answers"`
}

// Submit sends the answers for grading.
func (c *Client) Submit(ctx context.Context, examID, userID string, answers domain.Answers) (*domain.SubmissionResult, error) {
	if answers == nil {
		answers = domain.Answers{}
	}
	var res domain.SubmissionResult
	body := submitRequest{UserID: userID, Answers: answers}
	if err := c.do(ctx, http.MethodPost, c.quizURL(examID, "submit"), body, &res); err != nil {
		return nil, err
	}
	c.logger.Info("Exam submitted", "exam_id", examID, "user_id", userID, "accepted", res.Accepted)
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	// echo's default handler replies {"message": ...}; domain errors add a code.
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// IsAPIError reports whether err carries a server reply.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
