package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/filestore"
	"github.com/nfrund/campus/internal/middleware"
)

// FileHandler handles HTTP requests for chat attachments.
type FileHandler struct {
	files *filestore.Service
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(files *filestore.Service) *FileHandler {
	return &FileHandler{files: files}
}

// UploadFile handles attachment uploads from a multipart form.
func (h *FileHandler) UploadFile(c echo.Context) error {
	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	var req UploadFileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format.")
	}
	// echo's binder does not fill multipart file headers.
	if fh, err := c.FormFile("file"); err == nil {
		req.File = fh
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	src, err := req.File.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to open uploaded file")
	}
	defer src.Close()

	created, err := h.files.Upload(ctx, req.UserID, req.File.Filename, req.File.Header.Get("Content-Type"), req.File.Size, src)
	switch {
	case errors.Is(err, filestore.ErrTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Code: "too_large", Message: err.Error()})
	case errors.Is(err, filestore.ErrTypeNotAllowed):
		return c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Code: "type_not_allowed", Message: err.Error()})
	case err != nil:
		logger.Error("Failed to store attachment", slog.String("user_id", req.UserID), slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save file")
	}

	return c.JSON(http.StatusCreated, NewFileResponse(created))
}

// DownloadFile streams the content of an attachment.
func (h *FileHandler) DownloadFile(c echo.Context) error {
	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	fileID := c.Param("id")
	file, content, err := h.files.Open(ctx, fileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "File not found")
		}
		logger.Error("Failed to open attachment", slog.String("file_id", fileID), slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "Could not retrieve file")
	}
	defer content.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+file.Filename+`"`)
	return c.Stream(http.StatusOK, file.MIMEType, content)
}
