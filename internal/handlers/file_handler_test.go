package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/filestore"
	"github.com/nfrund/campus/internal/handlers"
	"github.com/nfrund/campus/internal/storage"
)

type memFileRepo struct {
	mu    sync.Mutex
	files map[string]*domain.File
}

func (r *memFileRepo) Create(_ context.Context, f *domain.File) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := surrealmodels.NewRecordID("file", fmt.Sprintf("f%d", len(r.files)+1))
	f.ID = &id
	r.files[id.String()] = f
	return f, nil
}

func (r *memFileRepo) FindByID(_ context.Context, id string) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.files[id]; ok {
		return f, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memFileRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}

func setupFileServer(t *testing.T, maxSize int64) *echo.Echo {
	t.Helper()

	repo := &memFileRepo{files: map[string]*domain.File{}}
	svc := filestore.NewService(repo, storage.NewAferoStore(afero.NewMemMapFs()), maxSize, []string{"text/plain"})
	h := handlers.NewFileHandler(svc)

	e := echo.New()
	e.Validator = handlers.NewValidator()
	e.POST("/api/file/upload-file", h.UploadFile)
	e.GET("/api/file/:id", h.DownloadFile)
	return e
}

func uploadRequest(t *testing.T, userID, filename, contentType, content string) *http.Request {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	if userID != "" {
		require.NoError(t, writer.WriteField("userId", userID))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/file/upload-file", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestFileHandler_UploadThenDownload(t *testing.T) {
	e := setupFileServer(t, 1024)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "u1", "notes.txt", "text/plain", "lecture notes"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp handlers.FileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "notes.txt", resp.Filename)
	assert.Equal(t, int64(len("lecture notes")), resp.Size)
	assert.Equal(t, "/api/file/"+resp.ID, resp.FileURL)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.FileURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lecture notes", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get(echo.HeaderContentType))
}

func TestFileHandler_UploadRejections(t *testing.T) {
	e := setupFileServer(t, 4)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"missing user", uploadRequest(t, "", "a.txt", "text/plain", "ab"), http.StatusBadRequest},
		{"too large", uploadRequest(t, "u1", "a.txt", "text/plain", "abcdefgh"), http.StatusRequestEntityTooLarge},
		{"type not allowed", uploadRequest(t, "u1", "a.exe", "application/octet-stream", "ab"), http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestFileHandler_DownloadUnknown(t *testing.T) {
	e := setupFileServer(t, 0)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/file/file:missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPErrorHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(e)

	routes := map[string]error{
		"/taken":     fmt.Errorf("submit: %w", domain.ErrExamAlreadyTaken),
		"/early":     domain.ErrExamNotPublished,
		"/community": fmt.Errorf("%w: c9", domain.ErrCommunityNotFound),
		"/db":        fmt.Errorf("append: %w: timeout", domain.ErrPersistence),
		"/plain":     echo.NewHTTPError(http.StatusTeapot, "short and stout"),
	}
	for path, err := range routes {
		err := err
		e.GET(path, func(c echo.Context) error { return err })
	}

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/taken", http.StatusConflict, "already_taken"},
		{"/early", http.StatusUnprocessableEntity, "not_published"},
		{"/community", http.StatusNotFound, "community_not_found"},
		{"/db", http.StatusBadGateway, "persistence_error"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)

			var body handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
