package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/storage"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrTypeNotAllowed is returned when the MIME type is not on the allow list.
	ErrTypeNotAllowed = errors.New("file type not allowed")
)

// Service stores chat attachments: content in the storage backend, metadata
// in the file repository.
type Service struct {
	repo         domain.FileRepository
	store        storage.Store
	maxSize      int64
	allowedTypes map[string]bool
}

// NewService creates a new attachment service. An empty allowedTypes list
// accepts any MIME type; maxSize <= 0 disables the size limit.
func NewService(repo domain.FileRepository, store storage.Store, maxSize int64, allowedTypes []string) *Service {
	types := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		if t = strings.TrimSpace(t); t != "" {
			types[t] = true
		}
	}
	return &Service{repo: repo, store: store, maxSize: maxSize, allowedTypes: types}
}

// Upload checks the limits, saves the content under a unique path and creates
// the metadata record. The stored content is removed again if the record
// cannot be created.
func (s *Service) Upload(ctx context.Context, userID, originalFilename, mimeType string, size int64, content io.Reader) (*domain.File, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the limit of %d bytes", ErrTooLarge, size, s.maxSize)
	}
	if len(s.allowedTypes) > 0 && !s.allowedTypes[mimeType] {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotAllowed, mimeType)
	}

	filename := filepath.Base(originalFilename)
	meta := &domain.File{
		UserID:      userID,
		Filename:    filename,
		MIMEType:    mimeType,
		StoragePath: filepath.Join("attachments", userID, uuid.NewString()+filepath.Ext(filename)),
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}
	storagePath := meta.StoragePath

	var reader io.Reader = content
	if s.maxSize > 0 {
		reader = io.LimitReader(content, s.maxSize+1)
	}
	written, err := s.store.Save(ctx, storagePath, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}
	if s.maxSize > 0 && written > s.maxSize {
		_ = s.store.Delete(ctx, storagePath)
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxSize)
	}

	meta.Size = written
	created, err := s.repo.Create(ctx, meta)
	if err != nil {
		if derr := s.store.Delete(ctx, storagePath); derr != nil {
			slog.Warn("Failed to clean up stored file", "path", storagePath, "error", derr)
		}
		return nil, err
	}
	return created, nil
}

// Open returns the metadata and content of a stored attachment. The caller
// closes the reader.
func (s *Service) Open(ctx context.Context, fileID string) (*domain.File, io.ReadCloser, error) {
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.store.Open(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
		}
		return nil, nil, err
	}
	return file, content, nil
}

// URL is the download location of a stored attachment, used as the fileUrl
// of file messages.
func URL(file *domain.File) string {
	return "/api/file/" + file.ID.String()
}
