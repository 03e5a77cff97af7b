package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nfrund/campus/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const fileTable = "file"

// var _ ensures that FileStore implements the domain.FileRepository interface at compile time.
var _ domain.FileRepository = (*FileStore)(nil)

// FileStore keeps the metadata of uploaded chat attachments.
type FileStore struct {
	client Client[domain.File]
}

// NewFileStore creates a new FileStore with the given database client.
func NewFileStore(client Client[domain.File]) *FileStore {
	return &FileStore{client: client}
}

// Create inserts a new file metadata record into the database.
func (s *FileStore) Create(ctx context.Context, file *domain.File) (*domain.File, error) {
	if file == nil {
		return nil, errors.New("file to create cannot be nil")
	}
	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for file: %w", err)
	}

	file.CreatedAt = &surrealmodels.CustomDateTime{Time: time.Now().UTC()}
	fileData := map[string]any{
		"user_id":      file.UserID,
		"filename":     file.Filename,
		"mime_type":    file.MIMEType,
		"size":         file.Size,
		"storage_path": file.StoragePath,
		"created_at":   file.CreatedAt,
	}

	createdFile, err := s.client.Create(ctx, fileTable, fileData)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return createdFile, nil
}

// FindByID retrieves file metadata by its record ID ("file:xyz").
func (s *FileStore) FindByID(ctx context.Context, fileID string) (*domain.File, error) {
	f, err := s.client.Select(ctx, fileID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return f, err
}

// DeleteByID removes a file record from the database.
func (s *FileStore) DeleteByID(ctx context.Context, fileID string) error {
	return s.client.Delete(ctx, fileID)
}
