package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// File is the metadata of a chat attachment. The content lives in the
// attachment store under StoragePath.
type File struct {
	ID          *surrealmodels.RecordID       `json:"id,omitempty" surrealdb:"id,omitempty"`
	UserID      string                        `json:"user_id" surrealdb:"user_id" validate:"required"`
	Filename    string                        `json:"filename" surrealdb:"filename" validate:"required,min=1,max=255"`
	MIMEType    string                        `json:"mime_type" surrealdb:"mime_type" validate:"required"`
	Size        int64                         `json:"size" surrealdb:"size" validate:"gte=0"`
	StoragePath string                        `json:"storage_path" surrealdb:"storage_path" validate:"required,safepath"`
	CreatedAt   *surrealmodels.CustomDateTime `json:"created_at,omitempty" surrealdb:"created_at,omitempty"`
}

// Validate runs validation checks on the File struct using the defined tags.
func (f *File) Validate() error {
	return validatorInstance.Struct(f)
}

// FileRepository defines the interface for attachment metadata storage.
type FileRepository interface {
	Create(ctx context.Context, file *File) (*File, error)
	FindByID(ctx context.Context, fileID string) (*File, error)
	DeleteByID(ctx context.Context, fileID string) error
}
