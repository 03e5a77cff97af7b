package handlers

import (
	"time"

	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/filestore"
)

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FileResponse is the DTO for an uploaded attachment. FileURL is what clients
// put into the fileUrl of a file message.
type FileResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MIMEType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	FileURL   string    `json:"fileUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewFileResponse creates a new FileResponse DTO from a domain.File model.
func NewFileResponse(file *domain.File) *FileResponse {
	r := &FileResponse{
		ID:       file.ID.String(),
		Filename: file.Filename,
		MIMEType: file.MIMEType,
		Size:     file.Size,
		FileURL:  filestore.URL(file),
	}
	if file.CreatedAt != nil {
		r.CreatedAt = file.CreatedAt.Time
	}
	return r
}
