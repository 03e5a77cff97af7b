package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Profile is the identity record of a student or faculty member as far as
// chat and quizzes need it.
type Profile struct {
	ID     *surrealmodels.RecordID `json:"id,omitempty" surrealdb:"id,omitempty"`
	UserID string                  `json:"user_id" surrealdb:"user_id" validate:"required"`
	Name   string                  `json:"name" surrealdb:"name" validate:"required"`
	ImgURL string                  `json:"img_url,omitempty" surrealdb:"img_url,omitempty"`
}

// Sender holds the display fields attached to every pushed message.
type Sender struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	ImgURL string `json:"img_url"`
}

// Sender returns the display subset of the profile.
func (p *Profile) Sender() Sender {
	return Sender{UserID: p.UserID, Name: p.Name, ImgURL: p.ImgURL}
}

// ProfileRepository resolves user identifiers to display information.
type ProfileRepository interface {
	// ResolveSender returns ErrSenderNotFound when no profile exists for userID.
	ResolveSender(ctx context.Context, userID string) (*Sender, error)
}
