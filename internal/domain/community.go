package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Community groups the members of a course chat. Messages only ever get
// appended to it.
type Community struct {
	ID          *surrealmodels.RecordID `json:"id,omitempty" surrealdb:"id,omitempty"`
	CommunityID string                  `json:"community_id" surrealdb:"community_id"`
	Name        string                  `json:"name" surrealdb:"name"`
	Members     []string                `json:"members" surrealdb:"members"`
	Messages    []string                `json:"messages" surrealdb:"messages"`
}

// CommunityRepository covers the community operations chat delivery needs.
// Both methods return ErrCommunityNotFound for unknown communities.
type CommunityRepository interface {
	GetMembers(ctx context.Context, communityID string) ([]string, error)
	AppendMessageRef(ctx context.Context, communityID, messageRef string) error
}
