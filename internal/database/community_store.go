package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfrund/campus/internal/domain"
)

const communityTable = "community"

var _ domain.CommunityRepository = (*CommunityStore)(nil)

// CommunityStore reads community membership and records message references.
type CommunityStore struct {
	client Client[domain.Community]
}

// NewCommunityStore creates a new CommunityStore with the given database client.
func NewCommunityStore(client Client[domain.Community]) *CommunityStore {
	return &CommunityStore{client: client}
}

// Find returns the community or domain.ErrCommunityNotFound.
func (s *CommunityStore) Find(ctx context.Context, communityID string) (*domain.Community, error) {
	c, err := s.client.QueryOne(ctx, "SELECT * FROM community WHERE community_id = $community_id",
		map[string]any{"community_id": communityID})
	if err != nil {
		return nil, persistenceError("find community", err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCommunityNotFound, communityID)
	}
	return c, nil
}

// GetMembers returns the member user IDs in their stored order.
func (s *CommunityStore) GetMembers(ctx context.Context, communityID string) ([]string, error) {
	c, err := s.Find(ctx, communityID)
	if err != nil {
		return nil, err
	}
	return c.Members, nil
}

// AppendMessageRef adds messageRef to the end of the community's message list.
func (s *CommunityStore) AppendMessageRef(ctx context.Context, communityID, messageRef string) error {
	if messageRef == "" {
		return errors.New("message reference cannot be empty")
	}

	updated, err := s.client.QueryOne(ctx,
		"UPDATE community SET messages += $ref WHERE community_id = $community_id RETURN AFTER",
		map[string]any{"community_id": communityID, "ref": messageRef})
	if err != nil {
		return persistenceError("append message ref", err)
	}
	if updated == nil {
		return fmt.Errorf("%w: %s", domain.ErrCommunityNotFound, communityID)
	}
	return nil
}

// Save creates or replaces a community keyed by its community ID.
func (s *CommunityStore) Save(ctx context.Context, c *domain.Community) (*domain.Community, error) {
	if c == nil {
		return nil, errors.New("community cannot be nil")
	}
	members := c.Members
	if members == nil {
		members = []string{}
	}
	messages := c.Messages
	if messages == nil {
		messages = []string{}
	}
	saved, err := s.client.Upsert(ctx, communityTable, c.CommunityID, map[string]any{
		"community_id": c.CommunityID,
		"name":         c.Name,
		"members":      members,
		"messages":     messages,
	})
	if err != nil {
		return nil, persistenceError("save community", err)
	}
	return saved, nil
}
