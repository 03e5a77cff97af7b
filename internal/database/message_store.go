package database

import (
	"context"
	"errors"
	"time"

	"github.com/nfrund/campus/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const messageTable = "message"

var _ domain.MessageRepository = (*MessageStore)(nil)

// MessageStore is the append-only chat log.
type MessageStore struct {
	client Client[domain.Message]
	now    func() time.Time
}

// NewMessageStore creates a new MessageStore with the given database client.
func NewMessageStore(client Client[domain.Message]) *MessageStore {
	return &MessageStore{client: client, now: time.Now}
}

// Append persists m and returns the stored record. The timestamp is assigned here.
func (s *MessageStore) Append(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	if m == nil {
		return nil, errors.New("message to append cannot be nil")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	m.Timestamp = &surrealmodels.CustomDateTime{Time: s.now().UTC()}
	data := map[string]any{
		"community_id": m.CommunityID,
		"sender":       m.Sender,
		"recipient":    m.Recipient,
		"content":      m.Content,
		"message_type": m.Type,
		"timestamp":    m.Timestamp,
		"file_url":     m.FileURL,
	}

	created, err := s.client.Create(ctx, messageTable, data)
	if err != nil {
		return nil, persistenceError("append message", err)
	}
	return created, nil
}

// ListByCommunity returns the latest limit messages of a community, oldest first.
func (s *MessageStore) ListByCommunity(ctx context.Context, communityID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT * FROM (
		SELECT * FROM message WHERE community_id = $community_id ORDER BY timestamp DESC LIMIT $limit
	) ORDER BY timestamp ASC`

	rows, err := s.client.Query(ctx, query, map[string]any{"community_id": communityID, "limit": limit})
	if err != nil {
		return nil, persistenceError("list messages", err)
	}

	out := make([]*domain.Message, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}
