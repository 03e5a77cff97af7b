package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfrund/campus/internal/domain"
)

const profileTable = "profile"

var _ domain.ProfileRepository = (*ProfileStore)(nil)

// ProfileStore resolves chat senders and quiz students from the profile table.
type ProfileStore struct {
	client Client[domain.Profile]
}

// NewProfileStore creates a new ProfileStore with the given database client.
func NewProfileStore(client Client[domain.Profile]) *ProfileStore {
	return &ProfileStore{client: client}
}

// ResolveSender implements domain.ProfileRepository.
func (s *ProfileStore) ResolveSender(ctx context.Context, userID string) (*domain.Sender, error) {
	if userID == "" {
		return nil, domain.ErrSenderNotFound
	}

	profile, err := s.client.QueryOne(ctx, "SELECT * FROM profile WHERE user_id = $user_id",
		map[string]any{"user_id": userID})
	if err != nil {
		return nil, persistenceError("resolve sender", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSenderNotFound, userID)
	}

	sender := profile.Sender()
	return &sender, nil
}

// Save creates or replaces the profile keyed by its user ID.
func (s *ProfileStore) Save(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	if p == nil {
		return nil, errors.New("profile cannot be nil")
	}
	data := map[string]any{
		"user_id": p.UserID,
		"name":    p.Name,
		"img_url": p.ImgURL,
	}
	saved, err := s.client.Upsert(ctx, profileTable, p.UserID, data)
	if err != nil {
		return nil, persistenceError("save profile", err)
	}
	return saved, nil
}

// persistenceError tags a storage failure with domain.ErrPersistence while
// keeping the database cause in the chain.
func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
