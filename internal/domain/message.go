package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// MessageType distinguishes plain text messages from attachments.
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
)

// Message is a persisted chat message. Messages are append-only and never
// modified after creation.
type Message struct {
	ID          *surrealmodels.RecordID       `json:"id,omitempty" surrealdb:"id,omitempty"`
	CommunityID string                        `json:"community_id" surrealdb:"community_id" validate:"required"`
	Sender      string                        `json:"sender" surrealdb:"sender" validate:"required"`
	Recipient   *string                       `json:"recipient" surrealdb:"recipient"` // nil for community broadcast
	Content     *string                       `json:"content" surrealdb:"content"`
	Type        MessageType                   `json:"message_type" surrealdb:"message_type" validate:"required,oneof=text file"`
	Timestamp   *surrealmodels.CustomDateTime `json:"timestamp,omitempty" surrealdb:"timestamp,omitempty"`
	FileURL     *string                       `json:"file_url,omitempty" surrealdb:"file_url,omitempty"`
}

// Validate checks the struct tags and the per-type content rules.
func (m *Message) Validate() error {
	if err := validatorInstance.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch m.Type {
	case MessageTypeText:
		if m.Content == nil || strings.TrimSpace(*m.Content) == "" {
			return fmt.Errorf("%w: text message requires content", ErrInvalidMessage)
		}
	case MessageTypeFile:
		if m.FileURL == nil || *m.FileURL == "" {
			return fmt.Errorf("%w: file message requires a file url", ErrInvalidMessage)
		}
	}
	return nil
}

// Ref returns the record reference of a persisted message, or "" if the
// message has not been stored yet.
func (m *Message) Ref() string {
	if m.ID == nil {
		return ""
	}
	return m.ID.String()
}

// SentAt returns the message timestamp, zero if unset.
func (m *Message) SentAt() time.Time {
	if m.Timestamp == nil {
		return time.Time{}
	}
	return m.Timestamp.Time
}

// NewChannelMessage builds an unsaved community message. Empty content and
// file references are stored as null.
func NewChannelMessage(communityID, senderID, content string, typ MessageType, fileURL string) *Message {
	m := &Message{
		CommunityID: communityID,
		Sender:      senderID,
		Type:        typ,
	}
	if content != "" {
		m.Content = &content
	}
	if fileURL != "" {
		m.FileURL = &fileURL
	}
	return m
}

// ChannelMessage is the payload pushed to connected members and returned by
// the history endpoint: the persisted message with the sender resolved.
type ChannelMessage struct {
	ID          string      `json:"id"`
	CommunityID string      `json:"communityId"`
	Sender      Sender      `json:"sender"`
	Recipient   *string     `json:"recipient"`
	Content     *string     `json:"content"`
	Type        MessageType `json:"messageType"`
	Timestamp   time.Time   `json:"timestamp"`
	FileURL     *string     `json:"fileUrl,omitempty"`
}

// NewChannelMessagePayload joins a persisted message with its sender.
func NewChannelMessagePayload(m *Message, sender Sender) ChannelMessage {
	return ChannelMessage{
		ID:          m.Ref(),
		CommunityID: m.CommunityID,
		Sender:      sender,
		Recipient:   m.Recipient,
		Content:     m.Content,
		Type:        m.Type,
		Timestamp:   m.SentAt(),
		FileURL:     m.FileURL,
	}
}

// MessageRepository is the append-only message log.
type MessageRepository interface {
	// Append stores the message and returns it with its ID set.
	Append(ctx context.Context, m *Message) (*Message, error)
	// ListByCommunity returns up to limit messages, oldest first.
	ListByCommunity(ctx context.Context, communityID string, limit int) ([]*Message, error)
}
