package community

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/gateway"
	"github.com/nfrund/campus/internal/pubsub"
)

// ErrorNotifier reports a failed request back to the session that sent it.
type ErrorNotifier interface {
	PushError(sessionID, code, message string) error
}

// Subscriber turns send-channel-message frames from the gateway into sends.
type Subscriber struct {
	subscriber pubsub.Subscriber
	service    *Service
	notifier   ErrorNotifier
	logger     *slog.Logger
}

// NewSubscriber creates the inbound frame subscriber of the community module.
func NewSubscriber(sub pubsub.Subscriber, service *Service, notifier ErrorNotifier) *Subscriber {
	return &Subscriber{
		subscriber: sub,
		service:    service,
		notifier:   notifier,
		logger:     slog.Default().With("component", "community.subscriber"),
	}
}

// Start registers the subscription. Frames are handled one at a time until ctx
// is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting community subscriber",
		"topic", SendChannelMessageInbound.Name(),
		"description", SendChannelMessageInbound.Description())
	return pubsub.Subscribe(ctx, s.subscriber, SendChannelMessageInbound, s.handleSend)
}

func (s *Subscriber) handleSend(ctx context.Context, msg pubsub.Message, req SendChannelMessageRequest) error {
	_, err := s.service.SendChannelMessage(ctx, req, msg.UserID)
	if err == nil {
		return nil
	}

	sessionID := msg.Metadata[gateway.MetaSessionID]
	if sessionID != "" {
		if nerr := s.notifier.PushError(sessionID, errorCode(err), err.Error()); nerr != nil {
			s.logger.Debug("Could not report send failure to session", "session_id", sessionID, "error", nerr)
		}
	}
	return err
}

// errorCode names the failure kind sent back in an error frame.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrSenderNotFound):
		return "sender_not_found"
	case errors.Is(err, domain.ErrCommunityNotFound):
		return "community_not_found"
	case errors.Is(err, domain.ErrInvalidMessage):
		return "invalid_message"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence_error"
	default:
		return "internal_error"
	}
}
