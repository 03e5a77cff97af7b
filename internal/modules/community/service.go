package community

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/gateway"
)

// Pusher delivers an event to the live session of a user. It returns
// gateway.ErrNoSession when the user is not connected.
type Pusher interface {
	PushEvent(userID, event string, data any) error
}

// Delivery summarises the fan-out of one accepted message.
type Delivery struct {
	Message   domain.ChannelMessage
	Delivered []string
	Offline   []string
	Failed    map[string]error
}

// Service implements community chat: persist a message, then push it to every
// connected member.
type Service struct {
	profiles     domain.ProfileRepository
	messages     domain.MessageRepository
	communities  domain.CommunityRepository
	pusher       Pusher
	historyLimit int
	locks        *communityLocks
	logger       *slog.Logger
}

// ServiceDependencies lists the collaborators of the Service.
type ServiceDependencies struct {
	Profiles     domain.ProfileRepository
	Messages     domain.MessageRepository
	Communities  domain.CommunityRepository
	Pusher       Pusher
	HistoryLimit int
}

// NewService creates the community chat service.
func NewService(deps ServiceDependencies) *Service {
	return &Service{
		profiles:     deps.Profiles,
		messages:     deps.Messages,
		communities:  deps.Communities,
		pusher:       deps.Pusher,
		historyLimit: deps.HistoryLimit,
		locks:        newCommunityLocks(),
		logger:       slog.Default().With("component", "community"),
	}
}

// SendChannelMessage resolves the sender, appends the message to the log and
// to the community, then pushes it to each connected member in member order.
//
// Sender and persistence errors abort the send before anything is pushed.
// Failures pushing to a single member are recorded in the Delivery and never
// stop delivery to the remaining members.
func (s *Service) SendChannelMessage(ctx context.Context, req SendChannelMessageRequest, senderID string) (*Delivery, error) {
	typ := req.MessageType
	if typ == "" {
		typ = domain.MessageTypeText
	}
	msg := domain.NewChannelMessage(req.CommunityID, senderID, req.Content, typ, req.FileURL)
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(req.CommunityID)
	defer unlock()

	sender, err := s.profiles.ResolveSender(ctx, senderID)
	if err != nil {
		s.logger.Info("Dropping message from unknown sender", "community_id", req.CommunityID, "sender_id", senderID, "error", err)
		return nil, err
	}

	stored, err := s.messages.Append(ctx, msg)
	if err != nil {
		s.logger.Error("Failed to persist message", "community_id", req.CommunityID, "sender_id", senderID, "error", err)
		return nil, err
	}

	if err := s.communities.AppendMessageRef(ctx, req.CommunityID, stored.Ref()); err != nil {
		s.logger.Error("Failed to link message to community", "community_id", req.CommunityID, "message_id", stored.Ref(), "error", err)
		return nil, err
	}

	members, err := s.communities.GetMembers(ctx, req.CommunityID)
	if err != nil {
		s.logger.Error("Failed to load community members", "community_id", req.CommunityID, "error", err)
		return nil, err
	}

	payload := domain.NewChannelMessagePayload(stored, *sender)
	return s.fanOut(payload, members), nil
}

func (s *Service) fanOut(payload domain.ChannelMessage, members []string) *Delivery {
	d := &Delivery{Message: payload, Failed: make(map[string]error)}

	for _, member := range members {
		err := s.pusher.PushEvent(member, EventReceiveChannelMessage, payload)
		switch {
		case err == nil:
			d.Delivered = append(d.Delivered, member)
		case errors.Is(err, gateway.ErrNoSession):
			d.Offline = append(d.Offline, member)
		default:
			d.Failed[member] = fmt.Errorf("%w: %s: %w", domain.ErrMemberLookup, member, err)
			s.logger.Warn("Failed to push message to member",
				"community_id", payload.CommunityID, "member_id", member, "message_id", payload.ID, "error", err)
		}
	}

	s.logger.Debug("Message fanned out", "community_id", payload.CommunityID, "message_id", payload.ID,
		"delivered", len(d.Delivered), "offline", len(d.Offline), "failed", len(d.Failed))
	return d
}

// History returns the latest messages of a community, oldest first, with
// their senders resolved. Senders without a profile keep only their user ID.
func (s *Service) History(ctx context.Context, communityID string) ([]domain.ChannelMessage, error) {
	if _, err := s.communities.GetMembers(ctx, communityID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByCommunity(ctx, communityID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	senders := make(map[string]domain.Sender)
	out := make([]domain.ChannelMessage, 0, len(msgs))
	for _, m := range msgs {
		sender, ok := senders[m.Sender]
		if !ok {
			resolved, err := s.profiles.ResolveSender(ctx, m.Sender)
			switch {
			case err == nil:
				sender = *resolved
			case errors.Is(err, domain.ErrSenderNotFound):
				sender = domain.Sender{UserID: m.Sender}
			default:
				return nil, err
			}
			senders[m.Sender] = sender
		}
		out = append(out, domain.NewChannelMessagePayload(m, sender))
	}
	return out, nil
}
