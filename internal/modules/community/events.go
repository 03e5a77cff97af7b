package community

import (
	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/gateway"
	"github.com/nfrund/campus/internal/pubsub"
)

const (
	// EventSendChannelMessage is sent by clients to post into a community.
	EventSendChannelMessage = "send-channel-message"
	// EventReceiveChannelMessage carries a posted message to connected members.
	EventReceiveChannelMessage = "receive-channel-message"
)

// SendChannelMessageRequest is the data of a send-channel-message frame and
// the body of the REST send endpoint.
type SendChannelMessageRequest struct {
	CommunityID string             `json:"communityId"`
	Content     string             `json:"content"`
	MessageType domain.MessageType `json:"messageType" validate:"omitempty,oneof=text file"`
	FileURL     string             `json:"fileUrl,omitempty"`
}

// SendChannelMessageInbound is the bus event the gateway publishes for every
// accepted send-channel-message frame.
var SendChannelMessageInbound = pubsub.NewEvent[SendChannelMessageRequest](
	gateway.InboundTopic(EventSendChannelMessage),
	"A client asked to post a message into a community",
)
