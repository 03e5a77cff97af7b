package community

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"

	"github.com/nfrund/campus/internal/gateway"
	"github.com/nfrund/campus/internal/module"
	"github.com/nfrund/campus/internal/pubsub"
)

// CommunityModule wires community chat into the server: the REST routes under
// /api/messages and the subscriber for send-channel-message frames.
type CommunityModule struct {
	module.BaseModule
	deps   Dependencies
	cancel context.CancelFunc
}

// Dependencies holds all the services that the CommunityModule requires to operate.
type Dependencies struct {
	ServiceDependencies
	Subscriber  pubsub.Subscriber
	Gateway     *gateway.Gateway
	SendLimiter echo.MiddlewareFunc
}

// New creates a new instance of the CommunityModule, injecting its dependencies.
func New(deps Dependencies) *CommunityModule {
	return &CommunityModule{deps: deps}
}

// Name returns the module name.
func (m *CommunityModule) Name() string {
	return "messages"
}

// Register provides the chat Service to the injector.
func (m *CommunityModule) Register(i do.Injector) error {
	deps := m.deps.ServiceDependencies
	if deps.Pusher == nil {
		deps.Pusher = m.deps.Gateway
	}
	do.ProvideValue(i, NewService(deps))
	return m.deps.Gateway.AllowInbound(EventSendChannelMessage)
}

// Boot starts the subscriber and sets up the routes.
func (m *CommunityModule) Boot(ctx context.Context, g *echo.Group, i do.Injector) error {
	service, err := do.Invoke[*Service](i)
	if err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	if err := NewSubscriber(m.deps.Subscriber, service, m.deps.Gateway).Start(subCtx); err != nil {
		cancel()
		return err
	}

	slog.Info("Booting CommunityModule: Setting up routes...")
	handler := NewHandler(service)

	var sendMiddleware []echo.MiddlewareFunc
	if m.deps.SendLimiter != nil {
		sendMiddleware = append(sendMiddleware, m.deps.SendLimiter)
	}
	g.GET("/getmessage/:communityId", handler.GetMessages)
	g.POST("/communities/:communityId/messages", handler.PostMessage, sendMiddleware...)
	return nil
}

// Shutdown stops the subscriber.
func (m *CommunityModule) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down CommunityModule...")
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}
