package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/campus/internal/pubsub"
)

const (
	// UserIDParam is the handshake query parameter carrying the user identity.
	UserIDParam = "userId"

	// MetaSessionID is the bus metadata key holding the originating session.
	MetaSessionID = "session_id"

	defaultSendBuffer = 256
	writeTimeout      = 10 * time.Second
	readLimit         = 64 << 10
)

// Gateway accepts websocket connections, keeps the user to session mapping
// and routes frames between sessions and the message bus.
type Gateway struct {
	publisher pubsub.Publisher
	registry  *Registry
	inbound   *eventAllowList

	// sessions holds every open connection, including ones whose user has
	// since connected again and is no longer reachable through the registry.
	sessions map[string]*Session
	mu       sync.RWMutex

	sendBuffer     int
	originPatterns []string
	skipOrigin     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSendBuffer sets the per-session outbound queue length.
func WithSendBuffer(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.sendBuffer = n
		}
	}
}

// WithAllowedOrigin restricts upgrades to the host of origin. "*" or "" allows any origin.
func WithAllowedOrigin(origin string) Option {
	return func(g *Gateway) {
		if origin == "" || origin == "*" {
			g.skipOrigin = true
			return
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			g.originPatterns = append(g.originPatterns, u.Host)
			return
		}
		g.originPatterns = append(g.originPatterns, origin)
	}
}

// WithInboundEvents allows clients to send the given events.
func WithInboundEvents(events ...string) Option {
	return func(g *Gateway) {
		for _, e := range events {
			_ = g.inbound.Add(e)
		}
	}
}

// New creates a gateway that publishes inbound frames on pub.
func New(pub pubsub.Publisher, opts ...Option) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		publisher:  pub,
		registry:   NewRegistry(),
		inbound:    newEventAllowList(),
		sessions:   make(map[string]*Session),
		sendBuffer: defaultSendBuffer,
		ctx:        ctx,
		cancel:     cancel,
		logger:     slog.Default().With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Registry exposes the user to session mapping.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// AllowInbound lets clients send event; its frames are published on InboundTopic(event).
func (g *Gateway) AllowInbound(event string) error {
	return g.inbound.Add(event)
}

// Handler returns an echo.HandlerFunc that upgrades the request to a websocket
// session for the user named in the userId query parameter.
func (g *Gateway) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.QueryParam(UserIDParam)
		if userID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "userId query parameter is required")
		}

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: g.skipOrigin,
			OriginPatterns:     g.originPatterns,
		})
		if err != nil {
			g.logger.Error("Failed to upgrade connection to WebSocket", "user_id", userID, "error", err)
			return nil
		}
		conn.SetReadLimit(readLimit)

		s := newSession(uuid.NewString(), userID, conn, g.sendBuffer)
		g.register(s)

		g.wg.Add(2)
		go g.writePump(s)
		go g.readPump(s)

		return nil
	}
}

func (g *Gateway) register(s *Session) {
	g.mu.Lock()
	g.sessions[s.ID] = s
	g.mu.Unlock()

	previous, replaced := g.registry.Connect(s.UserID, s.ID)
	if replaced {
		g.logger.Info("User connected again, earlier session no longer receives pushes",
			"user_id", s.UserID, "session_id", s.ID, "replaced_session_id", previous)
		return
	}
	g.logger.Info("User connected", "user_id", s.UserID, "session_id", s.ID)
}

func (g *Gateway) unregister(s *Session) {
	g.mu.Lock()
	delete(g.sessions, s.ID)
	g.mu.Unlock()

	if userID, removed := g.registry.Disconnect(s.ID); removed {
		g.logger.Info("User disconnected", "user_id", userID, "session_id", s.ID,
			"connected_for", time.Since(s.ConnectedAt).Round(time.Second).String())
	}
	s.close()
}

// Push queues frame for the live session of userID without blocking.
func (g *Gateway) Push(userID string, frame []byte) error {
	sessionID, ok := g.registry.Lookup(userID)
	if !ok {
		return ErrNoSession
	}

	g.mu.RLock()
	s, ok := g.sessions[sessionID]
	g.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}

	if err := s.Enqueue(frame); err != nil {
		return fmt.Errorf("push to session %s: %w", sessionID, err)
	}
	return nil
}

// PushEvent encodes data under event and pushes it to userID.
func (g *Gateway) PushEvent(userID, event string, data any) error {
	frame, err := EncodeFrame(event, data)
	if err != nil {
		return err
	}
	return g.Push(userID, frame)
}

// PushError sends an error frame to one specific session.
func (g *Gateway) PushError(sessionID, code, message string) error {
	g.mu.RLock()
	s, ok := g.sessions[sessionID]
	g.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}

	frame, err := EncodeFrame(EventError, ErrorData{Code: code, Message: message})
	if err != nil {
		return err
	}
	return s.Enqueue(frame)
}

// readPump forwards frames from the connection to the bus until the
// connection closes, then removes the session.
func (g *Gateway) readPump(s *Session) {
	defer func() {
		g.unregister(s)
		g.wg.Done()
	}()

	for {
		_, data, err := s.conn.Read(g.ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				g.logger.Debug("WebSocket closed normally by client", "session_id", s.ID)
			case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			default:
				g.logger.Warn("WebSocket read error", "session_id", s.ID, "user_id", s.UserID, "error", err)
			}
			return
		}

		g.handleInbound(s, data)
	}
}

func (g *Gateway) handleInbound(s *Session, data []byte) {
	frame, err := DecodeFrame(data)
	if err != nil {
		_ = g.PushError(s.ID, "bad_frame", err.Error())
		return
	}
	if !g.inbound.IsAllowed(frame.Event) {
		_ = g.PushError(s.ID, "unknown_event", fmt.Sprintf("event %q is not accepted", frame.Event))
		return
	}

	msg := pubsub.Message{
		Topic:   InboundTopic(frame.Event),
		UserID:  s.UserID,
		Payload: frame.Data,
		Metadata: map[string]string{
			MetaSessionID: s.ID,
			"received_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	if err := g.publisher.Publish(g.ctx, msg); err != nil {
		g.logger.Error("Failed to publish inbound frame", "event", frame.Event, "session_id", s.ID, "error", err)
		_ = g.PushError(s.ID, "unavailable", "message could not be accepted")
	}
}

// writePump writes queued frames to the connection until the queue is closed.
func (g *Gateway) writePump(s *Session) {
	defer func() {
		s.conn.Close(websocket.StatusNormalClosure, "")
		g.wg.Done()
	}()

	for msg := range s.send {
		ctx, cancel := context.WithTimeout(g.ctx, writeTimeout)
		err := s.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			g.logger.Warn("WebSocket write error", "session_id", s.ID, "user_id", s.UserID, "error", err)
			return
		}
	}
}

// SessionCount returns the number of open connections.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// Shutdown closes every session and clears the registry.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.cancel()

	g.mu.RLock()
	for _, s := range g.sessions {
		s.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	g.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.registry.Clear()
	g.logger.Info("Gateway stopped")
	return nil
}
