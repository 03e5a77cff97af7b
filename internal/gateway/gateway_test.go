package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/campus/internal/gateway"
	"github.com/nfrund/campus/internal/pubsub"
)

// recordingPublisher stores every published message for inspection.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []pubsub.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []pubsub.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pubsub.Message, len(p.messages))
	copy(out, p.messages)
	return out
}

type testFixture struct {
	gw     *gateway.Gateway
	pub    *recordingPublisher
	server *httptest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	pub := &recordingPublisher{}
	gw := gateway.New(pub,
		gateway.WithAllowedOrigin("*"),
		gateway.WithInboundEvents("send-channel-message"),
	)

	e := echo.New()
	e.GET("/ws", gw.Handler())
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = gw.Shutdown(ctx)
		server.Close()
	})
	return &testFixture{gw: gw, pub: pub, server: server}
}

func (f *testFixture) dial(t *testing.T, userID string) *gorilla.Conn {
	t.Helper()

	before := f.gw.SessionCount()
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?userId=" + userID
	conn, resp, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return f.gw.SessionCount() > before
	}, time.Second, 5*time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *gorilla.Conn) gateway.Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var f gateway.Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func assertNoFrame(t *testing.T, conn *gorilla.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected no frame")
}

func TestGateway_MissingUserIDIsRejected(t *testing.T) {
	f := setupTestFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, f.gw.Registry().Len())
}

func TestGateway_PushReachesConnectedUser(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.dial(t, "u1")

	require.NoError(t, f.gw.PushEvent("u1", "receive-channel-message", map[string]string{"content": "hello"}))

	frame := readFrame(t, conn)
	assert.Equal(t, "receive-channel-message", frame.Event)
	assert.JSONEq(t, `{"content":"hello"}`, string(frame.Data))

	assert.ErrorIs(t, f.gw.PushEvent("nobody", "receive-channel-message", nil), gateway.ErrNoSession)
}

func TestGateway_ReconnectReplacesSession(t *testing.T) {
	f := setupTestFixture(t)
	first := f.dial(t, "u1")
	second := f.dial(t, "u1")

	require.NoError(t, f.gw.PushEvent("u1", "receive-channel-message", "after reconnect"))
	frame := readFrame(t, second)
	assert.JSONEq(t, `"after reconnect"`, string(frame.Data))
	assertNoFrame(t, first)

	// Closing the replaced connection must not drop the newer mapping.
	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return f.gw.SessionCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, f.gw.Registry().Len())
	require.NoError(t, f.gw.PushEvent("u1", "receive-channel-message", "still here"))
	frame = readFrame(t, second)
	assert.JSONEq(t, `"still here"`, string(frame.Data))
}

func TestGateway_DisconnectRemovesUser(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.dial(t, "u1")
	require.Equal(t, 1, f.gw.Registry().Len())

	require.NoError(t, conn.WriteMessage(gorilla.CloseMessage,
		gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "bye")))

	require.Eventually(t, func() bool { return f.gw.Registry().Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, f.gw.PushEvent("u1", "receive-channel-message", nil), gateway.ErrNoSession)
}

func TestGateway_InboundFramesArePublished(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.dial(t, "u1")

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage,
		[]byte(`{"event":"send-channel-message","data":{"communityId":"c1","content":"hi"}}`)))

	require.Eventually(t, func() bool { return len(f.pub.published()) == 1 }, time.Second, 5*time.Millisecond)

	msg := f.pub.published()[0]
	assert.Equal(t, gateway.InboundTopic("send-channel-message"), msg.Topic)
	assert.Equal(t, "u1", msg.UserID)
	assert.JSONEq(t, `{"communityId":"c1","content":"hi"}`, string(msg.Payload))
	assert.NotEmpty(t, msg.Metadata[gateway.MetaSessionID])
}

func TestGateway_RejectedFramesGetErrorFrame(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.dial(t, "u1")

	t.Run("unknown event", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"event":"drop-tables","data":{}}`)))

		frame := readFrame(t, conn)
		assert.Equal(t, gateway.EventError, frame.Event)
		var data gateway.ErrorData
		require.NoError(t, json.Unmarshal(frame.Data, &data))
		assert.Equal(t, "unknown_event", data.Code)
	})

	t.Run("malformed frame", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{invalid json`)))

		frame := readFrame(t, conn)
		assert.Equal(t, gateway.EventError, frame.Event)
	})

	assert.Empty(t, f.pub.published())

	// The connection stays usable after rejected frames.
	require.NoError(t, f.gw.PushEvent("u1", "receive-channel-message", "ok"))
	assert.Equal(t, "receive-channel-message", readFrame(t, conn).Event)
}
