package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
)

var (
	// ErrNoSession is returned by Push when the user has no live session.
	ErrNoSession = errors.New("user has no live session")
	// ErrSendBufferFull is returned when a session is not draining its queue.
	ErrSendBufferFull = errors.New("session send buffer full")
	// ErrSessionClosed is returned when pushing to a session that is shutting down.
	ErrSessionClosed = errors.New("session closed")
)

// Session is one websocket connection of a user.
type Session struct {
	ID          string
	UserID      string
	ConnectedAt time.Time

	conn   *websocket.Conn
	send   chan []byte
	mu     sync.RWMutex
	closed bool
}

func newSession(id, userID string, conn *websocket.Conn, buffer int) *Session {
	return &Session{
		ID:          id,
		UserID:      userID,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, buffer),
	}
}

// Enqueue queues msg for the write pump without blocking.
func (s *Session) Enqueue(msg []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSessionClosed
	}

	select {
	case s.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// close stops the write pump. It is safe to call more than once.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.send)
	}
}
