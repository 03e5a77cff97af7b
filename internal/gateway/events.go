package gateway

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
)

var (
	// ErrEventAlreadyAllowed is returned when an inbound event is registered twice.
	ErrEventAlreadyAllowed = errors.New("event already allowed")
	// ErrInvalidEvent is returned when an empty event name is provided.
	ErrInvalidEvent = errors.New("event name cannot be empty")
)

// eventAllowList holds the inbound events clients may send. Frames with any
// other event are answered with an error frame and never reach the bus.
type eventAllowList struct {
	mu     sync.RWMutex
	events []string
}

func newEventAllowList(events ...string) *eventAllowList {
	valid := make([]string, 0, len(events))
	for _, e := range events {
		if e != "" && !slices.Contains(valid, e) {
			valid = append(valid, e)
		}
	}
	return &eventAllowList{events: valid}
}

func (w *eventAllowList) IsAllowed(event string) bool {
	if event == "" {
		return false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Contains(w.events, event)
}

func (w *eventAllowList) Add(event string) error {
	if event == "" {
		return ErrInvalidEvent
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if slices.Contains(w.events, event) {
		return ErrEventAlreadyAllowed
	}
	w.events = append(w.events, event)
	slog.Debug("Allowed inbound websocket event", "event", event)
	return nil
}
