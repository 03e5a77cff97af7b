package exam

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when the exam is not run from an interactive terminal.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// TerminalFocus holds the terminal in raw mode for the duration of an exam.
// Leaving raw mode other than through Release counts as losing focus.
type TerminalFocus struct {
	fd int

	mu    sync.Mutex
	state *term.State
	lost  chan struct{}
}

// NewTerminalFocus creates a focus lock on the terminal behind fd.
func NewTerminalFocus(fd int) *TerminalFocus {
	return &TerminalFocus{fd: fd}
}

// Acquire switches the terminal to raw mode.
func (f *TerminalFocus) Acquire() (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != nil {
		return f.lost, nil
	}
	if !term.IsTerminal(f.fd) {
		return nil, ErrNotTerminal
	}
	state, err := term.MakeRaw(f.fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	f.state = state
	f.lost = make(chan struct{})
	return f.lost, nil
}

// Lose restores the terminal and reports the loss to the holder.
func (f *TerminalFocus) Lose() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == nil {
		return
	}
	_ = term.Restore(f.fd, f.state)
	f.state = nil
	close(f.lost)
}

// Release restores the terminal without signalling a loss.
func (f *TerminalFocus) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == nil {
		return nil
	}
	err := term.Restore(f.fd, f.state)
	f.state = nil
	return err
}
