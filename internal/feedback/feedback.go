// Package feedback holds the small message containers every component uses
// to report outcomes to the presentation layer.
package feedback

import "sync"

// Type classifies a status message.
type Type string

const (
	TypeNone    Type = ""
	TypeSuccess Type = "success"
	TypeError   Type = "error"
)

// Text is a plain message slot.
type Text struct {
	mu      sync.RWMutex
	message string
}

// Set replaces the message.
func (t *Text) Set(message string) {
	t.mu.Lock()
	t.message = message
	t.mu.Unlock()
}

// Clear empties the message.
func (t *Text) Clear() {
	t.Set("")
}

// Message returns the current message.
func (t *Text) Message() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.message
}

// Status is a message slot tagged success or error.
type Status struct {
	mu      sync.RWMutex
	message string
	kind    Type
}

// SetError records an error message.
func (s *Status) SetError(message string) {
	s.set(message, TypeError)
}

// SetSuccess records a success message.
func (s *Status) SetSuccess(message string) {
	s.set(message, TypeSuccess)
}

// Clear resets both message and type.
func (s *Status) Clear() {
	s.set("", TypeNone)
}

// Message returns the current message.
func (s *Status) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

// Type returns the current message type.
func (s *Status) Type() Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kind
}

// Snapshot returns message and type read atomically.
func (s *Status) Snapshot() (string, Type) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message, s.kind
}

func (s *Status) set(message string, kind Type) {
	s.mu.Lock()
	s.message = message
	s.kind = kind
	s.mu.Unlock()
}
