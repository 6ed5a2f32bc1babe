// Package timeline holds the ordered record of chat messages and their
// lifecycle. Insertion order is display order.
//
// A Timeline is not safe for concurrent use; it is owned by a single
// session controller which serializes access.
package timeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/diogo/docchat/internal/models"
)

var (
	// ErrNotFound is returned when no message has the given id
	ErrNotFound = errors.New("message not found")

	// ErrInFlight is returned when appending a pending or streaming message
	// while another one is still in flight
	ErrInFlight = errors.New("another message is already in flight")
)

// Timeline is an ordered, mutable sequence of messages
type Timeline struct {
	messages []models.Message
	index    map[string]int
}

// New creates an empty timeline
func New() *Timeline {
	return &Timeline{index: make(map[string]int)}
}

// Append adds msg at the end and returns it with its id set. A fresh id is
// generated when msg.ID is empty. User messages are always final.
func (t *Timeline) Append(msg models.Message) (models.Message, error) {
	if msg.Role == models.RoleUser {
		msg.Lifecycle = models.LifecycleFinal
	}
	if msg.Lifecycle == "" {
		msg.Lifecycle = models.LifecyclePending
	}

	if msg.Lifecycle.InFlight() {
		if _, ok := t.LastPendingOrStreaming(); ok {
			return models.Message{}, ErrInFlight
		}
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, exists := t.index[msg.ID]; exists {
		return models.Message{}, fmt.Errorf("duplicate message id %s", msg.ID)
	}

	t.index[msg.ID] = len(t.messages)
	t.messages = append(t.messages, msg)
	return msg, nil
}

// ReplaceContent sets the full content and lifecycle of a message. Callers
// pass the cumulative text, so repeated calls with the same text are no-ops.
// Any partial text from an earlier failure is cleared.
func (t *Timeline) ReplaceContent(id, text string, lifecycle models.Lifecycle) error {
	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	msg := &t.messages[i]
	msg.Content = text
	msg.Lifecycle = lifecycle
	msg.Partial = ""
	return nil
}

// Fail moves a message to the error lifecycle. message replaces the content;
// partial keeps whatever text arrived before the failure.
func (t *Timeline) Fail(id, message, partial string) error {
	if err := t.ReplaceContent(id, message, models.LifecycleError); err != nil {
		return err
	}
	t.messages[t.index[id]].Partial = partial
	return nil
}

// Clear removes every message
func (t *Timeline) Clear() {
	t.messages = nil
	t.index = make(map[string]int)
}

// LastPendingOrStreaming returns the in-flight message, if any
func (t *Timeline) LastPendingOrStreaming() (models.Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Lifecycle.InFlight() {
			return t.messages[i], true
		}
	}
	return models.Message{}, false
}

// Get returns the message with the given id
func (t *Timeline) Get(id string) (models.Message, bool) {
	i, ok := t.index[id]
	if !ok {
		return models.Message{}, false
	}
	return t.messages[i], true
}

// Messages returns a copy of all messages in display order
func (t *Timeline) Messages() []models.Message {
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
