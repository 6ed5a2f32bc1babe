// Package session orchestrates chat exchanges: it owns the timeline and the
// server-assigned session id, enforces that at most one exchange is in
// flight, and applies transport events to the in-flight assistant message.
package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/stream"
	"github.com/diogo/docchat/internal/timeline"
)

// Sentinel errors returned when an action is rejected without touching state
var (
	ErrEmptyPrompt    = errors.New("prompt is empty")
	ErrBusy           = errors.New("an exchange is already in flight")
	ErrNothingToRetry = errors.New("nothing to retry")
	ErrAbandoned      = errors.New("exchange abandoned")
)

// Transport opens one exchange with the backend
type Transport interface {
	Open(ctx context.Context, message, sessionID string) (stream.Source, error)
}

// Snapshot is a consistent, read-only copy of the controller state
type Snapshot struct {
	State          State
	SessionID      string
	LastUserPrompt string
	Messages       []models.Message
}

// Loading reports whether an exchange is in flight
func (s Snapshot) Loading() bool {
	return s.State != StateIdle
}

// Option configures a Controller
type Option func(*Controller)

// WithObserver registers a callback invoked after every state change.
// It runs outside the controller lock and must not block for long.
func WithObserver(fn func(Snapshot)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithSessionID resumes an existing server conversation
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// exchange correlates the prompt being answered with the assistant message
// receiving the answer. It lives only while in flight.
type exchange struct {
	prompt      string
	assistantID string
	ctx         context.Context
	cancel      context.CancelFunc
	text        strings.Builder
}

// Controller drives send, retry, cancel and reset
type Controller struct {
	mu        sync.Mutex
	transport Transport
	timeline  *timeline.Timeline
	state     State
	sessionID string

	lastPrompt      string
	lastAssistantID string

	// active is the only exchange allowed to mutate the timeline
	active *exchange

	observer func(Snapshot)
}

// New creates an idle controller with an empty timeline
func New(transport Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: transport,
		timeline:  timeline.New(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send starts a new exchange and blocks until it ends. It returns
// ErrEmptyPrompt or ErrBusy without side effects, ErrAbandoned if the
// exchange was cancelled or reset, or the transport/stream failure that
// was recorded on the assistant message.
func (c *Controller) Send(ctx context.Context, text string) error {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}

	if _, err := c.timeline.Append(models.Message{Role: models.RoleUser, Content: prompt}); err != nil {
		c.mu.Unlock()
		return err
	}
	assistant, err := c.timeline.Append(models.Message{Role: models.RoleAssistant, Lifecycle: models.LifecyclePending})
	if err != nil {
		c.mu.Unlock()
		return err
	}

	c.lastPrompt = prompt
	c.lastAssistantID = assistant.ID
	ex := c.beginLocked(ctx, prompt, assistant.ID, StateSending)
	c.mu.Unlock()

	c.notify()
	return c.run(ex)
}

// Retry replays the last prompt into the existing assistant message
// instead of appending a new one.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.lastPrompt == "" {
		c.mu.Unlock()
		return ErrNothingToRetry
	}
	if _, ok := c.timeline.Get(c.lastAssistantID); !ok {
		c.mu.Unlock()
		return ErrNothingToRetry
	}

	if err := c.timeline.ReplaceContent(c.lastAssistantID, "", models.LifecyclePending); err != nil {
		c.mu.Unlock()
		return err
	}
	ex := c.beginLocked(ctx, c.lastPrompt, c.lastAssistantID, StateRetrying)
	c.mu.Unlock()

	c.notify()
	return c.run(ex)
}

// Cancel abandons the in-flight exchange, if any, and records it as an
// error so it can be retried. It reports whether something was cancelled.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	ex := c.active
	if ex == nil {
		c.mu.Unlock()
		return false
	}

	_ = c.timeline.Fail(ex.assistantID, models.CanceledMessage, ex.text.String())
	c.endLocked(ex)
	c.mu.Unlock()

	log.Debug().Str("component", "session").Str("message_id", ex.assistantID).Msg("exchange cancelled")
	c.notify()
	return true
}

// Reset abandons any in-flight exchange, then clears the timeline, the
// session id and the last prompt. It is allowed in every state.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.active != nil {
		c.active.cancel()
		c.active = nil
	}
	c.timeline.Clear()
	c.state = StateIdle
	c.sessionID = ""
	c.lastPrompt = ""
	c.lastAssistantID = ""
	c.mu.Unlock()

	log.Debug().Str("component", "session").Msg("session reset")
	c.notify()
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:          c.state,
		SessionID:      c.sessionID,
		LastUserPrompt: c.lastPrompt,
		Messages:       c.timeline.Messages(),
	}
}

// State returns the current controller state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the server-assigned session id, or "" for a new conversation
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Content returns the content of a message by id
func (c *Controller) Content(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.timeline.Get(id)
	if !ok {
		return "", false
	}
	return msg.Content, true
}

// LastReply returns the most recent final assistant message
func (c *Controller) LastReply() (models.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.timeline.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleAssistant && msgs[i].Lifecycle == models.LifecycleFinal {
			return msgs[i], true
		}
	}
	return models.Message{}, false
}

// beginLocked marks ex as the active exchange. Caller holds c.mu.
func (c *Controller) beginLocked(ctx context.Context, prompt, assistantID string, state State) *exchange {
	exCtx, cancel := context.WithCancel(ctx)
	ex := &exchange{
		prompt:      prompt,
		assistantID: assistantID,
		ctx:         exCtx,
		cancel:      cancel,
	}
	c.active = ex
	c.state = state

	log.Debug().
		Str("component", "session").
		Str("state", state.String()).
		Str("message_id", assistantID).
		Str("session_id", c.sessionID).
		Msg("exchange started")
	return ex
}

// endLocked releases ex and returns to idle. Caller holds c.mu.
func (c *Controller) endLocked(ex *exchange) {
	ex.cancel()
	if c.active == ex {
		c.active = nil
		c.state = StateIdle
	}
}

func (c *Controller) run(ex *exchange) error {
	src, err := c.transport.Open(ex.ctx, ex.prompt, c.SessionID())
	if err != nil {
		return c.finish(ex, err)
	}
	defer func() {
		_ = src.Close()
	}()

	for {
		ev, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return c.finish(ex, nil)
			}
			return c.finish(ex, err)
		}

		if ev.Kind == stream.KindError {
			return c.finish(ex, apierrors.NewStreamError(ev.Message, ""))
		}

		if !c.apply(ex, ev) {
			return ErrAbandoned
		}
	}
}

// apply records one event. It returns false once ex is no longer active,
// so events from an abandoned exchange never reach the timeline.
func (c *Controller) apply(ex *exchange, ev stream.Event) bool {
	c.mu.Lock()
	if c.active != ex {
		c.mu.Unlock()
		return false
	}

	switch ev.Kind {
	case stream.KindSession:
		if ev.SessionID != "" {
			c.sessionID = ev.SessionID
		}
	case stream.KindDelta:
		ex.text.WriteString(ev.Text)
		_ = c.timeline.ReplaceContent(ex.assistantID, ex.text.String(), models.LifecycleStreaming)
	}
	c.mu.Unlock()

	c.notify()
	return true
}

// finish moves the assistant message to its terminal lifecycle
func (c *Controller) finish(ex *exchange, err error) error {
	c.mu.Lock()
	if c.active != ex {
		c.mu.Unlock()
		return ErrAbandoned
	}

	text := ex.text.String()
	if err == nil {
		if text == "" {
			text = models.FallbackReply(ex.prompt)
		}
		_ = c.timeline.ReplaceContent(ex.assistantID, text, models.LifecycleFinal)
	} else {
		var streamErr *apierrors.StreamError
		if errors.As(err, &streamErr) && streamErr.Partial == "" && text != "" {
			err = apierrors.NewStreamError(streamErr.Message, text)
		}
		message := apierrors.UserMessage(err)
		if ex.ctx.Err() != nil {
			message = models.CanceledMessage
		}
		_ = c.timeline.Fail(ex.assistantID, message, text)
	}
	c.endLocked(ex)
	c.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("component", "session").Str("message_id", ex.assistantID).Msg("exchange failed")
	} else {
		log.Debug().Str("component", "session").Str("message_id", ex.assistantID).Int("chars", len(text)).Msg("exchange completed")
	}

	c.notify()
	return err
}

func (c *Controller) notify() {
	if c.observer == nil {
		return
	}
	c.observer(c.Snapshot())
}
