package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog/log"

	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/stream"
)

// ChatStream is an open streaming exchange. It yields decoded events in
// arrival order and owns the response body until closed.
type ChatStream struct {
	body      io.ReadCloser
	release   context.CancelFunc
	reader    *stream.Reader
	endpoint  string
	closeOnce sync.Once
	closeErr  error
}

// Ensure ChatStream implements stream.Source
var _ stream.Source = (*ChatStream)(nil)

// StreamChat posts message to the streaming endpoint. An empty sessionID
// asks the server to start a new conversation. Only the status code is
// checked here; events are decoded lazily by Next.
func (c *Client) StreamChat(ctx context.Context, message, sessionID string) (stream.Source, error) {
	path := models.PathChatStream

	// The timeout covers the wait for response headers only. Once the
	// server answers, the stream lives until it closes or ctx ends.
	ctx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(c.timeout, cancel)

	req, err := c.newRequest(ctx, http.MethodPost, path, models.NewChatRequest(message, sessionID), models.StreamHeaders())
	if err != nil {
		timer.Stop()
		cancel()
		return nil, err
	}

	resp, err := c.do(req, path)
	if !timer.Stop() {
		if err == nil {
			_ = resp.Body.Close()
		}
		cancel()
		return nil, apierrors.NewNetworkError(path, fmt.Errorf("no response within %s", c.timeout))
	}
	if err != nil {
		cancel()
		return nil, err
	}

	log.Debug().
		Str("component", "api").
		Bool("new_session", sessionID == "").
		Msg("chat stream opened")

	cs := newChatStream(resp.Body, path)
	cs.release = cancel
	return cs, nil
}

func newChatStream(body io.ReadCloser, endpoint string) *ChatStream {
	return &ChatStream{
		body:     body,
		reader:   stream.NewReader(body),
		endpoint: endpoint,
	}
}

// Next returns the next event or io.EOF at the end of the stream. A read
// failure is reported as a TransportError.
func (s *ChatStream) Next() (stream.Event, error) {
	ev, err := s.reader.Next()
	if err == nil || errors.Is(err, io.EOF) {
		return ev, err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ev, err
	}
	return ev, apierrors.NewNetworkError(s.endpoint, err)
}

// Close releases the connection. It is safe to call more than once.
func (s *ChatStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
		if s.release != nil {
			s.release()
		}
	})
	return s.closeErr
}
