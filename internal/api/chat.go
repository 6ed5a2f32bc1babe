package api

import (
	"context"
	"io"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/stream"
)

// Chat posts message to the non-streaming endpoint and returns the whole reply
func (c *Client) Chat(ctx context.Context, message, sessionID string) (*models.ChatReply, error) {
	path := models.PathChat
	body, err := c.readBody(ctx, http.MethodPost, path, models.NewChatRequest(message, sessionID))
	if err != nil {
		return nil, err
	}
	return parseChatReply(body)
}

func parseChatReply(body []byte) (*models.ChatReply, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	reply := gjson.GetBytes(body, "reply")
	if !reply.Exists() || reply.Type != gjson.String {
		return nil, apierrors.NewParseError("missing reply", "reply")
	}

	return &models.ChatReply{
		Reply:     reply.String(),
		SessionID: gjson.GetBytes(body, models.FieldSessionID).String(),
	}, nil
}

// Transport adapts a client to the session controller. In buffered mode it
// uses the non-streaming endpoint and replays the reply as a single delta.
type Transport struct {
	Client   ClientInterface
	Buffered bool
}

// Open starts one exchange
func (t *Transport) Open(ctx context.Context, message, sessionID string) (stream.Source, error) {
	if !t.Buffered {
		return t.Client.StreamChat(ctx, message, sessionID)
	}

	reply, err := t.Client.Chat(ctx, message, sessionID)
	if err != nil {
		return nil, err
	}
	return ReplayReply(reply), nil
}

// ReplaySource yields a fixed list of events then io.EOF
type ReplaySource struct {
	events []stream.Event
	closed bool
}

// NewReplaySource creates a source over events
func NewReplaySource(events ...stream.Event) *ReplaySource {
	return &ReplaySource{events: events}
}

// ReplayReply turns a complete reply into the events a stream would carry
func ReplayReply(reply *models.ChatReply) *ReplaySource {
	var events []stream.Event
	if reply.SessionID != "" {
		events = append(events, stream.SessionAssigned(reply.SessionID))
	}
	if reply.Reply != "" {
		events = append(events, stream.Delta(reply.Reply))
	}
	return NewReplaySource(events...)
}

// Next returns the next event or io.EOF
func (r *ReplaySource) Next() (stream.Event, error) {
	if r.closed || len(r.events) == 0 {
		return stream.Event{}, io.EOF
	}
	ev := r.events[0]
	r.events = r.events[1:]
	return ev, nil
}

// Close discards remaining events
func (r *ReplaySource) Close() error {
	r.closed = true
	return nil
}
