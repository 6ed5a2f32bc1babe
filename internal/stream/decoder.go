// Package stream decodes the line-oriented event protocol of the chat
// stream endpoint.
//
// A response body is a sequence of lines. Lines that start with
// models.EventPrefix carry a JSON payload; everything else is keep-alive
// noise. A payload is one of:
//
//	{"type":"session","session_id":"..."}
//	{"delta":"..."}
//	{"error":"..."}
//
// or the literal models.DoneSentinel. Payloads that fail to parse, or parse
// but match no known shape, are ignored. An error record ends decoding.
package stream

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/diogo/docchat/internal/models"
)

// Kind identifies a decoded event
type Kind int

const (
	KindSession Kind = iota + 1
	KindDelta
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSession:
		return "session"
	case KindDelta:
		return "delta"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one decoded protocol event. Done is not an event: it is
// signaled by the end of the byte stream.
type Event struct {
	Kind      Kind
	SessionID string // KindSession
	Text      string // KindDelta
	Message   string // KindError
}

// SessionAssigned builds a session event
func SessionAssigned(id string) Event {
	return Event{Kind: KindSession, SessionID: id}
}

// Delta builds a delta event
func Delta(text string) Event {
	return Event{Kind: KindDelta, Text: text}
}

// Failure builds an error event
func Failure(message string) Event {
	return Event{Kind: KindError, Message: message}
}

// MaxLineSize bounds a single protocol line. Longer lines are dropped
// whole and decoding resumes at the next line break.
const MaxLineSize = 1 << 20

// Decoder turns arbitrarily split text chunks into events. It holds the
// unconsumed tail of the stream between chunks. Both '\n' and '\r' end a
// line, so LF, CRLF and bare CR framing decode alike. A Decoder is not safe
// for concurrent use and serves a single response.
type Decoder struct {
	line     []byte
	skipping bool // current line went past MaxLineSize
	failed   bool
}

// NewDecoder creates an empty decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns the events of every line it completed.
// Once an error event has been returned, Feed returns nothing more.
func (d *Decoder) Feed(chunk []byte) []Event {
	if d.failed {
		return nil
	}

	var lines []string
	for len(chunk) > 0 {
		i := bytes.IndexAny(chunk, "\r\n")
		if i < 0 {
			d.appendLine(chunk)
			break
		}
		d.appendLine(chunk[:i])
		if !d.skipping && len(d.line) > 0 {
			lines = append(lines, string(d.line))
		}
		d.line = d.line[:0]
		d.skipping = false
		chunk = chunk[i+1:]
	}

	return d.decodeLines(lines)
}

func (d *Decoder) appendLine(p []byte) {
	if d.skipping {
		return
	}
	if len(d.line)+len(p) > MaxLineSize {
		log.Debug().Str("component", "stream").Int("limit", MaxLineSize).Msg("dropping oversized line")
		d.skipping = true
		d.line = d.line[:0]
		return
	}
	d.line = append(d.line, p...)
}

// Flush decodes whatever unterminated line is left in the buffer. It is
// called once, when the stream closes cleanly.
func (d *Decoder) Flush() []Event {
	rest := string(d.line)
	skipped := d.skipping
	d.line = nil
	d.skipping = false

	if d.failed || skipped || rest == "" {
		return nil
	}
	return d.decodeLines([]string{rest})
}

// Failed reports whether an error event has been decoded
func (d *Decoder) Failed() bool {
	return d.failed
}

// Buffered returns the unconsumed tail, for diagnostics
func (d *Decoder) Buffered() string {
	return string(d.line)
}

func (d *Decoder) decodeLines(lines []string) []Event {
	var events []Event
	for _, line := range lines {
		ev, ok := ParseLine(line)
		if !ok {
			continue
		}
		events = append(events, ev)
		if ev.Kind == KindError {
			// Anything after an error frame is dropped, even if already buffered.
			d.failed = true
			d.line = nil
			break
		}
	}
	return events
}

// ParseLine decodes a single protocol line. It returns false for noise:
// comments, keep-alives, the done sentinel, malformed or unknown payloads.
func ParseLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, models.EventPrefix) {
		return Event{}, false
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, models.EventPrefix))
	if payload == "" || payload == models.DoneSentinel {
		return Event{}, false
	}

	if !gjson.Valid(payload) {
		log.Debug().Str("component", "stream").Str("payload", payload).Msg("ignoring malformed payload")
		return Event{}, false
	}

	record := gjson.Parse(payload)
	if !record.IsObject() {
		return Event{}, false
	}

	sessionID := record.Get(models.FieldSessionID)
	if sessionID.Exists() && record.Get(models.FieldType).String() == models.EventTypeSession {
		return SessionAssigned(sessionID.String()), true
	}

	if errField := record.Get(models.FieldError); errField.Exists() && errField.Type != gjson.Null {
		return Failure(errField.String()), true
	}

	if delta := record.Get(models.FieldDelta); delta.Exists() && delta.Type == gjson.String {
		return Delta(delta.String()), true
	}

	log.Debug().Str("component", "stream").Str("payload", payload).Msg("ignoring unknown record")
	return Event{}, false
}
