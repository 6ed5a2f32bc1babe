package stream

import (
	"errors"
	"io"

	"github.com/rs/zerolog/log"
)

// Source is a lazy, non-restartable sequence of events. Next returns io.EOF
// once the stream closed cleanly. Close releases the underlying connection
// and may be called at any time, including mid-stream.
type Source interface {
	Next() (Event, error)
	Close() error
}

const readChunkSize = 4096

// Reader pulls chunks from an io.Reader and yields decoded events in the
// order their bytes arrived. An error event is returned as a regular event;
// the Reader reports io.EOF on the following call.
type Reader struct {
	r       io.Reader
	dec     *Decoder
	pending []Event
	chunk   []byte
	done    bool
	err     error
}

// NewReader creates a Reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:     r,
		dec:   NewDecoder(),
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next event, io.EOF at the end of the stream, or the read
// error that interrupted it.
func (r *Reader) Next() (Event, error) {
	for {
		if len(r.pending) > 0 {
			ev := r.pending[0]
			r.pending = r.pending[1:]
			return ev, nil
		}

		if r.err != nil {
			return Event{}, r.err
		}
		if r.done || r.dec.Failed() {
			return Event{}, io.EOF
		}

		n, err := r.r.Read(r.chunk)
		if n > 0 {
			r.pending = append(r.pending, r.dec.Feed(r.chunk[:n])...)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				r.done = true
				r.pending = append(r.pending, r.dec.Flush()...)
			} else {
				r.err = err
				log.Debug().Err(err).
					Str("component", "stream").
					Int("unterminated_bytes", len(r.dec.Buffered())).
					Msg("stream interrupted")
			}
		}
	}
}
