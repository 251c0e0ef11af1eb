package stream

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/tidehub/hubchat/logger"
)

const (
	dataPrefix     = "data: "
	frameDelimiter = "\n\n"
	readChunkSize  = 4096
)

// ErrDecoderClosed is returned by Next after Close.
var ErrDecoderClosed = errors.New("stream: decoder closed")

// Decoder turns a raw SSE byte stream into an ordered sequence of Events.
//
// A Decoder is single-use: once the underlying reader ends or errors, a new
// stream needs a new Decoder. Frames split across read chunks are buffered
// until the blank-line delimiter arrives. Frames without the "data: " prefix
// and frames whose payload is not valid JSON are dropped silently.
type Decoder struct {
	r      io.Reader
	buf    strings.Builder
	queue  []*Event
	chunk  []byte
	closed bool
	err    error
}

// NewDecoder creates a Decoder over r. The caller keeps ownership of r and
// closes it when done.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:     r,
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next decoded event in arrival order. It blocks on the
// underlying reader until a complete frame is available. io.EOF signals a
// clean end of stream. Cancelling ctx makes Next return ctx.Err(), though
// callers normally cancel the transport itself so the pending read fails.
func (d *Decoder) Next(ctx context.Context) (*Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(d.queue) > 0 {
			ev := d.queue[0]
			d.queue = d.queue[1:]
			return ev, nil
		}
		if d.closed {
			return nil, ErrDecoderClosed
		}
		if d.err != nil {
			return nil, d.err
		}

		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.ingest(string(d.chunk[:n]))
		}
		if err != nil {
			// Deliver any events completed by this final chunk before
			// surfacing the error on the following call.
			d.err = err
		}
	}
}

// Close marks the decoder unusable. It does not close the underlying reader.
func (d *Decoder) Close() {
	d.closed = true
}

// ingest appends text to the frame buffer and moves every completed frame
// into the event queue. The trailing segment after the last delimiter stays
// buffered for the next chunk.
func (d *Decoder) ingest(text string) {
	d.buf.WriteString(text)
	data := d.buf.String()

	segments := strings.Split(data, frameDelimiter)
	if len(segments) == 1 {
		return // no complete frame yet
	}

	d.buf.Reset()
	d.buf.WriteString(segments[len(segments)-1])

	for _, frame := range segments[:len(segments)-1] {
		frame = strings.TrimSpace(frame)
		if !strings.HasPrefix(frame, dataPrefix) {
			continue
		}
		payload := strings.TrimPrefix(frame, dataPrefix)
		ev, ok := ParseEvent(payload)
		if !ok {
			logger.Debug("dropping malformed frame", "length", len(payload))
			continue
		}
		d.queue = append(d.queue, ev)
	}
}
