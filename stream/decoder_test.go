package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkReader hands out one fixed chunk per Read call, simulating a network
// stream that splits frames at arbitrary byte boundaries.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func frame(payload string) string {
	return "data: " + payload + "\n\n"
}

func TestDecodeSequence(t *testing.T) {
	t.Parallel()

	input := frame(`{"type":"text_delta","content":"Hel"}`) +
		frame(`{"type":"text_delta","content":"lo"}`) +
		frame(`{"type":"done","conversation_id":"c1"}`)

	d := NewDecoder(strings.NewReader(input))
	ctx := context.Background()

	ev1, err := d.Next(ctx)
	if err != nil || ev1.Type != EventTextDelta || ev1.Content != "Hel" {
		t.Fatalf("first event wrong: %+v err=%v", ev1, err)
	}
	ev2, err := d.Next(ctx)
	if err != nil || ev2.Content != "lo" {
		t.Fatalf("second event wrong: %+v err=%v", ev2, err)
	}
	ev3, err := d.Next(ctx)
	if err != nil || ev3.Type != EventDone || ev3.ConversationID != "c1" {
		t.Fatalf("third event wrong: %+v err=%v", ev3, err)
	}
	if _, err := d.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestFrameSplitAcrossChunks(t *testing.T) {
	t.Parallel()

	full := frame(`{"type":"text_delta","content":"split across reads"}`)
	r := &chunkReader{chunks: []string{full[:10], full[10:25], full[25:]}}

	d := NewDecoder(r)
	ev, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if ev.Content != "split across reads" {
		t.Fatalf("unexpected content: %q", ev.Content)
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	t.Parallel()

	input := frame(`{not json`) +
		"event: ping\n\n" +
		frame(`[1,2,3]`) +
		frame(`{"no_type":true}`) +
		frame(`{"type":"text_delta","content":"survived"}`)

	d := NewDecoder(strings.NewReader(input))
	ev, err := d.Next(context.Background())
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if ev.Content != "survived" {
		t.Fatalf("expected the valid frame, got %+v", ev)
	}
}

func TestQueuedEventsDeliveredBeforeEOF(t *testing.T) {
	t.Parallel()

	// The final read returns data and EOF together; both events must still
	// come out before the EOF surfaces.
	input := frame(`{"type":"keepalive"}`) + frame(`{"type":"done"}`)
	d := NewDecoder(iotestDataErrReader{data: input})
	ctx := context.Background()

	if ev, err := d.Next(ctx); err != nil || ev.Type != EventKeepalive {
		t.Fatalf("first event wrong: %+v err=%v", ev, err)
	}
	if ev, err := d.Next(ctx); err != nil || ev.Type != EventDone {
		t.Fatalf("second event wrong: %+v err=%v", ev, err)
	}
	if _, err := d.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

// iotestDataErrReader returns all data plus io.EOF in a single Read.
type iotestDataErrReader struct {
	data string
}

func (r iotestDataErrReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	return n, io.EOF
}

func TestNextHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDecoder(strings.NewReader(frame(`{"type":"keepalive"}`)))
	if _, err := d.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNextAfterClose(t *testing.T) {
	t.Parallel()

	d := NewDecoder(strings.NewReader(""))
	d.Close()
	if _, err := d.Next(context.Background()); !errors.Is(err, ErrDecoderClosed) {
		t.Fatalf("expected ErrDecoderClosed, got %v", err)
	}
}
