package channel

import (
	"context"
	"strings"
	"testing"
	"time"
)

func startPlainChannel(t *testing.T, stdin string) *plainCLIChannel {
	t.Helper()
	c := newPlainCLIChannel()
	c.prompt = ""
	c.stdin = strings.NewReader(stdin)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return c
}

func expectClosed(t *testing.T, c *plainCLIChannel) {
	t.Helper()
	select {
	case in, ok := <-c.Inputs():
		if ok {
			t.Fatalf("unexpected input: %+v", in)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inputs channel never closed")
	}
}

// A piped session ends with stdin EOF; the consumer loop must observe a
// closed channel, not block forever waiting for the next line.
func TestPlainChannelClosesInputsOnStdinEOF(t *testing.T) {
	t.Parallel()

	c := startPlainChannel(t, "hi\n")

	select {
	case in := <-c.Inputs():
		if in.Text != "hi" {
			t.Fatalf("unexpected input text: %q", in.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("input never arrived")
	}
	c.signalTurnDone()

	expectClosed(t, c)
}

func TestPlainChannelClosesInputsOnQuitCommand(t *testing.T) {
	t.Parallel()

	c := startPlainChannel(t, "/quit\n")
	expectClosed(t, c)
}

func TestPlainChannelStopAfterEOFIsSafe(t *testing.T) {
	t.Parallel()

	c := startPlainChannel(t, "")
	expectClosed(t, c)

	// The read loop already closed the channel; Stop must not close it
	// again.
	if err := c.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
}
