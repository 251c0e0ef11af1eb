// Package chat drives one streaming chat session against the hub
// end-to-end: token pre-flight, stream open, decode, reduce, publish,
// cancellation, and the ask-user follow-up call.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/sjson"

	"github.com/tidehub/hubchat/auth"
	"github.com/tidehub/hubchat/bus"
	"github.com/tidehub/hubchat/logger"
	"github.com/tidehub/hubchat/stream"
	"github.com/tidehub/hubchat/timeline"
)

const (
	streamPath  = "/api/chat/stream"
	respondPath = "/api/chat/respond"
)

// TransportError is a network-level failure opening or reading the stream,
// not caused by intentional cancellation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("stream transport failed: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// BackendError is an explicit error event from the hub.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string { return "backend error: " + e.Message }

// Options configures a Client.
type Options struct {
	BaseURL      string
	ModelAssetID string
	// HTTPClient issues the short follow-up calls. May carry a
	// Client.Timeout.
	HTTPClient *http.Client
	// StreamClient issues the streaming request. It must not carry a
	// Client.Timeout: that deadline covers reading the whole body and
	// would cut off a stream that is still delivering events. Nil falls
	// back to HTTPClient.
	StreamClient *http.Client
	Tokens       *auth.Manager
	Bus          *bus.Bus
	// IdleTimeout force-terminates a stream that stalls without emitting
	// any event (including keepalives). Zero disables the watchdog and
	// preserves the hub's native behavior.
	IdleTimeout time.Duration
}

// Client owns one conversation: its message history, the single in-flight
// streaming session, and the pending question group. One logical stream per
// conversation at a time; Send fails while another send is streaming.
type Client struct {
	baseURL      string
	modelAssetID string
	httpClient   *http.Client
	streamClient *http.Client
	tokens       *auth.Manager
	bus          *bus.Bus
	idleTimeout  time.Duration

	mu             sync.Mutex
	conversationID string
	messages       []*timeline.Message
	reducer        *timeline.Reducer
	cancel         context.CancelFunc
	aborted        bool
	msgCounter     int64
}

// New creates a Client. Tokens and Bus are required; HTTPClient defaults to
// http.DefaultClient.
func New(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	streamClient := opts.StreamClient
	if streamClient == nil {
		streamClient = client
	}
	return &Client{
		baseURL:      opts.BaseURL,
		modelAssetID: opts.ModelAssetID,
		httpClient:   client,
		streamClient: streamClient,
		tokens:       opts.Tokens,
		bus:          opts.Bus,
		idleTimeout:  opts.IdleTimeout,
	}
}

// ConversationID returns the hub-assigned conversation id, if any.
func (c *Client) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Messages returns the conversation history including any message that is
// still streaming. The slice is a copy; the messages are shared.
func (c *Client) Messages() []*timeline.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*timeline.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Pending returns the open question group, or nil.
func (c *Client) Pending() *timeline.PendingQuestionGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reducer == nil {
		return nil
	}
	return c.reducer.Pending()
}

// SeedHistory installs historical messages to resume an existing
// conversation. Callers must not seed while a send is streaming.
func (c *Client) SeedHistory(conversationID string, msgs []*timeline.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationID = conversationID
	c.messages = append([]*timeline.Message(nil), msgs...)
}

// Abort cancels the in-flight stream, if any. The transport is torn down
// immediately; already-applied timeline state is retained, not rewound.
func (c *Client) Abort() {
	c.mu.Lock()
	cancel := c.cancel
	if cancel != nil {
		c.aborted = true
	}
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Send submits user text and streams the assistant's response to
// completion, publishing every intermediate timeline state on the bus. The
// returned message is the finalized assistant message; on error it carries
// whatever partial state accumulated. A user abort is not an error.
func (c *Client) Send(ctx context.Context, text string) (*timeline.Message, error) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return nil, errors.New("chat: a send is already streaming")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.aborted = false

	c.msgCounter++
	userMsg := timeline.NewUserMessage(fmt.Sprintf("msg-%d", c.msgCounter), text)
	c.msgCounter++
	asstMsg := timeline.NewAssistantMessage(fmt.Sprintf("msg-%d", c.msgCounter))
	c.messages = append(c.messages, userMsg, asstMsg)

	reducer := timeline.NewReducer(asstMsg)
	c.reducer = reducer
	conversationID := c.conversationID
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	c.publish(bus.NewEvent(bus.EventTimelineUpdated, asstMsg))

	err := c.runSession(streamCtx, reducer, text, conversationID)
	if err != nil && c.wasAborted() {
		reducer.Finish()
		c.publish(bus.NewEvent(bus.EventStreamAborted, asstMsg))
		return asstMsg, nil
	}
	if err != nil {
		var tokenErr *auth.TokenError
		if errors.As(err, &tokenErr) {
			reducer.Fail(tokenErr.Error())
		} else {
			reducer.Finish()
		}
		ev := bus.NewEvent(bus.EventStreamErrored, asstMsg)
		ev.Err = err
		c.publish(ev)
		return asstMsg, err
	}

	if id := reducer.ConversationID(); id != "" {
		c.mu.Lock()
		c.conversationID = id
		c.mu.Unlock()
	}
	c.publish(bus.NewEvent(bus.EventStreamDone, asstMsg))
	return asstMsg, nil
}

// runSession performs token pre-flight, opens the stream (with the single
// controller-driven refresh retry on 401), and drives the decode/reduce
// loop until a terminal event or failure.
func (c *Client) runSession(ctx context.Context, reducer *timeline.Reducer, text, conversationID string) error {
	tok, err := c.tokens.EnsureToken(ctx)
	if err != nil {
		return err
	}

	body, err := c.buildStreamRequest(text, conversationID)
	if err != nil {
		return &TransportError{Err: err}
	}

	resp, err := c.openStream(ctx, tok, body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp)
		logger.Info("stream open rejected with 401, forcing token refresh")
		c.tokens.Invalidate()
		if tok, err = c.tokens.EnsureToken(ctx); err != nil {
			return err
		}
		if resp, err = c.openStream(ctx, tok, body); err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drainAndClose(resp)
			return &TransportError{Err: errors.New("stream rejected twice with 401")}
		}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{Err: fmt.Errorf("stream open returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))}
	}
	defer resp.Body.Close()

	return c.consume(ctx, reducer, resp.Body)
}

// consume drives the frame decoder, applying and publishing every event in
// arrival order. Returns nil only after a terminal protocol event.
func (c *Client) consume(ctx context.Context, reducer *timeline.Reducer, body io.Reader) error {
	dec := stream.NewDecoder(body)
	defer dec.Close()

	watchdog := c.startWatchdog()
	defer watchdog.stop()

	for {
		ev, err := dec.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Malformed terminal framing: the stream ended without
				// done/error. The message must not stay streaming.
				return &TransportError{Err: errors.New("stream ended without terminal event")}
			}
			return &TransportError{Err: err}
		}
		watchdog.kick()

		reducer.Apply(ev)
		msg := reducer.Message()
		c.publish(bus.NewEvent(bus.EventTimelineUpdated, msg))

		switch ev.Type {
		case stream.EventAskUser:
			if group := reducer.Pending(); group != nil {
				qe := bus.NewEvent(bus.EventQuestionPending, msg)
				qe.Group = group
				// A handler may block here while the user types an
				// answer. The stream is paused on purpose, so the idle
				// clock must not count that time against it.
				watchdog.stop()
				c.publish(qe)
				watchdog.kick()
			}
		case stream.EventError:
			return &BackendError{Message: ev.Message}
		case stream.EventDone:
			return nil
		}
	}
}

func (c *Client) buildStreamRequest(text, conversationID string) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "message", text); err != nil {
		return nil, err
	}
	if conversationID != "" {
		if body, err = sjson.SetBytes(body, "conversation_id", conversationID); err != nil {
			return nil, err
		}
	}
	if c.modelAssetID != "" {
		if body, err = sjson.SetBytes(body, "model_asset_id", c.modelAssetID); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (c *Client) openStream(ctx context.Context, tok auth.Token, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+streamPath, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+tok.Secret)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

func (c *Client) publish(ev *bus.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func (c *Client) wasAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// watchdog cancels a stalled stream when no event arrives within the idle
// timeout. Disabled by default.
type watchdog struct {
	timer *time.Timer
	d     time.Duration
}

func (c *Client) startWatchdog() *watchdog {
	w := &watchdog{d: c.idleTimeout}
	if w.d <= 0 {
		return w
	}
	cancel := c.cancelFunc()
	w.timer = time.AfterFunc(w.d, func() {
		logger.Warn("stream idle timeout reached, cancelling", "timeout", w.d)
		if cancel != nil {
			cancel()
		}
	})
	return w
}

func (w *watchdog) kick() {
	if w.timer != nil {
		w.timer.Reset(w.d)
	}
}

func (w *watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (c *Client) cancelFunc() context.CancelFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel
}
