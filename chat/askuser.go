package chat

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/tidwall/sjson"

	"github.com/tidehub/hubchat/bus"
	"github.com/tidehub/hubchat/logger"
)

// SubmitResponse answers a pending question group. The answer is committed
// locally first (the item closes, the pending group clears) and then sent
// to the hub so the paused agent run can resume. The follow-up call is
// fire-and-forget: a transport failure is logged, never retried, and does
// not reopen the group — re-prompting after the user already committed a
// choice would be confusing.
//
// Calling SubmitResponse for an unknown or already-answered group id is a
// no-op.
func (c *Client) SubmitResponse(ctx context.Context, groupID string, responses map[string]string) {
	c.mu.Lock()
	reducer := c.reducer
	c.mu.Unlock()

	if reducer == nil || !reducer.AnswerGroup(groupID, responses) {
		logger.Debug("ignoring response for unknown question group", "groupID", groupID)
		return
	}

	c.publish(bus.NewEvent(bus.EventTimelineUpdated, reducer.Message()))

	c.sendResponse(ctx, groupID, responses)
}

func (c *Client) sendResponse(ctx context.Context, groupID string, responses map[string]string) {
	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "group_id", groupID); err != nil {
		logger.Warn("building ask-user response failed", "groupID", groupID, "err", err)
		return
	}
	for key, value := range responses {
		if body, err = sjson.SetBytes(body, "responses."+key, value); err != nil {
			logger.Warn("building ask-user response failed", "groupID", groupID, "err", err)
			return
		}
	}

	tok, err := c.tokens.EnsureToken(ctx)
	if err != nil {
		logger.Warn("ask-user follow-up skipped, no token", "groupID", groupID, "err", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+respondPath, bytes.NewReader(body))
	if err != nil {
		logger.Warn("ask-user follow-up failed", "groupID", groupID, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.Secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("ask-user follow-up failed", "groupID", groupID, "err", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		logger.Warn("ask-user follow-up rejected", "groupID", groupID, "status", resp.StatusCode)
		return
	}
	logger.Debug("ask-user response delivered", "groupID", groupID)
}
