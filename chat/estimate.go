package chat

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tidehub/hubchat/logger"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// EstimateContextTokens estimates how many tokens the flattened conversation
// occupies, for display in the status line. Falls back to a bytes/4
// heuristic when the tokenizer is unavailable. The number is an estimate:
// the hub's backend may tokenize differently.
func (c *Client) EstimateContextTokens() int {
	c.mu.Lock()
	msgs := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		msgs = append(msgs, m.Content)
	}
	c.mu.Unlock()

	codecOnce.Do(func() {
		var err error
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			logger.Warn("tokenizer unavailable, using byte heuristic", "err", err)
		}
	})

	total := 0
	for _, content := range msgs {
		if codec != nil {
			if ids, _, err := codec.Encode(content); err == nil {
				total += len(ids)
				continue
			}
		}
		total += len(content) / 4
	}
	return total
}
