package cmd

import (
	"fmt"
	"net/http"

	"github.com/tidehub/hubchat/auth"
	"github.com/tidehub/hubchat/bus"
	"github.com/tidehub/hubchat/chat"
	"github.com/tidehub/hubchat/config"
)

// runtime bundles the pieces every chat-facing command needs: the loaded
// config, the shared HTTP client, the token manager, the event bus, the
// conversation store, and the chat client built on top of them.
type runtime struct {
	cfg    *config.Config
	bus    *bus.Bus
	store  *chat.ConversationStore
	client *chat.Client
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid hub.requestTimeout: %w", err)
	}
	idle, err := cfg.IdleTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid stream.idleTimeout: %w", err)
	}

	statePath, err := config.StatePath()
	if err != nil {
		return nil, err
	}

	// Client.Timeout covers reading the whole response body, which would
	// cut off an active stream at the request timeout. Short calls
	// (tokens, follow-ups) keep the configured bound; the streaming
	// request gets its own unbounded client and relies on the idle
	// watchdog instead.
	httpClient := &http.Client{Timeout: timeout}
	streamClient := &http.Client{}
	tokens := auth.NewManager(cfg.Hub.BaseURL, httpClient)
	b := bus.New()

	client := chat.New(chat.Options{
		BaseURL:      cfg.Hub.BaseURL,
		ModelAssetID: cfg.Hub.ModelAssetID,
		HTTPClient:   httpClient,
		StreamClient: streamClient,
		Tokens:       tokens,
		Bus:          b,
		IdleTimeout:  idle,
	})

	return &runtime{
		cfg:    cfg,
		bus:    b,
		store:  chat.NewConversationStore(statePath),
		client: client,
	}, nil
}

// resumeConversation seeds the client with the stored conversation id so the
// hub continues the prior thread instead of opening a new one.
func (r *runtime) resumeConversation() {
	state, err := r.store.Load()
	if err != nil || state.ConversationID == "" {
		return
	}
	r.client.SeedHistory(state.ConversationID, nil)
}

// persistConversation writes the hub-assigned conversation id back to disk.
func (r *runtime) persistConversation() {
	id := r.client.ConversationID()
	if id == "" {
		return
	}
	_ = r.store.Save(chat.ConversationState{ConversationID: id})
}
