// Package auth manages the short-lived client credential that authorizes
// every streaming request to the hub.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tidehub/hubchat/logger"
)

const (
	// refreshSafetyMargin keeps a token from being handed out when it is
	// about to expire mid-request.
	refreshSafetyMargin = 5 * time.Second

	startPath   = "/api/token/start"
	refreshPath = "/api/token/refresh"
)

// Token is an opaque bearer credential with its expiry.
type Token struct {
	Secret    string
	ExpiresAt time.Time
}

// Valid reports whether the token still has the safety margin left at now.
func (t Token) Valid(now time.Time) bool {
	return t.Secret != "" && now.Add(refreshSafetyMargin).Before(t.ExpiresAt)
}

// TokenError is returned when the token endpoint is unreachable or rejects
// the request. Message carries the server-supplied error text if present.
type TokenError struct {
	Status  int
	Message string
	Err     error
}

func (e *TokenError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("token acquisition failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("token acquisition failed: %s", e.Message)
	default:
		return fmt.Sprintf("token acquisition failed: status %d", e.Status)
	}
}

func (e *TokenError) Unwrap() error { return e.Err }

// MirrorFunc mirrors a freshly acquired token into a side channel (for
// collaborating subsystems, e.g. a cookie jar). Mirror failures never fail
// acquisition.
type MirrorFunc func(Token) error

// Manager caches one client credential and refreshes it before expiry.
// EnsureToken is O(1) in the common cached case. The Manager never retries
// on its own; the single retry on a mid-stream 401 belongs to the session
// controller, which calls Invalidate and asks again.
type Manager struct {
	baseURL string
	client  *http.Client
	mirror  MirrorFunc
	now     func() time.Time

	mu  sync.Mutex
	tok Token
}

// NewManager creates a Manager against the hub's token endpoints.
// client may be nil, in which case http.DefaultClient is used.
func NewManager(baseURL string, client *http.Client) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Manager{
		baseURL: baseURL,
		client:  client,
		now:     time.Now,
	}
}

// SetMirror installs the optional side-channel mirror.
func (m *Manager) SetMirror(fn MirrorFunc) { m.mirror = fn }

// EnsureToken returns the cached token when it still has the safety margin,
// otherwise acquires a fresh one: "start" when no prior credential exists,
// "refresh" carrying the prior (possibly expired) secret otherwise.
func (m *Manager) EnsureToken(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tok.Valid(m.now()) {
		return m.tok, nil
	}

	path := startPath
	var body []byte
	if m.tok.Secret != "" {
		path = refreshPath
		var err error
		body, err = json.Marshal(map[string]string{"client_secret": m.tok.Secret})
		if err != nil {
			return Token{}, &TokenError{Err: err}
		}
	}

	tok, err := m.acquire(ctx, path, body)
	if err != nil {
		return Token{}, err
	}
	m.tok = tok

	if m.mirror != nil {
		if err := m.mirror(tok); err != nil {
			logger.Warn("token mirror failed", "err", err)
		}
	}
	return tok, nil
}

// Invalidate discards the cached token. The next EnsureToken starts over.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.tok = Token{}
	m.mu.Unlock()
}

func (m *Manager) acquire(ctx context.Context, path string, body []byte) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Token{}, &TokenError{Err: err}
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return Token{}, &TokenError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, &TokenError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var fail struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &fail)
		return Token{}, &TokenError{Status: resp.StatusCode, Message: fail.Error}
	}

	var ok struct {
		ClientSecret string `json:"client_secret"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &ok); err != nil {
		return Token{}, &TokenError{Status: resp.StatusCode, Err: err}
	}
	if ok.ClientSecret == "" {
		return Token{}, &TokenError{Status: resp.StatusCode, Message: "empty client_secret in response"}
	}

	tok := Token{
		Secret:    ok.ClientSecret,
		ExpiresAt: m.now().Add(time.Duration(ok.ExpiresIn) * time.Second),
	}
	logger.Debug("token acquired", "path", path, "expiresIn", ok.ExpiresIn)
	return tok, nil
}
