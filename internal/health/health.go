// Package health produces a diagnostic snapshot for the status command.
package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/tidehub/hubchat/auth"
)

const probeTimeout = 10 * time.Second

// Options configures a health collection run.
type Options struct {
	HubURL     string
	HTTPClient *http.Client
	Tokens     *auth.Manager // optional; enables the token mint check
}

// Snapshot is the full diagnostic result.
type Snapshot struct {
	Status    string      `json:"status"` // healthy | degraded
	Hub       HubInfo     `json:"hub"`
	Runtime   RuntimeInfo `json:"runtime"`
	Timestamp string      `json:"timestamp"`
}

// HubInfo reports hub reachability and credential state.
type HubInfo struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	TokenOK   bool   `json:"token_ok"`
	Error     string `json:"error,omitempty"`
}

// RuntimeInfo describes the local process.
type RuntimeInfo struct {
	Version    string `json:"version"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	CPUs       int    `json:"cpus"`
	Goroutines int    `json:"goroutines"`
}

// Collect probes the hub and returns a health snapshot.
func Collect(ctx context.Context, opts Options) Snapshot {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	s := Snapshot{
		Status: "healthy",
		Hub:    HubInfo{URL: opts.HubURL},
		Runtime: RuntimeInfo{
			Version:    runtime.Version(),
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			CPUs:       runtime.NumCPU(),
			Goroutines: runtime.NumGoroutine(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, opts.HubURL+"/api/health", nil)
	if err != nil {
		s.Hub.Error = err.Error()
		s.Status = "degraded"
		return s
	}
	resp, err := client.Do(req)
	if err != nil {
		s.Hub.Error = err.Error()
		s.Status = "degraded"
		return s
	}
	resp.Body.Close()
	s.Hub.Reachable = resp.StatusCode < 500
	s.Hub.LatencyMS = time.Since(start).Milliseconds()
	if !s.Hub.Reachable {
		s.Status = "degraded"
	}

	if opts.Tokens != nil {
		if _, err := opts.Tokens.EnsureToken(probeCtx); err != nil {
			s.Hub.Error = err.Error()
			s.Status = "degraded"
		} else {
			s.Hub.TokenOK = true
		}
	}

	return s
}
