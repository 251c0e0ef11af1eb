package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidehub/hubchat/auth"
)

func TestCollectHealthy(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok":true}`)
	})
	mux.HandleFunc("/api/token/start", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"client_secret":"s1","expires_in":3600}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := Collect(context.Background(), Options{
		HubURL:     srv.URL,
		HTTPClient: srv.Client(),
		Tokens:     auth.NewManager(srv.URL, srv.Client()),
	})

	if s.Status != "healthy" {
		t.Fatalf("expected healthy, got %q (%+v)", s.Status, s.Hub)
	}
	if !s.Hub.Reachable || !s.Hub.TokenOK {
		t.Fatalf("unexpected hub info: %+v", s.Hub)
	}
	if s.Runtime.OS == "" || s.Runtime.Version == "" {
		t.Fatalf("runtime info missing: %+v", s.Runtime)
	}
}

func TestCollectUnreachableHub(t *testing.T) {
	t.Parallel()

	s := Collect(context.Background(), Options{HubURL: "http://127.0.0.1:1"})

	if s.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", s.Status)
	}
	if s.Hub.Reachable || s.Hub.Error == "" {
		t.Fatalf("unexpected hub info: %+v", s.Hub)
	}
}

func TestCollectTokenFailureDegrades(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok":true}`)
	})
	mux.HandleFunc("/api/token/start", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := Collect(context.Background(), Options{
		HubURL:     srv.URL,
		HTTPClient: srv.Client(),
		Tokens:     auth.NewManager(srv.URL, srv.Client()),
	})

	if s.Status != "degraded" || s.Hub.TokenOK {
		t.Fatalf("token failure not reflected: %+v", s)
	}
}
