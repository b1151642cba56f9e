package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/solarmart/solarmart-client/pkg/config"
	pkgerrors "github.com/solarmart/solarmart-client/pkg/errors"
)

// storefront stands in for the backend: /api/cart accepts only the token
// minted by the most recent refresh.
type storefront struct {
	mu           sync.Mutex
	validToken   string
	refreshCalls int32
	refreshOK    bool
	refreshDelay time.Duration
}

func (s *storefront) router() http.Handler {
	router := chi.NewRouter()
	router.Post("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.refreshCalls, 1)
		if s.refreshDelay > 0 {
			time.Sleep(s.refreshDelay)
		}
		if !s.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"refresh token expired"}`))
			return
		}
		s.mu.Lock()
		s.validToken = "fresh-token"
		s.mu.Unlock()
		w.Write([]byte(`{"access_token":"fresh-token"}`))
	})
	router.Get("/api/cart", s.requireToken(`{"id":"c1","items":[]}`))
	router.Post("/api/orders", s.requireToken(`{"id":"o1"}`))
	return router
}

func (s *storefront) requireToken(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		valid := "Bearer " + s.validToken
		s.mu.Unlock()
		if r.Header.Get("Authorization") != valid {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"token expired"}`))
			return
		}
		w.Write([]byte(body))
	}
}

func TestRefreshAndReplayAfter401(t *testing.T) {
	t.Parallel()

	backend := &storefront{validToken: "fresh-token-not-yet-issued", refreshOK: true}
	server := httptest.NewServer(backend.router())
	defer server.Close()

	creds := &memCreds{token: "stale-token"}
	client := newTestClient(t, server.URL, creds)

	data, err := client.Do(context.Background(), http.MethodGet, "/api/cart", nil)
	if err != nil {
		t.Fatalf("expected replay to succeed, got %v", err)
	}
	if string(data) != `{"id":"c1","items":[]}` {
		t.Fatalf("unexpected body: %s", data)
	}
	if creds.Token() != "fresh-token" {
		t.Fatalf("expected refreshed credential stored, got %q", creds.Token())
	}
	if got := atomic.LoadInt32(&backend.refreshCalls); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	t.Parallel()

	backend := &storefront{validToken: "not-yet-issued", refreshOK: true, refreshDelay: 50 * time.Millisecond}
	server := httptest.NewServer(backend.router())
	defer server.Close()

	creds := &memCreds{token: "stale-token"}
	client := newTestClient(t, server.URL, creds)

	const parallel = 8
	errs := make([]error, parallel)
	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Do(context.Background(), http.MethodGet, "/api/cart", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&backend.refreshCalls); got != 1 {
		t.Fatalf("expected exactly one refresh call for %d concurrent 401s, got %d", parallel, got)
	}
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	t.Parallel()

	backend := &storefront{refreshOK: false}
	server := httptest.NewServer(backend.router())
	defer server.Close()

	creds := &memCreds{token: "stale-token"}
	var expiredReason string
	client, err := New(Params{
		BaseURL:     server.URL,
		Timeout:     5 * time.Second,
		Credentials: creds,
		Auth:        config.AuthConfig{ProtectedPaths: []string{"/checkout"}},
		OnSessionExpired: func(reason string) {
			expiredReason = reason
		},
		Location: func() string { return "/checkout/confirm" },
	})
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	_, doErr := client.Do(context.Background(), http.MethodGet, "/api/cart", nil)
	typed := pkgerrors.As(doErr)
	if typed == nil || typed.Message() != "refresh token expired" {
		t.Fatalf("expected the refresh error surfaced, got %v", doErr)
	}
	if creds.Token() != "" || creds.clear != 1 {
		t.Fatal("expected credentials cleared after refresh failure")
	}
	if expiredReason == "" {
		t.Fatal("expected session-expired hook to fire on protected location")
	}
}

func TestRefreshFailureSkipsHookOnPublicLocation(t *testing.T) {
	t.Parallel()

	backend := &storefront{refreshOK: false}
	server := httptest.NewServer(backend.router())
	defer server.Close()

	hookFired := false
	client, err := New(Params{
		BaseURL:          server.URL,
		Credentials:      &memCreds{token: "stale"},
		Auth:             config.AuthConfig{ProtectedPaths: []string{"/checkout"}},
		OnSessionExpired: func(string) { hookFired = true },
		Location:         func() string { return "/products" },
	})
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	if _, doErr := client.Do(context.Background(), http.MethodGet, "/api/cart", nil); doErr == nil {
		t.Fatal("expected error")
	}
	if hookFired {
		t.Fatal("hook must not fire when the caller is on a public path")
	}
}

func TestAuthEndpointsNeverTriggerRefresh(t *testing.T) {
	t.Parallel()

	var refreshCalls int32
	router := chi.NewRouter()
	router.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid credentials"}`))
	})
	router.Post("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		w.Write([]byte(`{"access_token":"fresh-token"}`))
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(t, server.URL, &memCreds{token: "tok"})
	_, err := client.Do(context.Background(), http.MethodPost, "/api/auth/login", map[string]string{"email": "x"})

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if got := atomic.LoadInt32(&refreshCalls); got != 0 {
		t.Fatalf("login 401 must not trigger refresh, got %d calls", got)
	}
}

func TestEachRequestRetriedAtMostOnce(t *testing.T) {
	t.Parallel()

	// Refresh succeeds but the resource keeps rejecting: the request must not
	// loop, it surfaces the second 401.
	var cartCalls int32
	router := chi.NewRouter()
	router.Post("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"fresh-token"}`))
	})
	router.Get("/api/cart", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&cartCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"still unauthorized"}`))
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(t, server.URL, &memCreds{token: "stale"})
	_, err := client.Do(context.Background(), http.MethodGet, "/api/cart", nil)

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized after single replay, got %v", err)
	}
	if got := atomic.LoadInt32(&cartCalls); got != 2 {
		t.Fatalf("expected original call plus one replay, got %d calls", got)
	}
}

func TestRefreshForwardsCookieCredential(t *testing.T) {
	t.Parallel()

	var gotCookie string
	router := chi.NewRouter()
	router.Get("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "opaque-refresh", Path: "/"})
		w.Write([]byte(`{}`))
	})
	router.Post("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("refresh_token"); err == nil {
			gotCookie = cookie.Value
		}
		w.Write([]byte(`{"access_token":"fresh-token"}`))
	})
	router.Get("/api/cart", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"token expired"}`))
			return
		}
		w.Write([]byte(`{"id":"c1"}`))
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(t, server.URL, &memCreds{token: "stale"})

	// Seed the jar with the server-set refresh cookie, then force a refresh.
	if _, err := client.Do(context.Background(), http.MethodGet, "/api/auth/session", nil); err != nil {
		t.Fatalf("seeding cookie: %v", err)
	}
	if _, err := client.Do(context.Background(), http.MethodGet, "/api/cart", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCookie != "opaque-refresh" {
		t.Fatalf("expected refresh cookie forwarded, got %q", gotCookie)
	}
}
