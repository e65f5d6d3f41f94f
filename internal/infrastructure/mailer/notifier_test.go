package mailer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmarkov/user-microservice/internal/application"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:       baseURL,
		Timeout:       2 * time.Second,
		MaxFailures:   3,
		Cooldown:      time.Minute,
		MaxRetries:    2,
		RetryInterval: time.Millisecond,
	}
}

func TestNotifyCreatedHitsCreateEndpoint(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(testConfig(srv.URL), nil)
	if err := n.NotifyCreated(context.Background(), "abc@gmail.com", "Ivanov Ivan"); err != nil {
		t.Fatalf("NotifyCreated: %v", err)
	}

	if gotPath != "/simple-email/type-operation-create" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "email=abc%40gmail.com&name=Ivanov+Ivan" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestNotifyDeletedHitsDeleteEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(testConfig(srv.URL), nil)
	if err := n.NotifyDeleted(context.Background(), "abc@gmail.com", "Ivanov Ivan"); err != nil {
		t.Fatalf("NotifyDeleted: %v", err)
	}
	if gotPath != "/simple-email/type-operation-delete/abc@gmail.com/Ivanov%20Ivan" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestTransientFailuresAreRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(testConfig(srv.URL), nil)
	if err := n.NotifyCreated(context.Background(), "retry@example.com", "Retry Me"); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("server saw %d calls, want 3 (two 500s then 200)", got)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier(testConfig(srv.URL), nil)
	if err := n.NotifyCreated(context.Background(), "bad@example.com", "Bad Request"); err == nil {
		t.Fatal("expected error on 400")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("server saw %d calls, want 1 (4xx is terminal)", got)
	}
}

func TestOpenCircuitFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxFailures = 1
	cfg.MaxRetries = 0
	n := NewNotifier(cfg, nil)
	ctx := context.Background()

	// First call exhausts the budget and trips the breaker.
	if err := n.NotifyCreated(ctx, "trip@example.com", "Trip"); err == nil {
		t.Fatal("expected first call to fail")
	}
	before := calls.Load()

	err := n.NotifyCreated(ctx, "trip@example.com", "Trip")
	if !errors.Is(err, application.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable from open circuit, got %v", err)
	}
	if calls.Load() != before {
		t.Fatal("open circuit must not reach the server")
	}
}
