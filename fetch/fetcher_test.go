package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcu-pkgs/libmirror/client"
)

func TestFetchJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"servo","files":["servo.py"]}`))
	}))
	defer server.Close()

	f := NewFetcher(client.New())
	payload, err := f.FetchJSON(context.Background(), server.URL+"/acme/servo/v1.0.0")
	if err != nil {
		t.Fatalf("FetchJSON failed: %v", err)
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("payload = %T, want map", payload)
	}
	if obj["name"] != "servo" {
		t.Errorf("name = %v, want servo", obj["name"])
	}
}

func TestFetchJSON_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(client.New())
	_, err := f.FetchJSON(context.Background(), server.URL+"/missing")
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("FetchJSON = %v, want ErrNotFound", err)
	}
}

func TestFetchJSON_BreakerTripsAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := NewFetcher(client.New(client.WithMaxRetries(0), client.WithBaseDelay(time.Millisecond)))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := f.FetchJSON(ctx, server.URL); err == nil {
			t.Fatalf("call %d succeeded, want failure", i)
		}
	}

	_, err := f.FetchJSON(ctx, server.URL)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("FetchJSON after 5 failures = %v, want ErrCircuitOpen", err)
	}

	states := f.BreakerStates()
	if states[extractHost(server.URL)] != "open" {
		t.Errorf("breaker state = %v, want open", states)
	}
}

func TestExtractHost(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "registry host",
			url:      "https://libhub.example/api/v1/lib/acme/servo/v1.0.0",
			expected: "libhub.example",
		},
		{
			name:     "invalid URL",
			url:      "not-a-valid-url",
			expected: "not-a-valid-url",
		},
		{
			name:     "with port",
			url:      "https://example.com:8080/path",
			expected: "example.com:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractHost(tt.url); got != tt.expected {
				t.Errorf("extractHost(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}
