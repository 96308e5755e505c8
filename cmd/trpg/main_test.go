package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"dance"}},
		{"join without id", []string{"join"}},
		{"create without prompt", []string{"create", "key"}},
		{"unknown flag", []string{"-verbose", "join", "sess_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := run(tt.args); code != 2 {
				t.Fatalf("expected exit code 2, got %d", code)
			}
		})
	}
}

func TestRunJoinUnknownSessionFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Session not found"}`))
	}))
	defer server.Close()
	t.Setenv("TRPG_GATEWAY_URL", server.URL)

	if code := run([]string{"join", "sess_missing"}); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestRunCreateFailureExitsCleanly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"API key not valid"}`))
	}))
	defer server.Close()
	t.Setenv("TRPG_GATEWAY_URL", server.URL)

	if code := run([]string{"create", "bad-key", "A", "tavern"}); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
