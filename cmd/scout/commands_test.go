package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method  string
	Path    string
	Body    string
	Auth    string
	Session string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method:  r.Method,
			Path:    r.URL.RequestURI(),
			Body:    body.String(),
			Auth:    r.Header.Get("Authorization"),
			Session: r.Header.Get("X-Session-ID"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client(session string) *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		session:    session,
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestTurnRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/turn": `{"reply":"What is your email?"}`,
	})

	client := ts.client("s1")

	resp, err := client.post(ctx, "/v1/turn", map[string]string{"message": "I'm Jane"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var turn struct {
		Reply string `json:"reply"`
	}
	if err := decodeJSON(resp, &turn); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if turn.Reply != "What is your email?" {
		t.Errorf("reply = %q", turn.Reply)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q", r.Auth)
	}
	if r.Session != "s1" {
		t.Errorf("session header = %q, want s1", r.Session)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["message"] != "I'm Jane" {
		t.Errorf("body.message = %q", body["message"])
	}
}

func TestDefaultSessionOmitsHeader(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/profile": `{"fields":{},"collected":0,"total":10,"complete":false}`,
	})

	client := ts.client("")

	resp, err := client.get(ctx, "/v1/profile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if ts.requests[0].Session != "" {
		t.Errorf("session header = %q, want empty", ts.requests[0].Session)
	}
}

func TestDecodeJSONServerError(t *testing.T) {
	ts := newTestServer(t, nil)

	client := ts.client("")

	resp, err := client.get(ctx, "/v1/profile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out map[string]any
	err = decodeJSON(resp, &out)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want it to mention 404", err)
	}
}

func TestResumeUpload(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/resume": `{"fields":{"name":"Jane Doe"},"extracted":1}`,
	})

	client := ts.client("s1")

	resp, err := client.postRaw(ctx, "/v1/resume", "application/pdf", []byte("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Extracted int `json:"extracted"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Extracted != 1 {
		t.Errorf("extracted = %d, want 1", result.Extracted)
	}

	r := ts.requests[0]
	if !strings.HasPrefix(r.Body, "%PDF") {
		t.Errorf("body not forwarded raw: %q", r.Body)
	}
}

func TestResetRequiresConfirm(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	called := false
	orig := newAPIClient
	newAPIClient = func(session string) (*apiClient, error) {
		called = true
		return nil, nil
	}
	defer func() { newAPIClient = orig }()

	rootCmd.SetArgs([]string{"reset"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("reset contacted the server without --confirm")
	}
}

func TestVersionCommand(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
