package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agenticadvertising/addie-shell/internal/session"
)

func TestAPIRequest_UsesStoredSession(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"email":"ada@example.com"}`))
	}))
	defer server.Close()
	t.Setenv("ADDIE_API_URL", server.URL)

	if err := session.Save(&session.Session{SealedSession: "sealed-1", UserID: "u", Email: "e@x.com"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stdout, _, err := runCommand(t, "api", "request", "get", "/api/me", "-o", "json")
	if err != nil {
		t.Fatalf("api request failed: %v", err)
	}

	if gotAuth != "Bearer sealed-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/api/me" {
		t.Errorf("path = %q", gotPath)
	}

	var envelope struct {
		Status int `json:"status"`
		Body   struct {
			Email string `json:"email"`
		} `json:"body"`
	}
	if err := json.Unmarshal([]byte(stdout), &envelope); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if envelope.Status != http.StatusOK || envelope.Body.Email != "ada@example.com" {
		t.Errorf("envelope = %+v", envelope)
	}
}

func TestAPIRequest_RawOutputsBodyOnly(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()
	t.Setenv("ADDIE_API_URL", server.URL)

	stdout, _, err := runCommand(t, "api", "request", "GET", "/api/health", "--no-auth", "--raw", "-o", "json")
	if err != nil {
		t.Fatalf("api request failed: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if got["ok"] != true {
		t.Errorf("raw body = %v", got)
	}
	if _, hasStatus := got["status"]; hasStatus {
		t.Error("raw output must not include the envelope")
	}
}

func TestAPIRequest_NotLoggedIn(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	_, _, err := runCommand(t, "api", "request", "GET", "/api/me")
	if err == nil {
		t.Fatal("expected auth error when logged out")
	}
	if ExitCode(err) != ExitAuth {
		t.Errorf("exit code = %d, want %d", ExitCode(err), ExitAuth)
	}
}

func TestAPIRequest_UnauthorizedMapsToAuthExit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"session expired"}`))
	}))
	defer server.Close()
	t.Setenv("ADDIE_API_URL", server.URL)

	if err := session.Save(&session.Session{SealedSession: "stale", UserID: "u", Email: "e@x.com"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, _, err := runCommand(t, "api", "request", "GET", "/api/me")
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if ExitCode(err) != ExitAuth {
		t.Errorf("exit code = %d, want %d", ExitCode(err), ExitAuth)
	}
}

func TestResolveBodyInput(t *testing.T) {
	data, err := resolveBodyInput(`{"a":1}`, nil)
	if err != nil {
		t.Fatalf("inline body failed: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("data = %s", data)
	}

	data, err = resolveBodyInput("-", strings.NewReader(`{"b":2}`))
	if err != nil {
		t.Fatalf("stdin body failed: %v", err)
	}
	if string(data) != `{"b":2}` {
		t.Errorf("data = %s", data)
	}

	if data, err = resolveBodyInput("", nil); err != nil || data != nil {
		t.Errorf("empty body = %s, %v", data, err)
	}

	if _, err = resolveBodyInput("not json", nil); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseHeaderFlags(t *testing.T) {
	headers, err := parseHeaderFlags([]string{"X-One: a", "X-Two:b"})
	if err != nil {
		t.Fatalf("parseHeaderFlags failed: %v", err)
	}
	if headers.Get("X-One") != "a" || headers.Get("X-Two") != "b" {
		t.Errorf("headers = %v", headers)
	}

	if _, err := parseHeaderFlags([]string{"no-colon"}); err == nil {
		t.Error("expected error for malformed header")
	}
}
