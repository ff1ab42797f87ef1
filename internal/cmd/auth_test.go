package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	ctxerrors "github.com/agenticadvertising/addie-shell/internal/errors"
	"github.com/agenticadvertising/addie-shell/internal/iocontext"
	"github.com/agenticadvertising/addie-shell/internal/session"
)

func strptr(s string) *string { return &s }

func TestAuthLoginCommand_Flags(t *testing.T) {
	cmd := newAuthLoginCmd()
	for _, name := range []string{"no-browser", "no-wait", "timeout"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to exist", name)
		}
	}
}

func TestAuthLogin_NoBrowserNoWait_PrintsURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	_, stderr, err := runCommand(t, "auth", "login", "--no-browser", "--no-wait")
	if err != nil {
		t.Fatalf("auth login failed: %v", err)
	}
	if !strings.Contains(stderr, "https://agenticadvertising.org/auth/login?native=true&redirect_uri=addie%3A%2F%2Fauth%2Fcallback") {
		t.Errorf("stderr missing login URL:\n%s", stderr)
	}
}

func TestAuthLogin_RespectsAPIURLOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ADDIE_API_URL", "http://localhost:3000")
	setupSessionStore(t)

	_, stderr, err := runCommand(t, "auth", "login", "--no-browser", "--no-wait")
	if err != nil {
		t.Fatalf("auth login failed: %v", err)
	}
	if !strings.Contains(stderr, "http://localhost:3000/auth/login?native=true") {
		t.Errorf("stderr missing overridden login URL:\n%s", stderr)
	}
}

func TestAuthStatus_LoggedOut(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	stdout, _, err := runCommand(t, "auth", "status", "-o", "json")
	if err != nil {
		t.Fatalf("auth status failed: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if got["logged_in"] != false {
		t.Errorf("logged_in = %v", got["logged_in"])
	}
}

func TestAuthStatus_LoggedIn(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	if err := session.Save(&session.Session{
		SealedSession: "sealed-1",
		UserID:        "u1",
		Email:         "ada@example.com",
		FirstName:     strptr("Ada"),
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stdout, _, err := runCommand(t, "auth", "status", "-o", "json")
	if err != nil {
		t.Fatalf("auth status failed: %v", err)
	}

	var got struct {
		LoggedIn bool `json:"logged_in"`
		User     struct {
			ID        string  `json:"id"`
			Email     string  `json:"email"`
			FirstName *string `json:"first_name"`
		} `json:"user"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if !got.LoggedIn {
		t.Error("logged_in = false")
	}
	if got.User.ID != "u1" || got.User.Email != "ada@example.com" {
		t.Errorf("user = %+v", got.User)
	}
	if got.User.FirstName == nil || *got.User.FirstName != "Ada" {
		t.Errorf("first_name = %v", got.User.FirstName)
	}
	// The sealed session never appears in status output.
	if strings.Contains(stdout, "sealed-1") {
		t.Error("status output leaks the sealed session")
	}
}

func TestAuthToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	_, _, err := runCommand(t, "auth", "token")
	if err == nil {
		t.Fatal("expected error when logged out")
	}
	if ExitCode(err) != ExitAuth {
		t.Errorf("exit code = %d, want %d", ExitCode(err), ExitAuth)
	}

	if err := session.Save(&session.Session{SealedSession: "sealed-2", UserID: "u", Email: "e@x.com"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stdout, _, err := runCommand(t, "auth", "token")
	if err != nil {
		t.Fatalf("auth token failed: %v", err)
	}
	if strings.TrimSpace(stdout) != "sealed-2" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestAuthLogout_DeletesSession(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	if err := session.Save(&session.Session{SealedSession: "s", UserID: "u", Email: "e@x.com"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stdout, _, err := runCommand(t, "auth", "logout")
	if err != nil {
		t.Fatalf("auth logout failed: %v", err)
	}
	if !strings.Contains(stdout, "Logged out") {
		t.Errorf("stdout = %q", stdout)
	}
	if session.Active() {
		t.Error("session still present after logout")
	}
}

func TestTopLevelLogoutAlias(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	if err := session.Save(&session.Session{SealedSession: "s", UserID: "u", Email: "e@x.com"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, _, err := runCommand(t, "logout"); err != nil {
		t.Fatalf("logout alias failed: %v", err)
	}
	if session.Active() {
		t.Error("session still present after logout")
	}
}

func TestWaitForCallback_DeliveredURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	urls := make(chan string, 1)
	urls <- "addie://auth/callback?sealed_session=sealed-1&user_id=u1&email=ada%40example.com"

	var out bytes.Buffer
	ctx := iocontext.WithIO(context.Background(), &out, &out)
	if err := waitForCallback(ctx, urls, time.Minute); err != nil {
		t.Fatalf("waitForCallback failed: %v", err)
	}

	s, err := session.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s == nil || s.SealedSession != "sealed-1" {
		t.Errorf("stored session = %+v", s)
	}
}

func TestWaitForCallback_SkipsIrrelevantURLs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	urls := make(chan string, 2)
	urls <- "addie://open/document/123"
	urls <- "addie://auth/callback?sealed_session=s2&user_id=u2&email=b%40x.com"

	var out bytes.Buffer
	ctx := iocontext.WithIO(context.Background(), &out, &out)
	if err := waitForCallback(ctx, urls, time.Minute); err != nil {
		t.Fatalf("waitForCallback failed: %v", err)
	}

	s, err := session.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s == nil || s.SealedSession != "s2" {
		t.Errorf("stored session = %+v", s)
	}
}

func TestWaitForCallback_ClosedChannel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	urls := make(chan string)
	close(urls)

	var out bytes.Buffer
	ctx := iocontext.WithIO(context.Background(), &out, &out)
	err := waitForCallback(ctx, urls, time.Minute)
	if err == nil {
		t.Fatal("expected error when the URL channel closes")
	}
	if !ctxerrors.IsUserError(err) {
		t.Errorf("expected UserError, got %v", err)
	}
	if session.Active() {
		t.Error("no session should be stored")
	}
}

func TestWaitForCallback_ContextCanceled(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setupSessionStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := waitForCallback(ctx, make(chan string), time.Minute)
	if err == nil || ExitCode(err) != ExitCanceled {
		t.Errorf("expected canceled error, got %v (exit %d)", err, ExitCode(err))
	}
}

func TestEnvTruthy(t *testing.T) {
	t.Setenv("ADDIE_TEST_TRUTHY", "")
	if envTruthy("ADDIE_TEST_TRUTHY") {
		t.Error("expected empty env to be false")
	}

	t.Setenv("ADDIE_TEST_TRUTHY", "true")
	if !envTruthy("ADDIE_TEST_TRUTHY") {
		t.Error("expected true env to be truthy")
	}

	t.Setenv("ADDIE_TEST_TRUTHY", "1")
	if !envTruthy("ADDIE_TEST_TRUTHY") {
		t.Error("expected 1 env to be truthy")
	}

	t.Setenv("ADDIE_TEST_TRUTHY", "false")
	if envTruthy("ADDIE_TEST_TRUTHY") {
		t.Error("expected false env to be false")
	}
}
