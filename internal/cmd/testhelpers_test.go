package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/agenticadvertising/addie-shell/internal/session"
)

// setupSessionStore points the session package at a mock keyring and a
// temp fallback file so tests never touch the real credential store.
func setupSessionStore(t *testing.T) *session.MockKeyring {
	t.Helper()

	mock := session.NewMockKeyringProvider()
	session.SetProviderFunc(func() (session.KeyringProvider, error) {
		return mock, nil
	})
	t.Cleanup(func() { session.SetProviderFunc(nil) })

	path := filepath.Join(t.TempDir(), session.FallbackFileName)
	orig := session.SetFallbackFilePathFunc(func() (string, error) { return path, nil })
	t.Cleanup(func() { session.SetFallbackFilePathFunc(orig) })

	return mock
}

// runCommand executes the CLI with the given args and captured output.
func runCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errBuf bytes.Buffer
	app := &App{Stdout: &out, Stderr: &errBuf, Version: "test"}
	root := app.RootCommand()
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errBuf.String(), err
}
