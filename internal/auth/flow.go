// Package auth orchestrates the browser login flow: it builds the login
// URL, hands it to the OS browser, and turns the deep-link callback into
// a stored session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/agenticadvertising/addie-shell/internal/browser"
	"github.com/agenticadvertising/addie-shell/internal/deeplink"
	"github.com/agenticadvertising/addie-shell/internal/events"
	"github.com/agenticadvertising/addie-shell/internal/session"
)

// User is the payload attached to the auth-success event. Name fields
// are present but null when the callback omitted them.
type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// LoginURL builds the browser login URL for the given API origin. The
// server redirects through the identity provider and lands back on the
// addie:// callback with the sealed session.
func LoginURL(apiBase string) string {
	return fmt.Sprintf("%s/auth/login?native=true&redirect_uri=%s",
		apiBase, url.QueryEscape(deeplink.CallbackURI))
}

// StartLogin opens the login URL in the user's browser.
func StartLogin(apiBase string, opener browser.Opener) error {
	loginURL := LoginURL(apiBase)
	if err := opener.Open(loginURL); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	slog.Debug("login started", "url", loginURL)
	return nil
}

// HandleCallback processes a deep link URL received from the OS.
//
// URLs that are not the auth callback are ignored: handled is false and
// err is nil. For the auth callback, the session is parsed and stored,
// and an auth-success event carrying the user is emitted. A store
// failure emits auth-error and returns the error.
func HandleCallback(ctx context.Context, raw string) (handled bool, err error) {
	s, err := deeplink.ParseCallback(raw)
	if err != nil {
		if errors.Is(err, deeplink.ErrNotCallback) {
			slog.Debug("ignoring non-auth URL", "url", raw)
			return false, nil
		}
		return true, err
	}

	emitter := events.FromContext(ctx)

	if err := session.Save(s); err != nil {
		emitter.Emit(events.AuthError, fmt.Sprintf("Failed to save session: %v", err))
		return true, err
	}

	slog.Info("auth callback received", "email", s.Email)

	emitter.Emit(events.AuthSuccess, map[string]any{
		"user": User{
			ID:        s.UserID,
			Email:     s.Email,
			FirstName: s.FirstName,
			LastName:  s.LastName,
		},
	})

	return true, nil
}

// Logout deletes the stored session.
func Logout() error {
	return session.Delete()
}
