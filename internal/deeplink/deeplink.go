// Package deeplink parses addie:// callback URLs and relays them between
// shell processes. The OS invokes a fresh process with the URL when the
// browser redirects; a login waiting in another process receives it over
// a loopback socket.
package deeplink

import (
	"errors"
	"net/url"
	"strings"

	ctxerrors "github.com/agenticadvertising/addie-shell/internal/errors"
	"github.com/agenticadvertising/addie-shell/internal/session"
)

const (
	// Scheme is the custom URL scheme registered for the shell.
	Scheme = "addie"
	// CallbackHost is the host component of the auth callback.
	CallbackHost = "auth"
	// CallbackPath is the path component of the auth callback.
	CallbackPath = "/callback"
	// CallbackURI is the full redirect target sent to the identity flow.
	CallbackURI = "addie://auth/callback"
)

// ErrNotCallback marks URLs that are not the auth callback: wrong scheme,
// host or path, or unparseable input. Callers ignore these without
// surfacing an error.
var ErrNotCallback = errors.New("not an auth callback URL")

// IsCallback reports whether raw is an addie://auth/callback URL,
// regardless of its query parameters.
func IsCallback(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.Scheme == Scheme && u.Host == CallbackHost && u.Path == CallbackPath
}

// ParseCallback extracts the session record from an auth callback URL.
//
// Returns ErrNotCallback for URLs that are not the auth callback, and a
// ValidationError when a required parameter (sealed_session, user_id,
// email) is missing. A required parameter that is present but empty
// (sealed_session=) is treated the same as missing: an empty token or
// user ID can never form a usable session, so it is rejected up front
// rather than stored. Optional name parameters stay nil when absent.
func ParseCallback(raw string) (*session.Session, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, ErrNotCallback
	}
	if u.Scheme != Scheme || u.Host != CallbackHost || u.Path != CallbackPath {
		return nil, ErrNotCallback
	}

	q := u.Query()

	s := &session.Session{
		SealedSession: q.Get("sealed_session"),
		UserID:        q.Get("user_id"),
		Email:         q.Get("email"),
	}

	if s.SealedSession == "" {
		return nil, ctxerrors.MissingParamError("sealed_session")
	}
	if s.UserID == "" {
		return nil, ctxerrors.MissingParamError("user_id")
	}
	if s.Email == "" {
		return nil, ctxerrors.MissingParamError("email")
	}

	if q.Has("first_name") {
		v := q.Get("first_name")
		s.FirstName = &v
	}
	if q.Has("last_name") {
		v := q.Get("last_name")
		s.LastName = &v
	}

	return s, nil
}
