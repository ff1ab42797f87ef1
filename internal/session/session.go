// Package session persists the Addie user session in the OS credential
// store, with a plaintext-file fallback for unsigned and headless builds.
package session

import (
	ctxerrors "github.com/agenticadvertising/addie-shell/internal/errors"
)

// Session is the single credential record the shell keeps per device.
// The sealed session is an opaque server-issued token; the remaining
// fields describe the signed-in user. First and last name are optional
// and stay absent through save/load when the callback omitted them.
type Session struct {
	SealedSession string  `json:"sealed_session"`
	UserID        string  `json:"user_id"`
	Email         string  `json:"email"`
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
}

// Validate checks the required fields are present.
func (s *Session) Validate() error {
	if s.SealedSession == "" {
		return ctxerrors.MissingParamError("sealed_session")
	}
	if s.UserID == "" {
		return ctxerrors.MissingParamError("user_id")
	}
	if s.Email == "" {
		return ctxerrors.MissingParamError("email")
	}
	return nil
}

// DisplayName returns the user's name for terminal output, falling back
// to the email when no name fields were provided.
func (s *Session) DisplayName() string {
	switch {
	case s.FirstName != nil && s.LastName != nil:
		return *s.FirstName + " " + *s.LastName
	case s.FirstName != nil:
		return *s.FirstName
	case s.LastName != nil:
		return *s.LastName
	default:
		return s.Email
	}
}
