package session

import (
	"errors"
	"testing"

	ctxerrors "github.com/agenticadvertising/addie-shell/internal/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		session   Session
		wantField string
	}{
		{
			name:    "complete",
			session: Session{SealedSession: "s", UserID: "u", Email: "e@x.com"},
		},
		{
			name:      "missing sealed_session",
			session:   Session{UserID: "u", Email: "e@x.com"},
			wantField: "sealed_session",
		},
		{
			name:      "missing user_id",
			session:   Session{SealedSession: "s", Email: "e@x.com"},
			wantField: "user_id",
		},
		{
			name:      "missing email",
			session:   Session{SealedSession: "s", UserID: "u"},
			wantField: "email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ctxerrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, ve.Field)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	first := "Grace"
	last := "Hopper"

	tests := []struct {
		name    string
		session Session
		want    string
	}{
		{"both names", Session{Email: "g@x.com", FirstName: &first, LastName: &last}, "Grace Hopper"},
		{"first only", Session{Email: "g@x.com", FirstName: &first}, "Grace"},
		{"last only", Session{Email: "g@x.com", LastName: &last}, "Hopper"},
		{"no names", Session{Email: "g@x.com"}, "g@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
