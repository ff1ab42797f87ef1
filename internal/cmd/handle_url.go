package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/agenticadvertising/addie-shell/internal/auth"
	"github.com/agenticadvertising/addie-shell/internal/deeplink"
	"github.com/agenticadvertising/addie-shell/internal/session"
	"github.com/agenticadvertising/addie-shell/internal/ui"
)

func newHandleURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handle-url <url>",
		Short: "Process an addie:// deep link",
		Long: `Process an addie:// deep link delivered by the OS.

The OS URL handler invokes this command when the browser redirects to an
addie:// URL. If an 'addie auth login' is currently waiting for the
callback, the URL is forwarded to it; otherwise the callback is handled
here directly. URLs that are not the auth callback are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			raw := args[0]

			forwarded, err := deeplink.Forward(raw)
			if err != nil {
				slog.Debug("deep link forward failed, handling locally", "error", err)
			}
			if forwarded {
				slog.Debug("deep link forwarded to waiting login", "url", raw)
				return nil
			}

			handled, err := auth.HandleCallback(ctx, raw)
			if err != nil {
				return err
			}
			if !handled {
				slog.Debug("ignoring non-auth deep link", "url", raw)
				return nil
			}

			if !QuietFromContext(ctx) {
				s, err := session.Load()
				if err == nil && s != nil {
					ui.FromContext(ctx).Success("Logged in as %s", s.DisplayName())
				}
			}
			return nil
		},
	}
}
