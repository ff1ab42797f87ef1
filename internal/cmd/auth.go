package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agenticadvertising/addie-shell/internal/auth"
	"github.com/agenticadvertising/addie-shell/internal/browser"
	"github.com/agenticadvertising/addie-shell/internal/deeplink"
	ctxerrors "github.com/agenticadvertising/addie-shell/internal/errors"
	"github.com/agenticadvertising/addie-shell/internal/events"
	"github.com/agenticadvertising/addie-shell/internal/session"
	"github.com/agenticadvertising/addie-shell/internal/ui"
)

// defaultLoginTimeout is how long to wait for the browser callback before
// falling back to a manual paste prompt.
const defaultLoginTimeout = 2 * time.Minute

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Addie authentication",
		Long: `Manage the Addie session. Sign-in happens in your browser; the session
is stored in the system keyring (with a file fallback when no keyring
is available).`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthTokenCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

type loginOptions struct {
	noBrowser bool
	noWait    bool
	timeout   time.Duration
}

func newAuthLoginCmd() *cobra.Command {
	opts := loginOptions{timeout: defaultLoginTimeout}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in via the browser",
		Long: `Sign in to Addie.

This opens your browser on the Addie login page. After you authenticate,
the server redirects to an addie:// URL which the OS hands back to this
process; the sealed session is then stored securely.

If the browser cannot reach this process (for example over SSH), paste
the addie://auth/callback URL at the prompt, or run
'addie handle-url <url>' from another terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Do not auto-open browser; print the login URL instead")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Start the login and exit without waiting for the callback")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultLoginTimeout, "How long to wait for the browser callback")
	return cmd
}

func runLogin(ctx context.Context, opts loginOptions) error {
	apiBase := apiBaseFromContext(ctx)
	loginURL := auth.LoginURL(apiBase)
	u := ui.FromContext(ctx)

	var listener *deeplink.Listener
	if !opts.noWait {
		var err error
		listener, err = deeplink.Listen()
		if err != nil {
			slog.Debug("deep link listener unavailable", "error", err)
		} else {
			defer func() { _ = listener.Close() }()
		}
	}

	noBrowser := opts.noBrowser || envTruthy("ADDIE_NO_BROWSER") || envTruthy("NO_BROWSER")
	if noBrowser {
		_, _ = fmt.Fprintf(stderrFromContext(ctx), "Open this URL in your browser to sign in:\n\n  %s\n\n", loginURL)
	} else {
		if err := auth.StartLogin(apiBase, browser.Default{}); err != nil {
			u.Warning("Could not open browser: %v", err)
			_, _ = fmt.Fprintf(stderrFromContext(ctx), "Open this URL in your browser to sign in:\n\n  %s\n\n", loginURL)
		} else if !QuietFromContext(ctx) {
			u.Info("Opened your browser to sign in to Addie.")
		}
	}

	if opts.noWait || listener == nil {
		if listener == nil && !opts.noWait {
			u.Warning("Cannot wait for the callback here. After signing in, run: addie handle-url <callback-url>")
		}
		return nil
	}

	// Surface auth events on the terminal as they happen.
	bus := events.NewBus()
	bus.Subscribe(func(ev events.Event) {
		if ev.Name == events.AuthError {
			u.Error("%v", ev.Payload)
		}
	})
	ctx = events.WithEmitter(ctx, bus)

	return waitForCallback(ctx, listener.URLs(), opts.timeout)
}

// waitForCallback blocks until a forwarded URL completes the login, the
// timeout fires, or the URL channel closes underneath us.
func waitForCallback(ctx context.Context, urls <-chan string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-urls:
			if !ok {
				return ctxerrors.NewUserError(
					"the login callback listener shut down before the browser finished",
					"Finish signing in, then run 'addie handle-url <callback-url>' with the addie://auth/callback URL",
				)
			}
			handled, err := auth.HandleCallback(ctx, raw)
			if !handled {
				continue
			}
			if err != nil {
				return err
			}
			return printLoginSuccess(ctx)
		case <-timer.C:
			return promptManualCallback(ctx)
		}
	}
}

// promptManualCallback asks the user to paste the callback URL when the
// deep link never arrived. Non-interactive sessions get an error instead.
func promptManualCallback(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ctxerrors.NewUserError(
			"timed out waiting for the login callback",
			"Finish signing in, then run 'addie handle-url <callback-url>' with the addie://auth/callback URL",
		)
	}

	_, _ = fmt.Fprint(stderrFromContext(ctx), "Timed out waiting for the browser.\nPaste the addie://auth/callback URL here: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read callback URL: %w", err)
	}

	raw := strings.TrimSpace(line)
	handled, err := auth.HandleCallback(ctx, raw)
	if err != nil {
		return err
	}
	if !handled {
		return ctxerrors.NewUserError(
			fmt.Sprintf("%q is not an Addie auth callback", raw),
			"The URL should look like addie://auth/callback?sealed_session=...",
		)
	}
	return printLoginSuccess(ctx)
}

func printLoginSuccess(ctx context.Context) error {
	s, err := session.Load()
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("login completed but no session was stored")
	}

	if !QuietFromContext(ctx) {
		ui.FromContext(ctx).Success("Logged in as %s", s.DisplayName())
	}
	return printerForContext(ctx).Print(ctx, map[string]interface{}{
		"status": "success",
		"user": map[string]interface{}{
			"id":         s.UserID,
			"email":      s.Email,
			"first_name": s.FirstName,
			"last_name":  s.LastName,
		},
	})
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current authentication state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := session.Load()
			if err != nil {
				return err
			}

			printer := printerForContext(ctx)
			if s == nil {
				return printer.Print(ctx, map[string]interface{}{
					"logged_in": false,
					"message":   "Not logged in. Run 'addie auth login' to sign in.",
				})
			}

			return printer.Print(ctx, map[string]interface{}{
				"logged_in": true,
				"user": map[string]interface{}{
					"id":         s.UserID,
					"email":      s.Email,
					"first_name": s.FirstName,
					"last_name":  s.LastName,
				},
			})
		},
	}
}

func newAuthTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the sealed session token",
		Long: `Print the sealed session token to stdout.

Useful for calling the Addie API from scripts:
  curl -H "Authorization: Bearer $(addie auth token)" ...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.Load()
			if err != nil {
				return err
			}
			if s == nil {
				return ctxerrors.AuthRequiredError(nil)
			}
			_, _ = fmt.Fprintln(stdoutFromContext(cmd.Context()), s.SealedSession)
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and delete the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context())
		},
	}
}

func runLogout(ctx context.Context) error {
	if err := auth.Logout(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	return printerForContext(ctx).Print(ctx, map[string]interface{}{
		"status":  "success",
		"message": "Logged out successfully",
	})
}
