package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenticadvertising/addie-shell/internal/config"
	"github.com/agenticadvertising/addie-shell/internal/debug"
	"github.com/agenticadvertising/addie-shell/internal/iocontext"
	"github.com/agenticadvertising/addie-shell/internal/logging"
	"github.com/agenticadvertising/addie-shell/internal/output"
	"github.com/agenticadvertising/addie-shell/internal/ui"
)

func newRootCmd(app *App) *cobra.Command {
	// Global flags
	var (
		debugMode    bool
		outputFlag   string
		colorFlag    string
		jqFlag       string
		jsonPathFlag string
		errorFormat  string
		quietFlag    bool
	)

	rootCmd := &cobra.Command{
		Use:   "addie",
		Short: "Native shell for the Addie app",
		Long: `The native backend of the Addie app: browser-based sign-in,
addie:// deep link handling, and secure session storage.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Cobra must not emit its own error/usage text; error output is handled centrally.
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			logging.Setup(debugMode, app.Stderr)

			// Load Addie environment defaults from ~/.addie/.env when present.
			if err := loadAddieEnvIfPresent(); err != nil {
				slog.Debug("skipping env file auto-load", "error", err)
			}

			// Load config file (skip for config commands to avoid recursion)
			var cfg *config.Config
			if !isConfigCommand(cmd) {
				loadedCfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg = loadedCfg
			} else {
				cfg = &config.Config{}
			}

			outputValue := outputFlag
			if !cmd.Flags().Changed("output") && cfg.GetOutput() != "" {
				outputValue = cfg.GetOutput()
			}
			format, err := output.ParseFormat(outputValue)
			if err != nil {
				return err
			}

			colorValue := colorFlag
			if !cmd.Flags().Changed("color") && cfg.GetColor() != "" {
				colorValue = cfg.GetColor()
			}
			colorMode, err := ui.ParseColorMode(colorValue)
			if err != nil {
				return err
			}

			if err := validateErrorFormat(errorFormat); err != nil {
				return err
			}

			ctx := cmd.Context()
			ctx = iocontext.WithIO(ctx, app.Stdout, app.Stderr)
			ctx = debug.WithDebug(ctx, debugMode)
			ctx = output.WithFormat(ctx, format)
			if jqFlag != "" {
				ctx = output.WithQuery(ctx, jqFlag)
			}
			if jsonPathFlag != "" {
				ctx = output.WithJSONPath(ctx, jsonPathFlag)
			}
			ctx = ui.WithUI(ctx, ui.New(colorMode))
			ctx = WithConfig(ctx, cfg)
			ctx = WithErrorFormat(ctx, errorFormat)
			ctx = WithQuiet(ctx, quietFlag)
			cmd.SetContext(ctx)

			return nil
		},
	}

	rootCmd.Version = app.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("addie %s (commit: %s, built: %s)\n", app.Version, app.Commit, app.BuildTime))

	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "text", "Output format: text|json|yaml")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "Color output: auto|always|never")
	rootCmd.PersistentFlags().StringVar(&jqFlag, "jq", "", "JQ expression to filter JSON output")
	rootCmd.PersistentFlags().StringVar(&jsonPathFlag, "jsonpath", "", "Extract a value using JSONPath (e.g. $.user.email)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug output (shows HTTP requests/responses)")
	rootCmd.PersistentFlags().StringVar(&errorFormat, "error-format", "auto", "Error output format (auto|text|json|yaml)")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "Suppress non-essential output")

	// Flag aliases for agent ergonomics.
	flagAlias(rootCmd.PersistentFlags(), "output", "format")
	flagAlias(rootCmd.PersistentFlags(), "jq", "query")

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newHandleURLCmd())
	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMCPCmd())

	// Top-level convenience aliases for the common auth verbs.
	var loginNoBrowser bool
	loginAliasCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Addie (alias for 'auth login')",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), loginOptions{noBrowser: loginNoBrowser, timeout: defaultLoginTimeout})
		},
	}
	loginAliasCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Do not auto-open browser; print the login URL instead")
	rootCmd.AddCommand(loginAliasCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Sign out of Addie (alias for 'auth logout')",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context())
		},
	})

	return rootCmd
}

func isConfigCommand(cmd *cobra.Command) bool {
	return cmd.Name() == "config" || (cmd.Parent() != nil && cmd.Parent().Name() == "config")
}

// apiBaseFromContext resolves the API origin for the current command.
func apiBaseFromContext(ctx context.Context) string {
	cfg := ConfigFromContext(ctx)
	if cfg == nil {
		// Backward compatibility for tests/direct calls that bypass root pre-run.
		cfg, _ = config.Load()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return cfg.APIBase()
}

func envTruthy(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
