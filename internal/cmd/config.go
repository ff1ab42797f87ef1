package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenticadvertising/addie-shell/internal/config"
	ctxerrors "github.com/agenticadvertising/addie-shell/internal/errors"
	"github.com/agenticadvertising/addie-shell/internal/output"
	"github.com/agenticadvertising/addie-shell/internal/ui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage addie configuration",
		Long: `Manage the addie configuration file.

Available keys:
  api_url   Addie API origin (overridden by the ADDIE_API_URL env var)
  output    Default output format (text|json|yaml)
  color     Color mode (auto|always|never)`,
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Show configuration values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return printerForContext(ctx).Print(ctx, map[string]interface{}{
					"api_url": cfg.APIURL,
					"output":  cfg.Output,
					"color":   cfg.Color,
				})
			}

			value, err := configValue(cfg, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdoutFromContext(ctx), value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key, value := args[0], args[1]

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			switch key {
			case "api_url":
				cfg.APIURL = value
			case "output":
				if _, err := output.ParseFormat(value); err != nil {
					return err
				}
				cfg.Output = value
			case "color":
				if _, err := ui.ParseColorMode(value); err != nil {
					return err
				}
				cfg.Color = value
			default:
				return unknownConfigKey(key)
			}

			if err := cfg.Save(); err != nil {
				return err
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status": "success",
				"key":    key,
				"value":  value,
			})
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdoutFromContext(cmd.Context()), path)
			return nil
		},
	}
}

func configValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "api_url":
		return cfg.APIURL, nil
	case "output":
		return cfg.Output, nil
	case "color":
		return cfg.Color, nil
	default:
		return "", unknownConfigKey(key)
	}
}

func unknownConfigKey(key string) error {
	return ctxerrors.NewUserError(
		fmt.Sprintf("unknown config key %q", key),
		"Valid keys: api_url, output, color",
	)
}
