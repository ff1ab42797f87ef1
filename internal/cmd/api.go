package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenticadvertising/addie-shell/internal/api"
	ctxerrors "github.com/agenticadvertising/addie-shell/internal/errors"
	"github.com/agenticadvertising/addie-shell/internal/session"
)

func newAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Call the Addie API directly",
	}

	cmd.AddCommand(newAPIRequestCmd())
	return cmd
}

func newAPIRequestCmd() *cobra.Command {
	var bodyJSON string
	var raw bool
	var headers []string
	var noAuth bool

	cmd := &cobra.Command{
		Use:   "request <method> <path>",
		Short: "Make a raw Addie API request",
		Long: `Make a raw Addie API request, authenticated with the stored session.

Examples:
  addie api request GET /api/me
  addie api request POST /api/campaigns --body '{"name":"Q3"}'
  addie api request POST /api/campaigns --body @campaign.json
  addie api request GET /api/health --no-auth`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(strings.TrimSpace(args[0]))
			path := strings.TrimSpace(args[1])
			ctx := cmd.Context()

			bodyBytes, err := resolveBodyInput(bodyJSON, os.Stdin)
			if err != nil {
				return err
			}

			customHeaders, err := parseHeaderFlags(headers)
			if err != nil {
				return err
			}

			disableAuth := noAuth || customHeaders.Get("Authorization") != ""
			var token string
			if !disableAuth {
				s, err := session.Load()
				if err != nil {
					return err
				}
				if s == nil {
					return ctxerrors.AuthRequiredError(nil)
				}
				token = s.SealedSession
			}

			client := api.NewClient(ctx, apiBaseFromContext(ctx), token)
			resp, err := client.DoRaw(ctx, method, path, bodyBytes, customHeaders)
			if err != nil {
				return err
			}

			return renderAPIResponse(cmd, resp, raw)
		},
	}

	cmd.Flags().StringVar(&bodyJSON, "body", "", "JSON request body (or @file, or - for stdin)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Output only the response body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Custom header (repeatable, format: 'Key: Value')")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "Disable the default Authorization header")

	return cmd
}

// resolveBodyInput turns the --body flag value into request bytes.
// "@file" reads a file, "-" or "@-" reads stdin.
func resolveBodyInput(body string, stdin io.Reader) ([]byte, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}

	var data []byte
	switch {
	case body == "-" || body == "@-":
		read, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read body from stdin: %w", err)
		}
		data = read
	case strings.HasPrefix(body, "@"):
		read, err := os.ReadFile(strings.TrimPrefix(body, "@"))
		if err != nil {
			return nil, fmt.Errorf("failed to read body file: %w", err)
		}
		data = read
	default:
		data = []byte(body)
	}

	if !json.Valid(data) {
		return nil, ctxerrors.NewUserError("invalid JSON body", "The --body value must be a valid JSON document")
	}
	return data, nil
}

func parseHeaderFlags(values []string) (http.Header, error) {
	headers := http.Header{}
	for _, v := range values {
		key, value, ok := strings.Cut(v, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, ctxerrors.NewUserError(
				fmt.Sprintf("invalid header %q", v),
				"Headers must use the form 'Key: Value'",
			)
		}
		headers.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return headers, nil
}

func renderAPIResponse(cmd *cobra.Command, resp *api.RawResponse, raw bool) error {
	ctx := cmd.Context()
	if resp == nil {
		return fmt.Errorf("no response returned")
	}

	var bodyPayload interface{}
	isJSON := len(resp.Body) > 0 && json.Unmarshal(resp.Body, &bodyPayload) == nil

	if raw {
		if isJSON {
			return printerForContext(ctx).Print(ctx, bodyPayload)
		}
		_, _ = fmt.Fprintln(stdoutFromContext(ctx), string(resp.Body))
		return nil
	}

	envelope := map[string]interface{}{
		"status": resp.StatusCode,
		"body":   bodyPayload,
	}
	if !isJSON {
		envelope["body"] = string(resp.Body)
	}
	return printerForContext(ctx).Print(ctx, envelope)
}
