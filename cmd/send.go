package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/angelia/internal/config"
	"github.com/shaharia-lab/angelia/internal/service"
)

// NewSendCmd returns the "send" subcommand that dispatches one notification.
func NewSendCmd(cfg *config.AppConfig) *cobra.Command {
	var (
		subject string
		message string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "send <recipient>",
		Short: "Send a notification",
		Long: `Send a single notification to a scheme://address recipient.
The body is taken from --message, or read from stdin when the flag is absent.

  angelia send mailto://ops@example.com -s "disk full" -m "/var is at 98%"
  df -h | angelia send ovh://+33612345678 -s "disk report"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			body := message
			if !cmd.Flags().Changed("message") {
				if body, err = readBody(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			result, sendErr := a.service.Send(cmd.Context(), service.SendRequest{
				Recipient: args[0],
				Subject:   subject,
				Body:      body,
			})
			if result != nil {
				if err := printSendResult(cmd.OutOrStdout(), result, asJSON); err != nil {
					return err
				}
			}
			return sendErr
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Notification subject")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Notification body (defaults to stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func readBody(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, service.MaxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading body from stdin: %w", err)
	}
	if len(data) > service.MaxBodyBytes {
		return "", fmt.Errorf("body exceeds %d bytes", service.MaxBodyBytes)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func printSendResult(w io.Writer, result *service.SendResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(w, "%s %s via %s\n",
		statusStyle(result.Status).Render(result.Status),
		result.Recipient,
		result.Scheme,
	)
	fmt.Fprintf(w, "%s %s\n", styles.muted.Render("id:"), result.ID)
	return nil
}
