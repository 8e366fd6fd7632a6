package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/angelia/internal/config"
	"github.com/shaharia-lab/angelia/internal/storage"
)

// NewLogCmd returns the "log" subcommand printing the delivery history.
func NewLogCmd(cfg *config.AppConfig) *cobra.Command {
	var (
		filter storage.NotificationFilter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent notification deliveries",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			entries, err := a.service.ListLog(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, styles.muted.Render("No notifications recorded yet."))
				return nil
			}

			t := newTable("TIME", "STATUS", "RECIPIENT", "SUBJECT", "ERROR")
			for _, e := range entries {
				t.Row(
					e.CreatedAt.Local().Format(time.DateTime),
					statusStyle(e.Status).Render(e.Status),
					e.Recipient,
					truncate(e.Subject, 40),
					truncate(e.ErrorMsg, 60),
				)
			}
			fmt.Fprintln(out, t.String())
			return nil
		},
	}

	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&filter.Scheme, "scheme", "", "Only show this channel scheme")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Only show this status (sent, failed, throttled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the entries as JSON")

	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
