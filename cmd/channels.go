package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/angelia/internal/channel/builtin"
	"github.com/shaharia-lab/angelia/internal/config"
	"github.com/shaharia-lab/angelia/internal/service"
)

// NewChannelsCmd returns the "channels" subcommand listing registered channels.
func NewChannelsCmd(cfg *config.AppConfig) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List the registered channels and whether they are configured",
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := listChannels(cfg.ChannelsFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			t := newTable("SCHEME", "CONFIGURED")
			for _, info := range infos {
				configured := styles.muted.Render("no")
				if info.Configured {
					configured = styles.success.Render("yes")
				}
				t.Row(info.Scheme, configured)
			}
			fmt.Fprintln(out, t.String())
			fmt.Fprintf(out, "%s %s\n", styles.muted.Render("config:"), cfg.ChannelsFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the channels as JSON")
	return cmd
}

// listChannels reports every built-in scheme without constructing any channel.
func listChannels(channelsFile string) ([]service.ChannelInfo, error) {
	set, err := config.LoadChannels(channelsFile)
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}
	registry, err := builtin.NewRegistry()
	if err != nil {
		return nil, err
	}
	schemes := registry.Schemes()
	infos := make([]service.ChannelInfo, 0, len(schemes))
	for _, scheme := range schemes {
		infos = append(infos, service.ChannelInfo{Scheme: scheme, Configured: set.Has(scheme)})
	}
	return infos, nil
}
