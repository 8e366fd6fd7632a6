package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/angelia/internal/config"
)

// NewRootCmd returns the angelia root command with every subcommand attached.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	root := &cobra.Command{
		Use:   "angelia",
		Short: "Pluggable outbound notification dispatcher",
		Long: `Angelia delivers notifications to recipients addressed as scheme://address.
The scheme selects the channel (mailto, gmail, resend, telegram, ovh or
ovhsoap) and the address is handed to it unchanged. Channels are configured
in a YAML file.`,
		SilenceUsage: true,
	}

	var noColor bool
	root.PersistentFlags().StringVar(&cfg.ChannelsFile, "channels", cfg.ChannelsFile,
		"Channel configuration file (overrides ANGELIA_CHANNELS_FILE)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	root.PersistentPreRun = func(*cobra.Command, []string) {
		configureColor(noColor)
	}

	root.AddCommand(
		NewServeCmd(cfg),
		NewSendCmd(cfg),
		NewChannelsCmd(cfg),
		NewLogCmd(cfg),
		NewVersionCmd(),
		NewUpdateCmd(),
	)
	return root
}

// Execute loads the configuration and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
