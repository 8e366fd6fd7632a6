package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/angelia/internal/api"
	"github.com/shaharia-lab/angelia/internal/build"
	"github.com/shaharia-lab/angelia/internal/config"
	"github.com/shaharia-lab/angelia/internal/scheduler"
	"github.com/shaharia-lab/angelia/internal/server"
)

// NewServeCmd returns the "serve" subcommand that starts the HTTP API.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the notification HTTP API",
		Long: `Start the Angelia HTTP server. Notifications are accepted on
POST /api/notifications and the delivery history is served on
GET /api/notifications/log. Prometheus metrics are exposed on /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
			logFile := filepath.Join(cfg.LogDir(), "system.log")
			printBanner(cmd, build.Version, serverURL, logFile)

			if err := runServe(cmd.Context(), cfg); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "An error occurred. Please check the logs at: %s\n", logFile)
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")

	return cmd
}

func runServe(parent context.Context, cfg *config.AppConfig) (err error) {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	a.logger.Info("angelia starting",
		slog.Int("port", cfg.Port),
		slog.String("version", build.Version),
		slog.String("build_date", build.BuildDate),
	)

	sched, err := scheduler.New(scheduler.Config{
		Store:     a.store,
		Retention: cfg.LogRetention,
		Interval:  cfg.PruneInterval,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if serr := sched.Stop(); serr != nil {
			a.logger.Warn("scheduler shutdown failed", "error", serr)
		}
	}()

	apiSrv, err := api.New(a.service, a.logger)
	if err != nil {
		return fmt.Errorf("creating API: %w", err)
	}
	srv := server.New(apiSrv, server.Options{
		Port:        cfg.Port,
		CORSOrigins: cfg.CORSOrigins,
		Gatherer:    a.registry,
		Logger:      a.logger,
	})

	a.logger.Info("server ready", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	if err := srv.Run(ctx); err != nil {
		a.logger.Error("server stopped", "error", err)
		return err
	}
	return nil
}

// printBanner writes the startup banner. It is the only output visible in
// the terminal during normal operation; structured logs go to the log file.
func printBanner(cmd *cobra.Command, version, serverURL, logFile string) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, `
    _                    _ _
   / \   _ __   __ _  ___| (_) __ _
  / _ \ | '_ \ / _`+"`"+` |/ _ \ | |/ _`+"`"+` |
 / ___ \| | | | (_| |  __/ | | (_| |
/_/   \_\_| |_|\__, |\___|_|_|\__,_|
               |___/

`)
	fmt.Fprintf(out, "%s %s running.\n", styles.title.Render("Angelia"), version)
	fmt.Fprintf(out, "API: %s/api\n", serverURL)
	fmt.Fprintf(out, "Logs: %s\n\n", styles.muted.Render(logFile))
}
