package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shaharia-lab/angelia/internal/build"
	"github.com/shaharia-lab/angelia/internal/channel/builtin"
	"github.com/shaharia-lab/angelia/internal/config"
	"github.com/shaharia-lab/angelia/internal/dispatch"
	"github.com/shaharia-lab/angelia/internal/eventbus"
	"github.com/shaharia-lab/angelia/internal/logger"
	"github.com/shaharia-lab/angelia/internal/metrics"
	"github.com/shaharia-lab/angelia/internal/notification"
	"github.com/shaharia-lab/angelia/internal/service"
	"github.com/shaharia-lab/angelia/internal/storage"
	"github.com/shaharia-lab/angelia/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// app holds every long-lived component shared by the subcommands.
type app struct {
	cfg        *config.AppConfig
	logger     *slog.Logger
	channels   *config.ChannelSet
	registry   *prometheus.Registry
	dispatcher *dispatch.Dispatcher
	db         *sql.DB
	store      *storage.SQLiteNotificationStore
	bus        eventbus.EventBus
	service    service.NotificationService

	telemetry *telemetry.Telemetry
	logFile   io.Closer
}

// newApp builds the component graph from cfg. The caller must Close it.
func newApp(ctx context.Context, cfg *config.AppConfig) (a *app, err error) {
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}

	a = &app{cfg: cfg, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.telemetry, err = telemetry.Setup(ctx, telemetry.Config{
		ServiceName:      "angelia",
		ServiceVersion:   build.Version,
		OTLPEndpoint:     cfg.OTLPEndpoint,
		OTLPInsecure:     cfg.OTLPInsecure,
		TraceSampleRatio: cfg.TraceSampleRatio,
		Registerer:       a.registry,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	var extra []slog.Handler
	if h := a.telemetry.LogHandler(); h != nil {
		extra = append(extra, h)
	}
	a.logger, a.logFile, err = logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel(), extra...)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	a.channels, err = config.LoadChannels(cfg.ChannelsFile)
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}
	channelRegistry, err := builtin.NewRegistry()
	if err != nil {
		return nil, err
	}
	a.dispatcher = dispatch.New(channelRegistry, a.channels.All(), a.logger)

	a.db, _, err = storage.NewSQLiteDB(cfg.DatabaseFile())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.store = storage.NewSQLiteNotificationStore(a.db)

	collector, err := metrics.New(a.registry)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	a.bus = eventbus.New(0, a.logger)
	notification.NewHistoryHandler(a.store, a.logger).Subscribe(a.bus)
	collector.Subscribe(a.bus)

	a.service = service.NewNotificationService(a.dispatcher, a.store, a.bus)

	a.logger.Info("angelia initialized",
		slog.String("data_dir", cfg.DataDir),
		slog.String("channels_file", cfg.ChannelsFile),
		slog.Any("configured_channels", a.channels.Schemes()),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
	)
	return a, nil
}

// Close drains pending events and releases resources in reverse build order.
func (a *app) Close() error {
	var errs []error
	if a.bus != nil {
		a.bus.Close()
	}
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, a.telemetry.Shutdown(ctx))
		cancel()
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}
