package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storewatch/internal/cli"
	"storewatch/internal/config"
	"storewatch/internal/iplist"
	"storewatch/internal/logging"
	"storewatch/internal/metrics"
	"storewatch/internal/monitor"
	"storewatch/internal/notify"
	"storewatch/internal/probe"
	"storewatch/internal/repo"
	"storewatch/internal/storage"
	"storewatch/internal/ui"
)

const version = "0.1.0"

func main() {
	var (
		flagConfig        string
		flagInterval      cli.OptionalDuration
		flagTimeout       cli.OptionalDuration
		flagSamples       cli.OptionalInt
		flagQuorum        cli.OptionalInt
		flagMaxWorkers    cli.OptionalInt
		flagMetricsListen cli.OptionalString
		flagNoUI          cli.OptionalBool
		flagNoNotify      cli.OptionalBool
		flagVersion       bool
		flagVersionShort  bool
	)

	flag.StringVar(&flagConfig, "config", "", "path to storewatch.yaml (optional)")
	flag.Var(&flagInterval, "interval", "polling interval between cycles (override config)")
	flag.Var(&flagInterval, "i", "polling interval between cycles (override config)")
	flag.Var(&flagTimeout, "timeout", "per-sample probe timeout (override config)")
	flag.Var(&flagTimeout, "t", "per-sample probe timeout (override config)")
	flag.Var(&flagSamples, "samples", "probe samples per store per cycle")
	flag.Var(&flagQuorum, "quorum", "successful samples required for ONLINE")
	flag.Var(&flagMaxWorkers, "max-workers", "max concurrent probes per cycle")
	flag.Var(&flagMetricsListen, "metrics-listen", "metrics listen address (e.g. :9217)")
	flag.Var(&flagNoUI, "no-ui", "disable the terminal UI (log only)")
	flag.Var(&flagNoNotify, "no-notify", "start with desktop notifications disabled")
	flag.BoolVar(&flagVersion, "version", false, "show version")
	flag.BoolVar(&flagVersionShort, "v", false, "show version")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [options]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flagVersion || flagVersionShort {
		fmt.Fprintf(os.Stdout, "storewatch version %s\n", version)
		return
	}

	overrides := buildOverrides(flagInterval, flagTimeout, flagSamples, flagQuorum, flagMaxWorkers, flagMetricsListen, flagNoUI, flagNoNotify)
	cfg, err := config.Load(flagConfig, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logPath := cfg.LogFile
	if logPath == "" && !cfg.UIDisable {
		// The TUI owns the terminal; keep logs out of its way.
		logPath = "storewatch.log"
	}
	logger, err := logging.New(cfg.LogLevel, logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("storewatch exited", zap.Error(err))
		fmt.Fprintf(os.Stderr, "storewatch: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	stores, err := storage.Load(cfg.StoresFile)
	if err != nil {
		logger.Warn("store list unreadable, starting empty",
			zap.String("path", cfg.StoresFile), zap.Error(err))
	}
	repository := repo.New(stores)
	logger.Info("store list loaded", zap.String("path", cfg.StoresFile), zap.Int("stores", len(stores)))

	table, err := iplist.Load(cfg.IPListFile)
	if err != nil {
		logger.Warn("ip list unreadable, lookups disabled",
			zap.String("path", cfg.IPListFile), zap.Error(err))
		table = iplist.Empty()
	}
	logger.Info("ip list loaded", zap.String("path", cfg.IPListFile), zap.Int("entries", table.Len()))

	prober := probe.NewFallbackProber(probe.NewICMPProber(), probe.NewExternalProber())
	notifier := notify.New(notify.DesktopSender{}, cfg.Notifications, logger)

	var collector *metrics.Collector
	if cfg.MetricsListen != "" {
		collector = metrics.NewCollector()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if collector != nil {
		go func() {
			if err := metrics.Serve(runCtx, cfg.MetricsListen, collector); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	persist := func() {
		if err := storage.Save(cfg.StoresFile, repository.Stores()); err != nil {
			logger.Warn("failed to save store list", zap.String("path", cfg.StoresFile), zap.Error(err))
		}
	}

	if cfg.UIDisable {
		mon := monitor.New(monitor.Options{
			Repo:     repository,
			Prober:   prober,
			Resolver: table,
			Config:   cfg,
			Sink:     logSink(logger),
			Notifier: notifier,
			Metrics:  collector,
			Logger:   logger,
		})
		return mon.Run(runCtx)
	}

	view := ui.New(ui.Options{
		Repo:              repository,
		Notifier:          notifier,
		OnMutate:          persist,
		HelpdeskURLPrefix: cfg.HelpdeskURLPrefix,
		Logger:            logger,
	})
	mon := monitor.New(monitor.Options{
		Repo:     repository,
		Prober:   prober,
		Resolver: table,
		Config:   cfg,
		Sink:     view.Observe,
		Refresh:  view.Refresh,
		Notifier: notifier,
		Metrics:  collector,
		Logger:   logger,
	})

	go func() {
		if err := mon.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("monitor stopped unexpectedly", zap.Error(err))
		}
	}()

	err = view.Run(runCtx)
	cancel()
	mon.Stop()
	return err
}

// logSink reports every probe observation to the log; used when the UI is
// disabled.
func logSink(logger *zap.Logger) monitor.Sink {
	return func(ev monitor.Event) {
		fields := []zap.Field{
			zap.String("store", ev.Number),
			zap.String("addr", ev.Addr),
			zap.Bool("online", ev.Verdict.Online),
			zap.Int("successes", ev.Verdict.SuccessCount),
		}
		if ev.Verdict.HasLatency() {
			fields = append(fields, zap.Duration("avg_latency", ev.Verdict.AvgLatency))
		}
		logger.Info("probe", fields...)
	}
}

func buildOverrides(
	interval cli.OptionalDuration,
	timeout cli.OptionalDuration,
	samples cli.OptionalInt,
	quorum cli.OptionalInt,
	maxWorkers cli.OptionalInt,
	metricsListen cli.OptionalString,
	noUI cli.OptionalBool,
	noNotify cli.OptionalBool,
) config.Overrides {
	overrides := config.Overrides{}

	if v, ok := interval.Value(); ok {
		value := v
		overrides.Interval = &value
	}
	if v, ok := timeout.Value(); ok {
		value := v
		overrides.Timeout = &value
	}
	if v, ok := samples.Value(); ok {
		value := v
		overrides.Samples = &value
	}
	if v, ok := quorum.Value(); ok {
		value := v
		overrides.Quorum = &value
	}
	if v, ok := maxWorkers.Value(); ok {
		value := v
		overrides.MaxWorkers = &value
	}
	if v, ok := metricsListen.Value(); ok && v != "" {
		value := v
		overrides.MetricsListen = &value
	}
	if v, ok := noUI.Value(); ok {
		value := v
		overrides.UIDisable = &value
	}
	if v, ok := noNotify.Value(); ok {
		value := !v
		overrides.Notifications = &value
	}
	return overrides
}
