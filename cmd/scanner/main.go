package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"SignalDesk/internal/batch"
	"SignalDesk/internal/collector"
	"SignalDesk/internal/config"
	"SignalDesk/internal/exporter"
	"SignalDesk/internal/logging"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/notifier"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/scheduler"
)

func main() {
	os.Exit(run())
}

// run wires the scanner and returns the process exit code.
func run() int {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("load .env")
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error().Err(err).Msg("load config")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation")
		return 1
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Str("config", cfgPath).Str("mode", cfg.Schedule.RunMode).Msg("SignalDesk starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	if cfg.Metrics.ListenAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.ListenAddr, reg); err != nil {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	fetcher := newFetcher(cfg)
	log.Info().Str("provider", fetcher.Name()).Msg("data source")
	col := collector.NewCollector(fetcher, cfg.DataSource.Timeout)
	runner := batch.NewRunner(col, cfg.Batch.Workers, m)

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	sinks := []exporter.Sink{exporter.NewXLSXSink(cfg.Export.XLSXPath)}

	var notifiers []notifier.Notifier
	if cfg.Email.Enabled {
		attach := ""
		if cfg.Email.AttachXLSX {
			attach = filepath.Base(cfg.Export.XLSXPath)
		}
		notifiers = append(notifiers, notifier.NewEmailNotifier(cfg.Email.Host, cfg.Email.Port,
			cfg.Email.Username, cfg.Email.Password, cfg.Email.From, cfg.Email.To, cfg.Email.Subject, attach))
	}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		notifiers = append(notifiers, tn)
	}

	sched := scheduler.NewScheduler(ctx, runner, cfg.Symbols, sinks, notifiers, rec, m)

	if cfg.Schedule.RunMode == config.RunModeOnce {
		rep, err := sched.RunNow(ctx)
		if err != nil {
			log.Error().Err(err).Msg("run failed")
			return 1
		}
		log.Info().Str("run_id", rep.RunID).Int("rows", len(rep.Rows)).Int("skipped", len(rep.Failures)).
			Msg("SignalDesk finished")
		return 0
	}

	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		log.Error().Err(err).Msg("register cron tasks")
		return 1
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running now")
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				log.Error().Err(err).Msg("startup run failed")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.DailyCron).Msg("SignalDesk is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping...")
	return 0
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	ds := cfg.DataSource
	switch ds.Provider {
	case "rest":
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.Timeout, ds.RequestsPerSec, ds.MaxRetries)
	case "mock":
		return &collector.MockFetcher{Price: 100, Count: 252, End: time.Now().UTC().Truncate(24 * time.Hour)}
	default:
		return collector.NewYahooFetcher(cfg.Proxy, ds.Timeout, ds.RequestsPerSec, ds.MaxRetries)
	}
}
