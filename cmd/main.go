package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artdept/pipeworks/internal/adapters/eventbus"
	"github.com/artdept/pipeworks/internal/adapters/worker"
	"github.com/artdept/pipeworks/internal/config"
	"github.com/artdept/pipeworks/internal/domain"
	"github.com/artdept/pipeworks/internal/filesync"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pipeworks",
	Short: "Background work engine for the asset pipeline",
	Long: "pipeworks keeps long-running pipeline operations (file sync, network\n" +
		"calls) off the interactive thread: work is queued to a dedicated\n" +
		"background worker and results come back as asynchronous events.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = newLogger(cfg)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the worker as a service, watching the configured sync source",
	RunE: func(cmd *cobra.Command, args []string) error {
		bus := eventbus.NewSimpleEventBus(logger)
		w := worker.New(bus, logger, worker.Opts{
			EventBufferSize: cfg.Worker.EventBufferSize,
			ShutdownTimeout: cfg.Worker.ShutdownTimeout,
		})

		if err := w.SubscribeCompleted(func(id string, result domain.Result) {
			logger.Info().Str("work_id", id).Interface("result", result).Msg("work completed")
		}); err != nil {
			return err
		}
		if err := w.SubscribeFailed(func(id, errMsg, trace string) {
			logger.Error().Str("work_id", id).Str("error", errMsg).Msg("work failed")
			if trace != "" {
				logger.Debug().Str("work_id", id).Str("trace", trace).Msg("failure trace")
			}
		}); err != nil {
			return err
		}

		// Tally outcomes for the shutdown summary.
		stats := domain.NewWorkStatsCollector()
		for _, topic := range []string{domain.TopicWorkCompleted, domain.TopicWorkFailed} {
			sub, err := bus.Subscribe(topic, cfg.EventBus.DefaultBufferSize)
			if err != nil {
				return err
			}
			stats.Consume(sub)
		}

		if err := w.Start(); err != nil {
			return err
		}

		var watcher *filesync.Watcher
		if cfg.Sync.Enabled {
			syncer := filesync.NewSyncer(logger)
			var err error
			watcher, err = filesync.NewWatcher(w, syncer,
				cfg.Sync.SourceDir, cfg.Sync.TargetDir, cfg.Sync.Debounce, logger)
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			// Catch up on whatever changed while we were not running.
			if _, err := watcher.SyncNow(); err != nil {
				return err
			}
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info().Msg("shutdown signal received")

		if watcher != nil {
			watcher.Stop()
		}
		if err := w.Stop(true); err != nil {
			logger.Warn().Err(err).Msg("worker did not stop cleanly")
		}
		stats.Stop()
		logger.Info().Fields(stats.Snapshot()).Msg("session summary")
		bus.Stop()
		return nil
	},
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var out zerolog.Logger
	if cfg.System.LogPretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return out.Level(cfg.Level()).With().Timestamp().Logger()
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "pipeworks.json", "Path to configuration file")
	rootCmd.AddCommand(runCmd, demoCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
