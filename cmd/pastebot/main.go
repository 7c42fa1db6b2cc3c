package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pastebot/internal/access"
	"pastebot/internal/bus"
	"pastebot/internal/channel"
	"pastebot/internal/config"
	"pastebot/internal/dispatch"
	"pastebot/internal/domain"
	"pastebot/internal/history"
	"pastebot/internal/metrics"
	"pastebot/internal/upload"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "pastebot",
		Short: "PasteBot: single-operator Telegram paste and shortlink bot",
		Long:  "PasteBot uploads pasted text and file attachments to a paste host and shortens links, replying into the originating chat.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.pastebot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(configCmd())
	root.AddCommand(daemonCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (Telegram channel + dispatch pipeline)",
		Long:  "Starts the Telegram channel, the deferred work queue and the dispatcher. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Run the pipeline against a local CLI channel",
		RunE:  runChat,
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.General.LogFile, "err", err)
		} else {
			w = f
		}
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// pipeline is the explicitly constructed core: gate, queue, coordinator,
// reporter and dispatcher wired together over one bus.
type pipeline struct {
	bus        *bus.InMemoryBus
	queue      *dispatch.Queue
	dispatcher *dispatch.Dispatcher
	store      *history.Store
}

func buildPipeline(cfg *config.Config, files domain.FileSource, gate *access.Gate, log *slog.Logger) (*pipeline, error) {
	messageBus := bus.New(cfg.Queue.BufferSize, log)

	var store *history.Store
	var recorder dispatch.HistoryRecorder
	if cfg.History.Enabled {
		s, err := history.NewStore(cfg.History.DBPath, log)
		if err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
		store = s
		recorder = s
	}

	var shortener domain.Shortener
	if cfg.Shortener.Endpoint != "" {
		shortener = upload.NewShortenClient(upload.ShortenClientConfig{
			Endpoint: cfg.Shortener.Endpoint,
			Timeout:  time.Duration(cfg.Shortener.TimeoutSeconds) * time.Second,
			Logger:   log,
		})
	} else {
		log.Warn("no shortener endpoint configured, shortlinks disabled")
	}

	uploader := upload.NewPasteClient(upload.PasteClientConfig{
		Endpoint:  cfg.Paste.Endpoint,
		AuthToken: cfg.Paste.AuthToken,
		Timeout:   time.Duration(cfg.Paste.TimeoutSeconds) * time.Second,
		Logger:    log,
	})

	reporter := dispatch.NewReporter(messageBus, log)
	queue := dispatch.NewQueue(cfg.Queue.BufferSize, log)

	coordinator := dispatch.NewCoordinator(dispatch.CoordinatorConfig{
		Uploader:  uploader,
		Shortener: shortener,
		Files:     files,
		Reporter:  reporter,
		History:   recorder,
		Logger:    log,
	})

	if gate.Size() == 0 {
		log.Warn("allow-list is empty: every restricted command will be dropped")
	}

	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherConfig{
		Gate:        gate,
		Queue:       queue,
		Coordinator: coordinator,
		Reporter:    reporter,
		Bus:         messageBus,
		Logger:      log,
	})

	return &pipeline{
		bus:        messageBus,
		queue:      queue,
		dispatcher: dispatcher,
		store:      store,
	}, nil
}

func (p *pipeline) close() {
	p.queue.Close()
	p.bus.Close()
	if p.store != nil {
		p.store.Close()
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = setupLogger(cfg)

	if !cfg.Channels.Telegram.Enabled {
		return fmt.Errorf("channels.telegram must be enabled for run (use 'pastebot chat' for local testing)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCh := channel.NewTelegram(channel.TelegramConfig{
		Token:     cfg.Channels.Telegram.Token,
		ParseMode: cfg.Channels.Telegram.ParseMode,
		Logger:    logger,
	})

	gate := access.NewGate(cfg.Channels.Telegram.AllowFrom)
	p, err := buildPipeline(cfg, telegramCh, gate, logger)
	if err != nil {
		return err
	}

	go p.queue.Run(ctx)
	go p.dispatcher.Run(ctx)

	go func() {
		if err := telegramCh.Start(ctx, p.bus); err != nil {
			logger.Error("telegram channel error", "err", err)
			stop()
		}
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc(cfg.Metrics.Endpoint, metrics.Collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("metrics endpoint started", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Endpoint)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	logger.Info("pastebot started. Press Ctrl+C to stop.", "version", version)

	<-ctx.Done()
	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		telegramCh.Stop()
		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx)
		}
		p.close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.History.DBPath = config.ExpandPath(cfg.History.DBPath)
	}
	logger = setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The CLI channel has no file transport; file-set work is impossible
	// here. Local console access already implies operator access, so the
	// gate admits the CLI's fixed sender ID.
	p, err := buildPipeline(cfg, nil, access.NewGate([]string{"operator"}), logger)
	if err != nil {
		return err
	}
	defer p.close()

	go p.queue.Run(ctx)
	go p.dispatcher.Run(ctx)

	cliCh := channel.NewCLI(channel.CLIConfig{Logger: logger})
	return cliCh.Start(ctx, p.bus)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				return nil
			}
			logger.Info("config", "path", cfgPath, "loaded", true)
			logger.Info("telegram", "enabled", cfg.Channels.Telegram.Enabled, "operators", len(cfg.Channels.Telegram.AllowFrom))
			logger.Info("paste host", "endpoint", cfg.Paste.Endpoint)
			logger.Info("shortener", "endpoint", cfg.Shortener.Endpoint)
			logger.Info("history", "enabled", cfg.History.Enabled, "db", cfg.History.DBPath)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent uploads and shortlinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in config")
			}

			store, err := history.NewStore(cfg.History.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  %-11s %-11s %s", e.CreatedAt.Format(time.DateTime), e.Kind, e.Outcome, e.Source)
				if e.URL != "" {
					line += " -> " + e.URL
				}
				if e.ShortURL != "" {
					line += " (" + e.ShortURL + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the loaded config with secrets blanked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
