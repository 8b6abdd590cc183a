package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coco-ai/tool-service/internal/config"
	"github.com/coco-ai/tool-service/internal/events"
	"github.com/coco-ai/tool-service/internal/history"
	"github.com/coco-ai/tool-service/internal/llm"
	"github.com/coco-ai/tool-service/internal/logger"
	"github.com/coco-ai/tool-service/internal/metrics"
	"github.com/coco-ai/tool-service/internal/server"
	"github.com/coco-ai/tool-service/pkg/tool"
	"github.com/coco-ai/tool-service/pkg/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tool service HTTP server",
	Long: `Start the HTTP server and serve the registered tool set until
interrupted. Configuration comes from the config file, TOOLSVC_ environment
variables and command line flags, in that order of precedence.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	log := appLogger.GetZerolog()
	log.Info().Str("version", version).Msg("Starting tool service")

	m := metrics.NewMetrics()

	// Execution history, optional
	var store *history.Store
	var pruner *history.Pruner
	if cfg.History.Enabled {
		store, err = history.NewStore(cfg.History.Path, log)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()

		pruner, err = history.NewPruner(store, cfg.History.RetentionDays, log)
		if err != nil {
			return fmt.Errorf("failed to schedule history pruning: %w", err)
		}
		pruner.Start()
		defer pruner.Stop()
	}

	// Event stream, optional
	var broadcaster *events.Broadcaster
	if cfg.Events.Enabled {
		broadcaster = events.NewBroadcaster(log, nil)
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:  cfg.Tools.OpenAIAPIKey,
		BaseURL: cfg.Tools.OpenAIBaseURL,
		Model:   cfg.Tools.OpenAIModel,
	})
	if llmClient == nil {
		log.Info().Msg("No OpenAI API key configured, narrative sections use built-in synthesis")
	}

	registry := tool.NewRegistry()
	if err := tools.RegisterAll(registry, tools.Options{
		SerperAPIKey: cfg.Tools.SerperAPIKey,
		LLM:          llmClient,
	}); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	dispatcherOpts := []tool.DispatcherOption{
		tool.WithStrictValidation(cfg.Validation.Strict),
		tool.WithObserver(m),
	}
	if store != nil {
		dispatcherOpts = append(dispatcherOpts, tool.WithObserver(store))
	}
	if broadcaster != nil {
		dispatcherOpts = append(dispatcherOpts, tool.WithObserver(broadcaster))
	}
	dispatcher := tool.NewDispatcher(registry, log, dispatcherOpts...)

	srv, err := server.NewServer(server.Config{
		Options: server.Options{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Version:        version,
		},
		Registry:    registry,
		Dispatcher:  dispatcher,
		Metrics:     m,
		History:     store,
		Broadcaster: broadcaster,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Apply log level changes from the config file without a restart.
	watcher, err := config.WatchFile(config.NewLoader(cfgFile).GetConfigPath(), log, func(updated *config.Config) {
		if err := logger.SetLevel(updated.Logging.Level); err != nil {
			log.Warn().Err(err).Msg("Ignoring invalid log level from reloaded config")
			return
		}
		log.Info().Str("level", updated.Logging.Level).Msg("Log level updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Config watcher unavailable, log level changes require a restart")
	} else {
		defer watcher.Close()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Received signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop server cleanly")
		return err
	}

	return nil
}
