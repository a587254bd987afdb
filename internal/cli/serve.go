package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"labflow/internal/adapters/localstore"
	"labflow/internal/adapters/notify"
	openaiext "labflow/internal/adapters/openai"
	"labflow/internal/adapters/otel"
	"labflow/internal/adapters/turso"
	"labflow/internal/infrastructure/config"
	"labflow/internal/logger"
	"labflow/internal/ports"
	"labflow/internal/scheduler"
	"labflow/internal/service"
	"labflow/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the labflow server",
	Long: `Start the JSON API server and the reminder scheduler.

Examples:
  labflow serve              # Start on default port 8080
  labflow serve --port 3000  # Start on port 3000
  labflow serve --offline    # File-backed store, no Turso required`,
	RunE: runServe,
}

var (
	servePort    int
	serveOffline bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides LABFLOW_PORT)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "Use the local file-backed experiment store")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Extraction.Validate(); err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir, err = localstore.DefaultRootDir()
		if err != nil {
			return err
		}
	}

	var repo ports.ExperimentRepository
	if serveOffline {
		localRepo, err := localstore.NewExperimentStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}
		repo = localRepo
		logger.Info("using local file-backed store", "dir", dataDir)
	} else {
		if err := cfg.Database.Validate(); err != nil {
			return err
		}
		db, err := turso.NewDB(cfg.Database.URL, cfg.Database.AuthToken)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		repo = turso.NewExperimentRepository(db)
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()
	}()

	metrics := newMetricsExporter(ctx)
	defer func() { _ = metrics.Close(context.Background()) }()

	sched, err := scheduler.New(localstore.NewReminderStore(dataDir), notify.NewLogNotifier(), nil, metrics)
	if err != nil {
		return fmt.Errorf("failed to load reminders: %w", err)
	}
	go sched.Run(ctx)

	extractor := openaiext.NewExtractor(openaiext.Config{
		APIKey:  cfg.Extraction.APIKey,
		BaseURL: cfg.Extraction.BaseURL,
		Model:   cfg.Extraction.Model,
	})

	svc := service.NewExperimentService(repo, sched, extractor, metrics)
	return web.NewServer(cfg.Port, svc, sched).Start(ctx)
}

func newMetricsExporter(ctx context.Context) ports.MetricsExporter {
	otelCfg := otel.LoadConfig()
	if !otelCfg.Enabled {
		return otel.NewNoOpExporter()
	}
	exporter, err := otel.NewExporter(ctx, otelCfg)
	if err != nil {
		logger.Warn("metrics exporter disabled", "error", err)
		return otel.NewNoOpExporter()
	}
	return exporter
}
