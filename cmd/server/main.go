package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/expense-refund-pipeline/internal/assembly"
	"github.com/garyjia/expense-refund-pipeline/internal/config"
	"github.com/garyjia/expense-refund-pipeline/internal/directory"
	"github.com/garyjia/expense-refund-pipeline/internal/extraction"
	httpserver "github.com/garyjia/expense-refund-pipeline/internal/interfaces/http"
	"github.com/garyjia/expense-refund-pipeline/internal/pipeline"
	"github.com/garyjia/expense-refund-pipeline/internal/rates"
	"github.com/garyjia/expense-refund-pipeline/internal/refund"
	"github.com/garyjia/expense-refund-pipeline/internal/report"
	"github.com/garyjia/expense-refund-pipeline/internal/repository"
	"github.com/garyjia/expense-refund-pipeline/internal/session"
	"github.com/garyjia/expense-refund-pipeline/pkg/database"
	"github.com/garyjia/expense-refund-pipeline/pkg/utils"
)

func main() {
	// Credentials land in the environment before viper reads it
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense refund pipeline",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Database and migrations
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Pipeline components
	extractor, err := buildExtractor(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize extractor", zap.Error(err))
	}
	orchestrator := extraction.NewOrchestrator(
		extractor,
		cfg.Extraction.Timeout,
		cfg.Extraction.InterCallDelay,
		logger,
	)

	resolver := rates.NewResolver(rates.NewClient(rates.Config{
		Endpoint: cfg.Rates.Endpoint,
		Timeout:  cfg.Rates.Timeout,
	}, logger), logger)
	assembler := assembly.NewAssembler(resolver, logger)

	dispatcher := refund.NewDispatcher(refund.NewClient(refund.ClientConfig{
		Endpoint: cfg.Refund.Endpoint,
		APIKey:   cfg.Refund.APIKey,
		Timeout:  cfg.Refund.Timeout,
	}, logger), logger)

	var directoryClient *directory.Client
	if cfg.Directory.Endpoint != "" {
		directoryClient = directory.NewClient(directory.Config{
			Endpoint: cfg.Directory.Endpoint,
			APIKey:   cfg.Directory.APIKey,
			Timeout:  cfg.Directory.Timeout,
		}, logger)
	}

	var reportWriter *report.Writer
	if cfg.Report.Enabled {
		reportWriter = report.NewWriter(cfg.Report.OutputDir, logger)
	}

	sessions := session.NewManager(cfg.Pipeline.SessionTTL, logger)
	history := repository.NewSubmissionRepository(db.DB, logger)

	service := pipeline.NewService(
		sessions,
		orchestrator,
		assembler,
		dispatcher,
		directoryClient,
		history,
		reportWriter,
		db,
		logger,
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sessions.Start(ctx)

	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

// configPath resolves the configuration file, overridable via CONFIG_PATH
func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "configs/config.yaml"
}

// buildExtractor selects the extraction backend from configuration
func buildExtractor(cfg *config.Config, logger *zap.Logger) (extraction.Extractor, error) {
	switch cfg.Extraction.Provider {
	case config.ProviderHTTP:
		return extraction.NewHTTPExtractor(extraction.ClientConfig{
			Endpoint: cfg.Extraction.Endpoint,
			APIKey:   cfg.Extraction.APIKey,
			Timeout:  cfg.Extraction.Timeout,
		}, logger), nil
	case config.ProviderOpenAI:
		return extraction.NewOpenAIExtractor(extraction.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     cfg.OpenAI.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown extraction provider: %s", cfg.Extraction.Provider)
	}
}
