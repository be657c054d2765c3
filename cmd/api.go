package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/backstage/services/inventory/config"
	"example.com/backstage/services/inventory/internal/api"
	"example.com/backstage/services/inventory/internal/cache"
	"example.com/backstage/services/inventory/internal/database"
	"example.com/backstage/services/inventory/internal/messaging"
	"example.com/backstage/services/inventory/internal/metrics"
	"example.com/backstage/services/inventory/internal/repository"
	"example.com/backstage/services/inventory/internal/search"
	"example.com/backstage/services/inventory/internal/service"
	"example.com/backstage/services/inventory/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for the equipment catalog, request workflow and assignment ledger`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}
	configureLogging(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	// Notifications go through the queue when it is configured, otherwise
	// they are written straight to the database.
	var bus messaging.ServiceBusClient
	if cfg.Azure.QueueConnStr != "" {
		bus, err = messaging.NewServiceBusClient(cfg.Azure)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize service bus, notifications will be persisted directly")
		} else {
			defer bus.Close()
		}
	}

	metricsCollector := metrics.NewMetrics()
	repo := repository.NewRepository(db)

	svc, err := service.NewService(service.Config{
		Repository:     repo,
		Cache:          redisCache,
		Elastic:        elasticClient,
		Messaging:      bus,
		Metrics:        metricsCollector,
		Tracer:         tracer,
		AtomicApproval: cfg.Workflow.AtomicApproval,
	})
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, svc, repo, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
