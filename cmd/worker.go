package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/backstage/services/inventory/config"
	"example.com/backstage/services/inventory/internal/cache"
	"example.com/backstage/services/inventory/internal/database"
	"example.com/backstage/services/inventory/internal/messaging"
	"example.com/backstage/services/inventory/internal/metrics"
	"example.com/backstage/services/inventory/internal/repository"
	"example.com/backstage/services/inventory/internal/search"
	"example.com/backstage/services/inventory/internal/service"
	"example.com/backstage/services/inventory/internal/tracing"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to persist queued notifications and reconcile equipment availability`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}
	configureLogging(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

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

	metricsCollector := metrics.NewMetrics()
	repo := repository.NewRepository(db)

	svc, err := service.NewService(service.Config{
		Repository:     repo,
		Cache:          redisCache,
		Elastic:        elasticClient,
		Metrics:        metricsCollector,
		Tracer:         tracer,
		AtomicApproval: cfg.Workflow.AtomicApproval,
	})
	if err != nil {
		return err
	}

	// Drain the notification queue when one is configured.
	if cfg.Azure.QueueConnStr != "" {
		bus, err := messaging.NewServiceBusClient(cfg.Azure)
		if err != nil {
			return err
		}
		defer bus.Close()

		g.Go(func() error {
			log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting notification queue processor")
			return bus.ProcessMessages(ctx, svc.ProcessNotificationMessage)
		})
	} else {
		log.Warn().Msg("No service bus configured, notification queue processing disabled")
	}

	// Periodically repair availability markers from the assignment ledger.
	g.Go(func() error {
		log.Info().Dur("interval", cfg.Workflow.ReconcileInterval).Msg("Starting availability reconciliation job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Workflow.ReconcileInterval),
			gocron.NewTask(func() {
				if err := svc.ReconcileAvailability(ctx); err != nil {
					log.Error().Err(err).Msg("Availability reconciliation failed")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
