package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alignperks/loyalty-portal/internal/config"
	"github.com/alignperks/loyalty-portal/internal/crm"
	"github.com/alignperks/loyalty-portal/internal/handler"
	"github.com/alignperks/loyalty-portal/internal/jobs"
	"github.com/alignperks/loyalty-portal/internal/metrics"
	"github.com/alignperks/loyalty-portal/internal/notify"
	"github.com/alignperks/loyalty-portal/internal/repository"
	"github.com/alignperks/loyalty-portal/internal/service"
	"github.com/alignperks/loyalty-portal/internal/tracing"
	"github.com/alignperks/loyalty-portal/internal/validator"
	"github.com/alignperks/loyalty-portal/pkg/database"
)

func main() {
	// A missing .env is normal outside local development
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	shutdownTracer, err := tracing.Init(cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	applied, err := database.Migrate(ctx, pool, database.Migrations)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	log.Info().Int("applied", applied).Msg("database schema up to date")

	// Repositories
	locationRepo := repository.NewLocationRepository(pool)
	accessRepo := repository.NewAccessRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	purchaseRepo := repository.NewPurchaseRepository(pool)
	rewardRepo := repository.NewRewardRepository(pool)
	redemptionRepo := repository.NewRedemptionRepository(pool)
	inviteRepo := repository.NewInviteRepository(pool)

	m := metrics.New(prometheus.DefaultRegisterer)

	if !cfg.CRM.Enabled() {
		log.Warn().Msg("CRM sync disabled: CRM_ACCESS_TOKEN or CRM_POINTS_FIELD_ID not set")
	}
	syncer := crm.NewSyncer(crm.NewClient(cfg.CRM), cfg.CRM, m)
	notifier := notify.NewLogSender(log.Logger)

	// Services
	locationService := service.NewLocationService(pool, locationRepo, accessRepo)
	catalogService := service.NewCatalogService(rewardRepo, locationRepo, accessRepo)
	enrollmentService := service.NewEnrollmentService(
		pool, customerRepo, enrollmentRepo, locationRepo, rewardRepo, accessRepo,
		syncer, notifier, cfg.Portal.BaseURL,
	)
	ledgerService := service.NewLedgerService(pool, enrollmentRepo, purchaseRepo, accessRepo, syncer, m)
	redemptionService := service.NewRedemptionService(
		pool, enrollmentRepo, rewardRepo, redemptionRepo, accessRepo,
		syncer, m, cfg.Redemption.IntentTTL,
	)
	inviteService := service.NewInviteService(pool, inviteRepo, locationRepo, accessRepo, cfg.Invite.TTL)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		runner := jobs.NewRunner(redemptionRepo, enrollmentRepo, m, cfg.Redemption.IntentTTL)
		scheduler, err = jobs.NewScheduler(runner, cfg.Jobs)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create job scheduler")
		}
		scheduler.Start()
	}

	app := fiber.New(fiber.Config{
		AppName:      "Loyalty Portal",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	validate := validator.New()

	handler.RegisterRoutes(app, handler.Handlers{
		Health:      handler.NewHealthHandler(map[string]handler.Pinger{"database": pool}),
		Locations:   handler.NewLocationHandler(locationService, validate),
		Rewards:     handler.NewRewardHandler(catalogService, validate),
		Clients:     handler.NewClientHandler(enrollmentService, ledgerService, validate),
		Redemptions: handler.NewRedemptionHandler(redemptionService, validate),
		Customers:   handler.NewCustomerHandler(enrollmentService, validate),
		Invites:     handler.NewInviteHandler(inviteService, validate),
	}, handler.RouteConfig{
		GatewayToken: cfg.Server.GatewayToken,
		VerifyLimit:  cfg.Server.VerifyRateLimit,
		Metrics:      adaptor.HTTPHandler(promhttp.Handler()),
	})

	if cfg.Server.GatewayToken == "" {
		log.Warn().Msg("GATEWAY_TOKEN not set: /api accepts requests without a bearer token")
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Pushes already queued finish under their own timeouts
	log.Info().Msg("waiting for pending CRM pushes...")
	syncer.Wait()

	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("error stopping job scheduler")
		}
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error flushing traces")
	}

	// Database closes last so running jobs can finish their queries
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
