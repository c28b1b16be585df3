package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/sipledger-backend/internal/adapter/grpc"
	"github.com/simaogato/sipledger-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/sipledger-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/sipledger-backend/internal/config"
	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/logging"
	"github.com/simaogato/sipledger-backend/internal/usecase/notification"
	"github.com/simaogato/sipledger-backend/internal/usecase/plan"
	"github.com/simaogato/sipledger-backend/internal/usecase/reminder"
	"github.com/simaogato/sipledger-backend/internal/usecase/scheduler"
	"github.com/simaogato/sipledger-backend/internal/usecase/settlement"
	"github.com/simaogato/sipledger-backend/internal/usecase/tracking"
	"github.com/simaogato/sipledger-backend/internal/usecase/valuation"
)

const connectAttempts = 5

// repositories is the set of stores the services run against
type repositories struct {
	plans         domain.PlanRepository
	ledger        domain.LedgerRepository
	valuations    domain.ValuationRepository
	notifications domain.NotificationRepository
	close         func() error
}

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "sipledger: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Setup Database
	repos, err := openRepositories(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}
	defer func() {
		if err := repos.close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	// 2. Initialize Services (Use Cases)
	valuationService := valuation.NewValuationService(repos.valuations, repos.plans, repos.ledger)
	schedulerService := scheduler.NewSchedulerService(repos.plans, repos.ledger, log.With().Str("component", "scheduler").Logger())
	schedulerService.Workers = cfg.Scheduler.Workers
	settlementService := settlement.NewSettlementService(repos.ledger, repos.plans, valuationService, log.With().Str("component", "settlement").Logger())
	trackingService := tracking.NewTrackingService(repos.plans, repos.ledger)
	planService := plan.NewPlanService(repos.plans, log.With().Str("component", "plan").Logger())
	notificationService := notification.NewNotificationService(repos.notifications, log.With().Str("component", "notification").Logger())
	reminderService := reminder.NewReminderService(repos.plans, repos.ledger, reminder.InboxNotifier{Notifications: notificationService}, cfg.Reminders.Currency, log.With().Str("component", "reminder").Logger())

	// 3. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log.With().Str("component", "grpc").Logger()),
			grpcadapter.AuthInterceptor(cfg.Server.APIToken),
		),
	)
	grpcadapter.RegisterInstallmentServiceServer(grpcServer, grpcadapter.NewServer(
		schedulerService,
		settlementService,
		trackingService,
		planService,
		valuationService,
		reminderService,
		notificationService,
	))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Server.Addr).Msg("failed to listen")
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("failed to serve gRPC server")
		}
	}()

	// 4. Periodic scheduler
	loop := &schedulerLoop{
		scheduler: schedulerService,
		cfg:       cfg.Scheduler,
		log:       log.With().Str("component", "scheduler_loop").Logger(),
	}
	if cfg.Reminders.Enabled {
		loop.reminders = reminderService
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.run(ctx)
	}()

	waitForShutdown(ctx, grpcServer, done, log)
}

// openRepositories connects to the configured store and applies its schema
func openRepositories(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*repositories, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		return &repositories{
			plans:         store.Plans(),
			ledger:        store.Ledger(),
			valuations:    store.Valuations(),
			notifications: store.Notifications(),
			close:         store.Close,
		}, nil

	case config.DriverPostgres:
		db, err := connectPostgres(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &repositories{
			plans:         postgres.NewPlanRepository(db),
			ledger:        postgres.NewLedgerRepository(db),
			valuations:    postgres.NewValuationRepository(db),
			notifications: postgres.NewNotificationRepository(db),
			close:         db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// connectPostgres retries the initial connection so the server can start alongside the database container
func connectPostgres(ctx context.Context, dsn string, log zerolog.Logger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := postgres.NewDB(ctx, dsn, log)
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("database not ready")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return nil, lastErr
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(ctx context.Context, grpcServer *grpclib.Server, loopDone <-chan struct{}, log zerolog.Logger) {
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, shutting down gracefully")

	grpcServer.GracefulStop()
	<-loopDone
	log.Info().Msg("gRPC server stopped")
}
