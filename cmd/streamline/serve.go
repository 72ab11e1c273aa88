package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/config"
	"github.com/gartstein/streamline/internal/streamline/controller"
	"github.com/gartstein/streamline/internal/streamline/db"
	"github.com/gartstein/streamline/internal/streamline/events"
	"github.com/gartstein/streamline/internal/streamline/handlers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const startupTimeout = 2 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC health service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer syncLogger(logger)
		return serve(cmd.Context(), cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	repo, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	// The audit service is built before the producer so that the in-process
	// writer can hand events straight to it.
	audit := controller.NewAuditService(repo.AuditLogs(), logger)

	producer, consumer, err := startEvents(ctx, cfg, audit, logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	services := controller.NewServices(repo, producer, logger)
	services.Audit = audit

	var google *auth.GoogleProvider
	if gcfg, ok := cfg.Google(); ok {
		google = auth.NewGoogleProvider(gcfg)
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	api := handlers.NewAPI(services, handlers.Options{
		Issuer:        issuer,
		Sessions:      auth.NewSessionManager(cfg.NextAuthSecret, cfg.SessionMaxAge, cfg.SessionUpdateAge, cfg.SecureCookies),
		Google:        google,
		ClientURL:     cfg.ClientURL,
		SecureCookies: cfg.SecureCookies,
	}, logger)

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger,
		grpc.UnaryInterceptor(handlers.UnaryLogger(logger)),
	)
	if err := server.RegisterHTTPGateway(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		api,
		cfg.CORSOrigins,
	); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err = <-errCh:
		logger.Error("Server failed", zap.Error(err))
	case sig := <-stop:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	server.Stop()
	cancel()
	if consumer != nil {
		consumer.Wait()
		consumer.Close()
	}
	logger.Info("Servers stopped properly")
	return err
}

// connectDatabase retries with exponential backoff until the database is
// reachable or the startup timeout elapses.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	var repo *db.Repository
	operation := func() error {
		var err error
		repo, err = db.NewRepository(cfg.Database(), logger)
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(operation, startupBackoff(ctx), notify); err != nil {
		return nil, err
	}
	return repo, nil
}

// startEvents connects the Kafka producer and the audit consumer. Without
// brokers, events are written to the audit log in-process.
func startEvents(ctx context.Context, cfg *config.Config, audit *controller.AuditService, logger *zap.Logger) (*events.Producer, *events.Consumer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("No Kafka brokers configured, recording audit events in-process")
		return events.NewProducerWithWriter(events.NewLoopbackWriter(audit.Record), logger), nil, nil
	}

	var producer *events.Producer
	operation := func() error {
		var err error
		producer, err = events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Kafka not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(operation, startupBackoff(ctx), notify); err != nil {
		return nil, nil, err
	}

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.AuditGroupID, cfg.Topic, logger)
	consumer.RegisterHandler(audit.Record)
	consumer.Start(ctx)
	return producer, consumer, nil
}

func startupBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = startupTimeout
	return backoff.WithContext(b, ctx)
}
