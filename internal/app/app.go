package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/frogcafe/internal/health"
	"github.com/vladislavdragonenkov/frogcafe/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/frogcafe/internal/metrics"
	"github.com/vladislavdragonenkov/frogcafe/internal/service/httpapi"
	"github.com/vladislavdragonenkov/frogcafe/internal/service/orders"
	"github.com/vladislavdragonenkov/frogcafe/internal/service/outbox"
	"github.com/vladislavdragonenkov/frogcafe/internal/tracing"
	"github.com/vladislavdragonenkov/frogcafe/internal/version"
)

// Run поднимает HTTP API, служебный HTTP-сервер, gRPC health и outbox worker
// и блокируется до отмены ctx или падения одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.LifecycleNames().Validate(); err != nil {
		return err
	}
	exporter, err := tracing.ParseExporter(cfg.TracingExporter)
	if err != nil {
		return err
	}

	tracerProvider, shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Exporter:     exporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Version:      version.GetVersion(),
	}, logger.WithField("layer", "tracing"))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	manager := orders.NewManager(deps.uow,
		orders.WithLifecycleNames(cfg.LifecycleNames()),
		orders.WithAllocationPolicy(cfg.AllocationPolicy()),
		orders.WithLogger(logger.WithField("layer", "orders")),
	)
	service := orders.NewInstrumented(manager,
		orders.InstrumentWithTracer(tracerProvider.Tracer("frogcafe/orders")),
		orders.InstrumentWithMetrics(metrics.NewOrderMetrics()),
	)
	logger.WithFields(log.Fields{
		"policy":         cfg.AllocationPolicy().String(),
		"created_status": cfg.StatusCreated,
		"issued_status":  cfg.StatusIssued,
	}).Info("order manager configured")

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.Critical("storage", deps.storage)

	producer, _ := initKafkaProducer(cfg.Brokers(), logger)
	defer closeKafka(producer, logger)
	stopWorker := startOutboxWorker(ctx, cfg, deps, producer, logger)
	defer stopWorker()

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http api: %w", err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = apiLis.Close()
		return fmt.Errorf("listen grpc: %w", err)
	}

	router := httpapi.NewRouter(service,
		httpapi.WithRouterLogger(logger.WithField("layer", "http")),
		httpapi.WithHTTPMetrics(metrics.NewHTTPMetricsWithRegisterer(nil)),
		httpapi.WithTracerProvider(tracerProvider),
	)

	errCh := make(chan error, 2)
	apiSrv := serveAPI(apiLis, router, logger, errCh)

	grpcServer, healthServer := newGRPCServer(logger.WithField("layer", "grpc"))
	healthCtx, stopHealthSync := context.WithCancel(ctx)
	defer stopHealthSync()
	go syncServingStatus(healthCtx, healthServer, healthHandler, healthSyncInterval)

	go func() {
		logger.Infof("gRPC health слушает %s", grpcLis.Addr())
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		stopHealthSync()
		healthServer.Shutdown()
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		return ctx.Err()
	case err := <-errCh:
		stopHealthSync()
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		return err
	}
}

// startOutboxWorker запускает публикацию outbox, если есть producer; возвращает функцию остановки.
func startOutboxWorker(ctx context.Context, cfg Config, deps runtimeDependencies, producer *kafka.Producer, logger *log.Entry) func() {
	if producer == nil || deps.outboxRepo == nil {
		logger.Info("kafka is not configured, outbox worker is disabled")
		return func() {}
	}

	worker := outbox.NewWorker(
		deps.outboxRepo,
		kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		outbox.WithLogger(logger.WithField("layer", "outbox")),
		outbox.WithDLQPublisher(kafka.NewDLQPublisher(producer)),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()

	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			logger.Warn("outbox worker did not stop in time")
		}
	}
}

// stopGRPC останавливает сервер gracefully, но не дольше shutdownTimeout.
func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}
