package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/soltixdb/clusterplan/internal/config"
	"github.com/soltixdb/clusterplan/internal/grpcserver"
	"github.com/soltixdb/clusterplan/internal/inventory"
	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/metadata"
	"github.com/soltixdb/clusterplan/internal/metrics"
	"github.com/soltixdb/clusterplan/internal/queue"
	"github.com/soltixdb/clusterplan/internal/router"
	"github.com/soltixdb/clusterplan/internal/services"
	"github.com/soltixdb/clusterplan/internal/topology"
	"github.com/soltixdb/clusterplan/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Planner service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	logger.Info("Connecting to etcd", "endpoints", cfg.Etcd.Endpoints)
	metadataManager, err := metadata.NewEtcdManager(cfg.Etcd)
	if err != nil {
		logger.Fatal("Failed to connect to etcd", "error", err)
	}
	defer func() { _ = metadataManager.Close() }()

	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	queueClient, err := queue.NewPublisher(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = queueClient.Close() }()

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	planner := topology.New(topology.OptionsFromConfig(cfg.Planner))
	planService := services.NewPlanService(
		logger,
		planner,
		metadata.NewPlanStore(metadataManager, cfg.Planner.CompressPlans),
		inventory.New(metadataManager),
		queue.NewEventPublisher(queueClient, logger),
		m,
	)

	app := router.New(logger, planService, m, *cfg, Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grpcAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort))
	grpcServer := grpcserver.New(grpcAddr, planService.Ready, 10*time.Second, logger)
	grpcDone := make(chan struct{})
	go func() {
		defer close(grpcDone)
		if err := grpcServer.Start(ctx); err != nil {
			logger.Fatal("Failed to start gRPC server", "error", err)
		}
	}()

	go func() {
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.HTTPPort))
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cancel()
	select {
	case <-grpcDone:
	case <-time.After(utils.GRPCShutdownTimeout):
		logger.Warn("gRPC server did not stop in time")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
