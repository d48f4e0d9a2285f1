package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soltixdb/clusterplan/internal/config"
	"github.com/soltixdb/clusterplan/internal/inventory"
	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/metadata"
	"github.com/soltixdb/clusterplan/internal/models"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
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

	hostID := cfg.Agent.HostID
	if hostID == "" {
		if hostID, err = os.Hostname(); err != nil {
			logger.Fatal("Failed to read hostname", "error", err)
		}
	}
	logger.Info("Host agent starting...", "version", Version, "commit", GitCommit, "host_id", hostID)

	metadataManager, err := metadata.NewEtcdManager(cfg.Etcd)
	if err != nil {
		logger.Fatal("Failed to connect to etcd", "error", err)
	}
	defer func() { _ = metadataManager.Close() }()

	record := models.HostRecord{
		Host: models.Host{
			ID:                hostID,
			ExclusiveEligible: cfg.Agent.ExclusiveEligible,
		},
		Address: cfg.Agent.Address,
		Version: Version,
	}
	reg := inventory.NewHostRegistration(
		metadataManager.Client(),
		record,
		inventory.LocalProbe(cfg.Agent),
		cfg.Agent.LeaseTTL,
		cfg.Agent.RefreshInterval,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.Register(ctx); err != nil {
		logger.Fatal("Failed to register host", "error", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cancel()

	deregCtx, deregCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer deregCancel()
	if err := reg.Deregister(deregCtx); err != nil {
		logger.Error("Failed to deregister host", "error", err)
	}
	logger.Info("Host agent exited")
}
