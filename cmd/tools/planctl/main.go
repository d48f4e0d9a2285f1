// planctl plans a deployment offline. It reads YAML declarations and an
// optional YAML host pool, prints the plans as JSON and, with -commit,
// keeps them in a local state directory so the next run has continuity.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/soltixdb/clusterplan/internal/config"
	"github.com/soltixdb/clusterplan/internal/declaration"
	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/metadata"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/services"
	"github.com/soltixdb/clusterplan/internal/topology"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("planctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file (optional)")
	deploymentPath := fs.String("deployment", "", "Deployment declaration (YAML)")
	hostsPath := fs.String("hosts", "", "Host pool (YAML), used when the deployment declares no hosts")
	stateDir := fs.String("state", "", "State directory (default: planner.state_dir)")
	commit := fs.Bool("commit", false, "Store the plans as the new previous plans")
	pretty := fs.Bool("pretty", true, "Indent JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *deploymentPath == "" {
		return errors.New("-deployment is required")
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *stateDir == "" {
		*stateDir = cfg.Planner.StateDir
	}

	data, err := os.ReadFile(*deploymentPath)
	if err != nil {
		return fmt.Errorf("failed to read deployment: %w", err)
	}
	d, err := declaration.ParseYAML(data)
	if err != nil {
		return err
	}

	var hosts services.HostSource
	if *hostsPath != "" {
		raw, err := os.ReadFile(*hostsPath)
		if err != nil {
			return fmt.Errorf("failed to read hosts: %w", err)
		}
		pool, err := declaration.ParseHostsYAML(raw)
		if err != nil {
			return err
		}
		hosts = staticHosts(pool)
	}

	kv, err := metadata.NewPebbleManager(*stateDir)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	svc := services.NewPlanService(
		logging.NewNop(),
		topology.New(topology.OptionsFromConfig(cfg.Planner)),
		metadata.NewPlanStore(kv, cfg.Planner.CompressPlans),
		hosts,
		nil,
		nil,
	)

	plans, err := svc.Compute(ctx, d, *commit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(models.PlanRunResponse{Plans: plans, Committed: *commit})
}

// staticHosts is a read-only host source backed by a host file
type staticHosts []models.Host

func (s staticHosts) Snapshot(context.Context) ([]models.Host, error) {
	return append([]models.Host(nil), s...), nil
}

func (s staticHosts) Records(context.Context) ([]models.HostRecord, error) {
	records := make([]models.HostRecord, len(s))
	for i, h := range s {
		records[i] = models.HostRecord{Host: h}
	}
	return records, nil
}

func (s staticHosts) Retire(context.Context, string) error {
	return errors.New("host file is read-only, set retired: true in it instead")
}

func (s staticHosts) Unretire(ctx context.Context, id string) error {
	return s.Retire(ctx, id)
}
