package inventory

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/soltixdb/clusterplan/internal/config"
	"github.com/soltixdb/clusterplan/internal/models"
)

const bytesPerGB = 1024 * 1024 * 1024

// ProbeFunc measures the resources of the local host
type ProbeFunc func() (models.ResourceSpec, error)

// LocalProbe returns a probe reading cpu, memory and disk through gopsutil.
// Disk speed, storage type and bandwidth cannot be measured and come from cfg.
func LocalProbe(cfg config.AgentConfig) ProbeFunc {
	return func() (models.ResourceSpec, error) {
		cores, err := cpu.Counts(true)
		if err != nil {
			return models.ResourceSpec{}, fmt.Errorf("failed to count cpus: %w", err)
		}

		vm, err := mem.VirtualMemory()
		if err != nil {
			return models.ResourceSpec{}, fmt.Errorf("failed to read memory: %w", err)
		}

		usage, err := disk.Usage(cfg.DiskPath)
		if err != nil {
			return models.ResourceSpec{}, fmt.Errorf("failed to read disk usage of %s: %w", cfg.DiskPath, err)
		}

		return models.ResourceSpec{
			VCPU:          float64(cores),
			MemoryGB:      roundGB(vm.Total),
			DiskGB:        roundGB(usage.Total),
			BandwidthGbps: cfg.BandwidthGbps,
			DiskSpeed:     models.DiskSpeed(cfg.DiskSpeed),
			StorageType:   models.StorageType(cfg.StorageType),
			Architecture:  Architecture(runtime.GOARCH),
		}, nil
	}
}

// Architecture maps a GOARCH value to a host architecture
func Architecture(goarch string) models.Architecture {
	switch goarch {
	case "amd64":
		return models.ArchitectureX86
	case "arm64":
		return models.ArchitectureARM64
	default:
		return models.Architecture(goarch)
	}
}

// roundGB converts bytes to gigabytes with one decimal
func roundGB(b uint64) float64 {
	tenths := (b*10 + bytesPerGB/2) / bytesPerGB
	return float64(tenths) / 10
}
