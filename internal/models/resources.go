package models

import "fmt"

// Architecture of a host CPU
type Architecture string

const (
	ArchitectureAny   Architecture = "any"
	ArchitectureX86   Architecture = "x86_64"
	ArchitectureARM64 Architecture = "arm64"
)

// DiskSpeed class of a host's disks
type DiskSpeed string

const (
	DiskSpeedAny  DiskSpeed = "any"
	DiskSpeedFast DiskSpeed = "fast"
	DiskSpeedSlow DiskSpeed = "slow"
)

// StorageType tells whether disks are attached locally or over the network
type StorageType string

const (
	StorageTypeAny    StorageType = "any"
	StorageTypeLocal  StorageType = "local"
	StorageTypeRemote StorageType = "remote"
)

// GPUSpec describes a GPU demand or a host's GPUs
type GPUSpec struct {
	Count    int     `json:"count" yaml:"count"`
	MemoryGB float64 `json:"memory_gb" yaml:"memory_gb"`
}

// ResourceSpec describes a concrete resource shape.
// Numeric fields at zero mean "no demand" when used as a lower bound and
// "unbounded" when used as an upper bound.
type ResourceSpec struct {
	VCPU          float64      `json:"vcpu" yaml:"vcpu"`
	MemoryGB      float64      `json:"memory_gb" yaml:"memory_gb"`
	DiskGB        float64      `json:"disk_gb" yaml:"disk_gb"`
	BandwidthGbps float64      `json:"bandwidth_gbps" yaml:"bandwidth_gbps"`
	DiskSpeed     DiskSpeed    `json:"disk_speed,omitempty" yaml:"disk_speed,omitempty"`
	StorageType   StorageType  `json:"storage_type,omitempty" yaml:"storage_type,omitempty"`
	Architecture  Architecture `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	GPU           GPUSpec      `json:"gpu" yaml:"gpu"`
}

// Satisfies reports whether r covers every numeric dimension of min.
func (r ResourceSpec) Satisfies(min ResourceSpec) bool {
	return r.VCPU >= min.VCPU &&
		r.MemoryGB >= min.MemoryGB &&
		r.DiskGB >= min.DiskGB &&
		r.BandwidthGbps >= min.BandwidthGbps &&
		r.GPU.Count >= min.GPU.Count &&
		r.GPU.MemoryGB >= min.GPU.MemoryGB
}

// Within reports whether r stays under every bounded dimension of max.
// A zero dimension in max is unbounded.
func (r ResourceSpec) Within(max ResourceSpec) bool {
	return within(r.VCPU, max.VCPU) &&
		within(r.MemoryGB, max.MemoryGB) &&
		within(r.DiskGB, max.DiskGB) &&
		within(r.BandwidthGbps, max.BandwidthGbps) &&
		within(float64(r.GPU.Count), float64(max.GPU.Count)) &&
		within(r.GPU.MemoryGB, max.GPU.MemoryGB)
}

func within(v, max float64) bool {
	return max <= 0 || v <= max
}

// Less orders flavors smallest first: vCPU, then memory, disk and bandwidth.
func (r ResourceSpec) Less(o ResourceSpec) bool {
	switch {
	case r.VCPU != o.VCPU:
		return r.VCPU < o.VCPU
	case r.MemoryGB != o.MemoryGB:
		return r.MemoryGB < o.MemoryGB
	case r.DiskGB != o.DiskGB:
		return r.DiskGB < o.DiskGB
	default:
		return r.BandwidthGbps < o.BandwidthGbps
	}
}

func (r ResourceSpec) String() string {
	s := fmt.Sprintf("[vcpu: %.1f, memory: %.1f Gb, disk: %.1f Gb, bandwidth: %.1f Gbps, disk speed: %s, storage type: %s, architecture: %s",
		r.VCPU, r.MemoryGB, r.DiskGB, r.BandwidthGbps, orAny(string(r.DiskSpeed)), orAny(string(r.StorageType)), orAny(string(r.Architecture)))
	if r.GPU.Count > 0 {
		s += fmt.Sprintf(", gpu: %d x %.1f Gb", r.GPU.Count, r.GPU.MemoryGB)
	}
	return s + "]"
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}

// ResourceRange is a possibly ranged resource demand.
// Max only bounds the dimensions it sets; categorical fields are taken from Min.
type ResourceRange struct {
	Min ResourceSpec `json:"min" yaml:"min"`
	Max ResourceSpec `json:"max" yaml:"max"`
}

// IsRange reports whether any numeric dimension has an upper bound
func (r ResourceRange) IsRange() bool {
	return r.Max.VCPU > 0 || r.Max.MemoryGB > 0 || r.Max.DiskGB > 0 ||
		r.Max.BandwidthGbps > 0 || r.Max.GPU.Count > 0 || r.Max.GPU.MemoryGB > 0
}

// Validate checks that every bounded dimension has min <= max
func (r ResourceRange) Validate() error {
	check := func(name string, min, max float64) error {
		if min < 0 {
			return fmt.Errorf("%s must not be negative, got %g", name, min)
		}
		if max > 0 && min > max {
			return fmt.Errorf("%s range is descending: [%g, %g]", name, min, max)
		}
		return nil
	}
	for _, c := range []struct {
		name     string
		min, max float64
	}{
		{"vcpu", r.Min.VCPU, r.Max.VCPU},
		{"memory", r.Min.MemoryGB, r.Max.MemoryGB},
		{"disk", r.Min.DiskGB, r.Max.DiskGB},
		{"bandwidth", r.Min.BandwidthGbps, r.Max.BandwidthGbps},
		{"gpu count", float64(r.Min.GPU.Count), float64(r.Max.GPU.Count)},
		{"gpu memory", r.Min.GPU.MemoryGB, r.Max.GPU.MemoryGB},
	} {
		if err := check(c.name, c.min, c.max); err != nil {
			return err
		}
	}
	return nil
}
