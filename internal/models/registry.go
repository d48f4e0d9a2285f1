package models

import (
	"sort"
	"time"
)

// Host is an available compute unit in the host pool
type Host struct {
	ID                string       `json:"id" yaml:"id"` // hostname
	Resources         ResourceSpec `json:"resources" yaml:"resources"`
	Retired           bool         `json:"retired,omitempty" yaml:"retired,omitempty"` // marked for removal, still serving
	ExclusiveEligible bool         `json:"exclusive_eligible,omitempty" yaml:"exclusive_eligible,omitempty"`
}

// HostRecord is a host as registered in the inventory by its agent
type HostRecord struct {
	Host
	Address   string    `json:"address"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SortHosts sorts hosts by id in place and returns the slice
func SortHosts(hosts []Host) []Host {
	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].ID < hosts[j].ID
	})
	return hosts
}

// SortRecords sorts host records by id in place
func SortRecords(records []HostRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
}
