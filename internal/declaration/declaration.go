// Package declaration decodes deployment declarations (clusters and an
// optional host pool) from YAML or JSON and turns them into planner requests.
package declaration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/soltixdb/clusterplan/internal/capacity"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
	"github.com/soltixdb/clusterplan/internal/redundancy"
	"github.com/soltixdb/clusterplan/internal/topology"
)

var validate = validator.New()

var clusterIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,62}$`)

func init() {
	err := validate.RegisterValidation("cluster_id", func(fl validator.FieldLevel) bool {
		return clusterIDRegex.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// Deployment is a set of clusters to plan, optionally with the hosts to
// plan them on
type Deployment struct {
	Clusters []Cluster `json:"clusters" yaml:"clusters" validate:"required,min=1,dive"`
	Hosts    []Host    `json:"hosts,omitempty" yaml:"hosts,omitempty" validate:"dive"`
}

// Cluster declares one cluster
type Cluster struct {
	ID           string              `json:"id" yaml:"id" validate:"required,cluster_id"`
	Type         string              `json:"type" yaml:"type" validate:"required,oneof=container content combined admin"`
	CombinedWith string              `json:"combined_with,omitempty" yaml:"combined_with,omitempty" validate:"required_if=Type combined"`
	Nodes        Nodes               `json:"nodes" yaml:"nodes"`
	Redundancy   *redundancy.Desired `json:"redundancy,omitempty" yaml:"redundancy,omitempty"`
	Quorum       bool                `json:"quorum,omitempty" yaml:"quorum,omitempty"`
}

// Nodes declares a cluster's capacity
type Nodes struct {
	Count     Literal              `json:"count" yaml:"count"`
	Groups    Literal              `json:"groups,omitempty" yaml:"groups,omitempty"`
	GroupSize Literal              `json:"group_size,omitempty" yaml:"group_size,omitempty"`
	Resources models.ResourceRange `json:"resources" yaml:"resources"`
	Required  bool                 `json:"required,omitempty" yaml:"required,omitempty"`
	Exclusive bool                 `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`
	Dedicated bool                 `json:"dedicated,omitempty" yaml:"dedicated,omitempty"`
}

// Host declares one host of an inline pool
type Host struct {
	ID                string              `json:"id" yaml:"id" validate:"required,hostname_rfc1123"`
	Resources         models.ResourceSpec `json:"resources" yaml:"resources"`
	Retired           bool                `json:"retired,omitempty" yaml:"retired,omitempty"`
	ExclusiveEligible bool                `json:"exclusive_eligible,omitempty" yaml:"exclusive_eligible,omitempty"`
}

// Literal is a count literal. It accepts a number, a string such as
// "[2, 4]", or a two element sequence where a null element leaves the
// bound open.
type Literal string

// UnmarshalYAML implements yaml.Unmarshaler
func (l *Literal) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*l = Literal(n.Value)
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Tag == "!!null" {
				parts = append(parts, "")
				continue
			}
			parts = append(parts, c.Value)
		}
		*l = Literal("[" + strings.Join(parts, ", ") + "]")
	default:
		return fmt.Errorf("line %d: count must be a number or a range", n.Line)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler
func (l *Literal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Literal(s)
	case len(data) > 0 && data[0] == '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return err
		}
		parts := make([]string, 0, len(elems))
		for _, e := range elems {
			s := string(bytes.TrimSpace(e))
			if s == "null" {
				s = ""
			}
			parts = append(parts, strings.Trim(s, `"`))
		}
		*l = Literal("[" + strings.Join(parts, ", ") + "]")
	default:
		*l = Literal(data)
	}
	return nil
}

// ParseYAML decodes and validates a YAML deployment
func ParseYAML(data []byte) (*Deployment, error) {
	var d Deployment
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, planerr.InvalidSpec("invalid YAML: %v", err)
	}
	if err := Validate(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseJSON decodes and validates a JSON deployment
func ParseJSON(data []byte) (*Deployment, error) {
	var d Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, planerr.InvalidSpec("invalid JSON: %v", err)
	}
	if err := Validate(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseHostsYAML decodes a bare YAML list of hosts
func ParseHostsYAML(data []byte) ([]models.Host, error) {
	var hosts []Host
	if err := yaml.Unmarshal(data, &hosts); err != nil {
		return nil, planerr.InvalidSpec("invalid YAML: %v", err)
	}
	for i := range hosts {
		if err := Validate(&hosts[i]); err != nil {
			return nil, err
		}
	}
	return toHosts(hosts), nil
}

// Validate runs struct validation and reports failures as InvalidSpec
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return planerr.InvalidSpec("validation error: %v", err)
	}
	return nil
}

// Capacity returns the capacity declaration of the cluster
func (c Cluster) Capacity() capacity.Declaration {
	return capacity.Declaration{
		Count:     string(c.Nodes.Count),
		Groups:    string(c.Nodes.Groups),
		GroupSize: string(c.Nodes.GroupSize),
		Resources: c.Nodes.Resources,
		Required:  c.Nodes.Required,
		Exclusive: c.Nodes.Exclusive,
		Dedicated: c.Nodes.Dedicated,
	}
}

// Request converts the declaration into a planner request
func (c Cluster) Request() (topology.ClusterRequest, error) {
	req, err := capacity.New(c.Capacity())
	if err != nil {
		return topology.ClusterRequest{}, fmt.Errorf("cluster '%s': %w", c.ID, err)
	}
	return topology.ClusterRequest{
		Cluster: models.ClusterSpec{
			ID:           c.ID,
			Type:         models.ClusterType(c.Type),
			CombinedWith: c.CombinedWith,
		},
		Capacity:   req,
		Redundancy: c.Redundancy,
		Quorum:     c.Quorum,
	}, nil
}

// Requests converts every cluster of the deployment, in declaration order
func (d *Deployment) Requests() ([]topology.ClusterRequest, error) {
	reqs := make([]topology.ClusterRequest, 0, len(d.Clusters))
	seen := make(map[string]bool, len(d.Clusters))
	for _, c := range d.Clusters {
		if seen[c.ID] {
			return nil, planerr.InvalidSpec("cluster '%s' is declared more than once", c.ID)
		}
		seen[c.ID] = true

		req, err := c.Request()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Pool returns the inline host pool, or nil if none was declared
func (d *Deployment) Pool() []models.Host {
	if len(d.Hosts) == 0 {
		return nil
	}
	return toHosts(d.Hosts)
}

func toHosts(in []Host) []models.Host {
	out := make([]models.Host, 0, len(in))
	for _, h := range in {
		out = append(out, models.Host{
			ID:                h.ID,
			Resources:         h.Resources,
			Retired:           h.Retired,
			ExclusiveEligible: h.ExclusiveEligible,
		})
	}
	return out
}
