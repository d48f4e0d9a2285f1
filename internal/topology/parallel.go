package topology

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/soltixdb/clusterplan/internal/allocation"
	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
)

// Job is one cluster to resolve with its own slice of the host pool
type Job struct {
	Request  ClusterRequest
	Pool     []models.Host
	Previous *models.ClusterPlan
}

// ResolveAll resolves independent clusters concurrently and returns the
// plans in job order. Pools must be disjoint.
//
// Combined clusters are resolved after the others and run on the active
// hosts of the content cluster they are combined with; their Pool is
// ignored. The first error cancels the remaining work.
func (p *Planner) ResolveAll(ctx context.Context, jobs []Job) ([]*models.ClusterPlan, error) {
	if err := validateJobs(jobs); err != nil {
		return nil, err
	}

	plans := make([]*models.ClusterPlan, len(jobs))
	byCluster := make(map[string]int, len(jobs))
	for i, job := range jobs {
		byCluster[job.Request.Cluster.ID] = i
	}

	run := func(combined bool) error {
		g, gctx := errgroup.WithContext(ctx)
		if p.maxParallel > 0 {
			g.SetLimit(p.maxParallel)
		}
		for i, job := range jobs {
			if (job.Request.Cluster.Type == models.ClusterTypeCombined) != combined {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				pool := job.Pool
				if combined {
					pool = hostsOf(plans[byCluster[job.Request.Cluster.CombinedWith]])
				}
				plan, err := p.Resolve(job.Request, pool, job.Previous)
				if err != nil {
					return err
				}
				plans[i] = plan
				return nil
			})
		}
		return g.Wait()
	}

	if err := run(false); err != nil {
		return nil, err
	}
	if err := run(true); err != nil {
		return nil, err
	}
	return plans, nil
}

func validateJobs(jobs []Job) error {
	clusters := make(map[string]models.ClusterType, len(jobs))
	for _, job := range jobs {
		id := job.Request.Cluster.ID
		if _, dup := clusters[id]; dup {
			return planerr.InvalidSpec("cluster '%s' is declared more than once", id)
		}
		clusters[id] = job.Request.Cluster.Type
	}

	owner := make(map[string]string)
	for _, job := range jobs {
		c := job.Request.Cluster
		if c.Type == models.ClusterTypeCombined {
			if t, ok := clusters[c.CombinedWith]; !ok || t != models.ClusterTypeContent {
				return planerr.InvalidSpec("combined cluster '%s' references unknown content cluster '%s'", c.ID, c.CombinedWith)
			}
			continue
		}
		for _, h := range job.Pool {
			if other, taken := owner[h.ID]; taken && other != c.ID {
				return planerr.InvalidSpec("host '%s' is offered to both '%s' and '%s'", h.ID, other, c.ID)
			}
			owner[h.ID] = c.ID
		}
	}
	return nil
}

// hostsOf returns the active hosts of plan
func hostsOf(plan *models.ClusterPlan) []models.Host {
	if plan == nil {
		return nil
	}
	active := models.Active(plan.Members)
	hosts := make([]models.Host, 0, len(active))
	for _, m := range active {
		hosts = append(hosts, m.Host)
	}
	return hosts
}

// SplitPool carves one shared host pool into disjoint per-cluster pools.
//
// Hosts that were members of a cluster in previous stay with that cluster.
// The remaining hosts are handed out in request order: each cluster takes the
// smallest qualifying hosts it still needs to reach its target size. Hosts
// nobody needs are left out. Combined clusters get no pool of their own.
func (p *Planner) SplitPool(reqs []ClusterRequest, pool []models.Host, previous map[string]*models.ClusterPlan) ([]Job, error) {
	owned := make(map[string]string)
	for _, req := range reqs {
		if req.Cluster.Type == models.ClusterTypeCombined {
			continue
		}
		prev := previous[req.Cluster.ID]
		if prev == nil {
			continue
		}
		for _, m := range prev.Members {
			if other, taken := owned[m.Host.ID]; taken && other != req.Cluster.ID {
				return nil, planerr.InvalidSpec("host '%s' belongs to both '%s' and '%s' in the previous plans",
					m.Host.ID, other, req.Cluster.ID)
			}
			owned[m.Host.ID] = req.Cluster.ID
		}
	}

	free := make([]models.Host, 0, len(pool))
	reserved := make(map[string][]models.Host)
	for _, h := range pool {
		if c, ok := owned[h.ID]; ok {
			reserved[c] = append(reserved[c], h)
		} else {
			free = append(free, h)
		}
	}
	allocation.SortByFlavor(free)

	taken := make(map[string]bool)
	jobs := make([]Job, 0, len(reqs))
	for _, req := range reqs {
		prev := previous[req.Cluster.ID]
		job := Job{Request: req, Previous: prev}
		if req.Cluster.Type == models.ClusterTypeCombined {
			jobs = append(jobs, job)
			continue
		}

		job.Pool = append(job.Pool, reserved[req.Cluster.ID]...)
		have := 0
		for _, h := range job.Pool {
			if p.allocator.Qualifies(req.Capacity, h) {
				have++
			}
		}

		prevActive := 0
		if prev != nil {
			prevActive = len(models.Active(prev.Members))
		}
		need := req.Capacity.TargetNodes(prevActive) - have
		for _, h := range free {
			if need <= 0 {
				break
			}
			if taken[h.ID] || !p.allocator.Qualifies(req.Capacity, h) {
				continue
			}
			taken[h.ID] = true
			job.Pool = append(job.Pool, h)
			need--
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// String describes a job for logs
func (j Job) String() string {
	return fmt.Sprintf("%s(%s, %d hosts)", j.Request.Cluster.ID, j.Request.Cluster.Type, len(j.Pool))
}
