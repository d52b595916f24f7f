// Package discovery walks AWS APIs region by region and produces the
// normalized resource inventory the topology pipeline consumes.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/swarm"
)

// Scanner defines the interface for resource discovery modules.
type Scanner interface {
	Name() string
	// Scan discovers resources and rule sets and adds them to the collector.
	// An error marks the scanner's scope as failed; other scopes continue.
	Scan(ctx context.Context, col *Collector) error
}

// Collector accumulates one region's discovery output. Scanners run
// concurrently, so all mutation goes through the mutex.
type Collector struct {
	mu        sync.Mutex
	region    string
	resources []catalog.Resource
	rulesets  []catalog.RuleSet
	errors    []catalog.ScopeError
}

// NewCollector creates a collector for one region's slice.
func NewCollector(region string) *Collector {
	return &Collector{region: region}
}

// AddResource records a discovered resource.
func (c *Collector) AddResource(r catalog.Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = append(c.resources, r)
}

// AddRuleSet records a discovered firewall rule set.
func (c *Collector) AddRuleSet(rs catalog.RuleSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rulesets = append(c.rulesets, rs)
}

// AddError records a failed discovery scope.
func (c *Collector) AddError(scope string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, catalog.ScopeError{Scope: scope, Err: err.Error()})
}

// Slice returns the collected region slice.
func (c *Collector) Slice() catalog.Slice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return catalog.Slice{
		Region:    c.region,
		Resources: append([]catalog.Resource(nil), c.resources...),
		RuleSets:  append([]catalog.RuleSet(nil), c.rulesets...),
	}
}

// Errors returns the scope failures recorded so far.
func (c *Collector) Errors() []catalog.ScopeError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]catalog.ScopeError(nil), c.errors...)
}

// Registry manages a collection of scanners.
type Registry struct {
	scanners []Scanner
}

// NewRegistry creates an empty scanner registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a scanner to the registry.
func (r *Registry) Register(s Scanner) {
	r.scanners = append(r.scanners, s)
}

// RunAll submits every registered scanner to the worker pool. The wait group
// is released per scanner so callers can fan out multiple regions.
func (r *Registry) RunAll(ctx context.Context, col *Collector, pool *swarm.Pool, wg *sync.WaitGroup, region, profile string) {
	for _, s := range r.scanners {
		scanner := s
		wg.Add(1)
		pool.Submit(func(ctx context.Context) error {
			defer wg.Done()
			return runWithTelemetry(ctx, scanner, col, region, profile)
		})
	}
}

func runWithTelemetry(ctx context.Context, s Scanner, col *Collector, region, profile string) error {
	taskName := s.Name()
	tr := otel.Tracer("vpcmap/discovery")
	ctx, span := tr.Start(ctx, taskName, trace.WithAttributes(
		attribute.String("provider", "aws"),
		attribute.String("region", region),
		attribute.String("aws.profile", profile),
	))
	defer span.End()

	slog.Debug("Starting scanner", "name", taskName, "region", region)
	err := s.Scan(ctx, col)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		scope := fmt.Sprintf("%s:%s [%s]", profile, region, taskName)
		col.AddError(scope, err)
		slog.Error("Scanner encountered error", "name", taskName, "region", region, "error", err)
	} else {
		slog.Debug("Scanner completed", "name", taskName, "region", region)
	}
	return err
}
