package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/swarm"
)

// ErrPartialResult signals that some discovery scopes failed. The returned
// catalog is still usable; strict mode turns this into a hard failure.
var ErrPartialResult = errors.New("discovery completed with partial results")

// Options configures a discovery run.
type Options struct {
	Regions []string
	Profile string
	Verbose bool
	// Strict makes a partial result an error instead of a warning.
	Strict bool
	// MaxWorkers caps the adaptive worker pool.
	MaxWorkers int
}

// Discoverer fans scanners out across regions and merges the slices.
type Discoverer struct {
	opts      Options
	logger    *slog.Logger
	clientFor func(ctx context.Context, region, profile string, verbose bool) (*Client, error)
}

// Option customizes a Discoverer.
type Option func(*Discoverer)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discoverer) { d.logger = l }
}

// New creates a Discoverer for the given options.
func New(opts Options, os ...Option) *Discoverer {
	d := &Discoverer{
		opts:      opts,
		logger:    slog.Default(),
		clientFor: NewClient,
	}
	for _, o := range os {
		o(d)
	}
	return d
}

// Run executes discovery across every configured region plus the global
// services and merges the result. On partial failure the catalog carries the
// failed scopes in its metadata; with Strict set the error is fatal.
func (d *Discoverer) Run(ctx context.Context) (*catalog.Catalog, error) {
	if len(d.opts.Regions) == 0 {
		return nil, fmt.Errorf("no regions configured")
	}

	pool := swarm.NewPool(d.opts.MaxWorkers)
	pool.Start(ctx)
	defer pool.Stop()

	var wg sync.WaitGroup
	var collectors []*Collector

	var firstClient *Client
	for _, region := range d.opts.Regions {
		client, err := d.clientFor(ctx, region, d.opts.Profile, d.opts.Verbose)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", region, err)
		}
		if firstClient == nil {
			firstClient = client

			account, err := client.VerifyIdentity(ctx)
			if err != nil {
				return nil, err
			}
			d.logger.Info("Authenticated", "account", account, "profile", d.opts.Profile)
		}

		col := NewCollector(region)
		collectors = append(collectors, col)

		reg := NewRegistry()
		reg.Register(NewEC2Scanner(client.Config))
		reg.Register(NewELBScanner(client.Config))
		reg.Register(NewRDSScanner(client.Config))
		reg.Register(NewACMScanner(client.Config))
		reg.RunAll(ctx, col, pool, &wg, region, d.opts.Profile)
	}

	// Global services run once, against the first region's credentials.
	globalCol := NewCollector(GlobalRegion)
	collectors = append(collectors, globalCol)
	globalReg := NewRegistry()
	globalReg.Register(NewRoute53Scanner(firstClient.Config))
	globalReg.RunAll(ctx, globalCol, pool, &wg, GlobalRegion, d.opts.Profile)

	wg.Wait()

	return d.merge(collectors)
}

func (d *Discoverer) merge(collectors []*Collector) (*catalog.Catalog, error) {
	var slices []catalog.Slice
	var failed []catalog.ScopeError
	for _, col := range collectors {
		slices = append(slices, col.Slice())
		failed = append(failed, col.Errors()...)
	}

	meta := catalog.Metadata{
		Partial:      len(failed) > 0,
		FailedScopes: failed,
		Regions:      d.opts.Regions,
	}
	cat := catalog.Merge(slices, meta)

	if meta.Partial {
		d.logger.Warn("Discovery finished with failed scopes", "failed", len(failed))
		if d.opts.Strict {
			return cat, fmt.Errorf("%w: %d scopes failed", ErrPartialResult, len(failed))
		}
	}
	return cat, nil
}
