package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/config"
	"github.com/perimetra/vpcmap/pkg/discovery"
	"github.com/perimetra/vpcmap/pkg/policy"
	"github.com/perimetra/vpcmap/pkg/render"
	"github.com/perimetra/vpcmap/pkg/telemetry"
	"github.com/perimetra/vpcmap/pkg/topology"
	"github.com/perimetra/vpcmap/pkg/version"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram",
	Short: "Discover the account and render a topology diagram",
	Long: `Runs discovery across the configured regions, resolves firewall
rules into a connection graph, applies the filter policy, and writes the
diagram source.

Example:
  vpcmap diagram --region us-east-1,eu-west-1 --preset security -o topology.mmd
  vpcmap diagram --format dot --detail full | dot -Tsvg -o topology.svg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyDiagramFlags(cmd, &cfg)
		initLogging(cfg)

		if err := cfg.Validate(); err != nil {
			return err
		}
		return runDiagram(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(diagramCmd)
	f := diagramCmd.Flags()
	f.StringVar(&flagCfg.Preset, "preset", config.DefaultPreset, "Filter preset: clean, network, security, debug")
	f.StringVar(&flagCfg.Flow, "flow", "", "Flow scope override: all, none, inter-subnet, tier-crossing, external-only")
	f.StringVar(&flagCfg.Direction, "direction", "", "Direction override: both, north-south, east-west")
	f.StringVar(&flagCfg.Detail, "detail", "", "Edge detail override: minimal, ports, protocols, full")
	f.BoolVar(&flagCfg.FilterInternal, "filter-internal", false, "Drop intra-subnet connections")
	f.BoolVar(&flagCfg.FilterEphemeral, "filter-ephemeral", false, "Drop ephemeral source-port connections")
	f.BoolVar(&flagCfg.OnlyIngress, "only-ingress", false, "Keep only connections justified by an ingress rule")
	f.StringArrayVar(&flagCfg.Exclude, "exclude", nil, "CEL expression excluding matching resources (repeatable)")
	f.StringVar((*string)(&flagCfg.LoadBalancers), "load-balancers", string(config.LBFull), "Load balancer display: full, collapsed, hidden")
	f.StringVar((*string)(&flagCfg.Format), "format", string(config.FormatMermaid), "Output format: mermaid, dot")
	f.StringVarP(&flagCfg.Output, "output", "o", "", "Output file (default stdout)")
}

func applyDiagramFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("preset") {
		cfg.Preset = flagCfg.Preset
	}
	if f.Changed("flow") {
		cfg.Flow = flagCfg.Flow
	}
	if f.Changed("direction") {
		cfg.Direction = flagCfg.Direction
	}
	if f.Changed("detail") {
		cfg.Detail = flagCfg.Detail
	}
	if f.Changed("filter-internal") {
		cfg.FilterInternal = flagCfg.FilterInternal
	}
	if f.Changed("filter-ephemeral") {
		cfg.FilterEphemeral = flagCfg.FilterEphemeral
	}
	if f.Changed("only-ingress") {
		cfg.OnlyIngress = flagCfg.OnlyIngress
	}
	if f.Changed("exclude") {
		cfg.Exclude = flagCfg.Exclude
	}
	if f.Changed("load-balancers") {
		cfg.LoadBalancers = flagCfg.LoadBalancers
	}
	if f.Changed("format") {
		cfg.Format = flagCfg.Format
	}
	if f.Changed("output") {
		cfg.Output = flagCfg.Output
	}
}

func runDiagram(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, cfg.OtelEndpoint)
	if err != nil {
		slog.Warn("Telemetry init failed", "error", err)
	} else {
		defer shutdown(context.Background())
	}

	cat, err := discover(ctx, cfg)
	if err != nil && !errors.Is(err, discovery.ErrPartialResult) {
		return err
	}
	partialErr := err

	topo, detail, err := buildTopology(cat, cfg)
	if err != nil {
		return err
	}

	out := stdout
	if cfg.Output != "" {
		file, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}

	var renderer render.Renderer
	switch cfg.Format {
	case config.FormatDOT:
		renderer = &render.DOT{Detail: detail}
	default:
		renderer = &render.Mermaid{Detail: detail}
	}
	if err := renderer.Render(out, topo); err != nil {
		return err
	}

	if cfg.Output != "" {
		slog.Info("Diagram written", "path", cfg.Output, "format", string(cfg.Format),
			"resources", topo.ResourceCount(), "connections", len(topo.Connections))
	}
	return partialErr
}

func discover(ctx context.Context, cfg config.Config) (*catalog.Catalog, error) {
	if cfg.MockMode {
		return discovery.MockCatalog(), nil
	}
	d := discovery.New(discovery.Options{
		Regions: cfg.Regions,
		Profile: cfg.Profile,
		Verbose: cfg.Verbose,
		Strict:  cfg.Strict,
	})
	return d.Run(ctx)
}

// buildTopology runs the resolve/dedup/classify/filter/build pipeline and
// returns the topology plus the effective detail level for the renderer.
func buildTopology(cat *catalog.Catalog, cfg config.Config) (*topology.Topology, topology.Detail, error) {
	excluder, err := policy.NewExcluder(cfg.Exclude)
	if err != nil {
		return nil, "", err
	}
	cat, removed := excluder.FilterCatalog(cat)
	if removed > 0 {
		slog.Info("Excluded resources", "count", removed)
	}

	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, "", err
	}
	pol, err := cfg.Policy()
	if err != nil {
		return nil, "", err
	}

	edges, diag := topology.Resolve(cat)
	conns := topology.Deduplicate(edges)

	view := topology.NewView(cat, classifier.Classify, diag)
	filtered, err := topology.Filter(conns, pol, view)
	if err != nil {
		return nil, "", err
	}

	topo := topology.Build(cat, filtered, classifier.Classify, diag)
	render.ApplyLBDisplay(topo, cfg.LoadBalancers)
	return topo, pol.Detail, nil
}
