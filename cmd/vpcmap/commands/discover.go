package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/discovery"
	"github.com/perimetra/vpcmap/pkg/topology"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run discovery and print an inventory summary",
	Long: `Discovers the configured regions and prints what was found without
rendering a diagram. Useful for checking credentials, region coverage,
and rule set counts before generating output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		initLogging(cfg)

		cat, err := discover(cmd.Context(), cfg)
		if err != nil && !errors.Is(err, discovery.ErrPartialResult) {
			return err
		}
		printSummary(cmd, cat)
		return err
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FAFFF"))
	summaryKey   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	summaryWarn  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
)

func printSummary(cmd *cobra.Command, cat *catalog.Catalog) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, summaryTitle.Render("INVENTORY"))
	fmt.Fprintf(out, "  %s %s\n", summaryKey.Render("regions:"), strings.Join(cat.Regions(), ", "))

	counts := make(map[catalog.Kind]int)
	for _, r := range cat.Resources() {
		counts[r.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "  %s %d\n", summaryKey.Render(k+":"), counts[catalog.Kind(k)])
	}
	fmt.Fprintf(out, "  %s %d\n", summaryKey.Render("rule sets:"), len(cat.RuleSets()))

	edges, diag := topology.Resolve(cat)
	conns := topology.Deduplicate(edges)
	fmt.Fprintf(out, "  %s %d\n", summaryKey.Render("connections:"), len(conns))
	if diag.DanglingRefs > 0 {
		fmt.Fprintf(out, "  %s %d\n", summaryKey.Render("dangling rule refs:"), diag.DanglingRefs)
	}

	meta := cat.Metadata()
	if meta.Partial {
		fmt.Fprintln(out, summaryWarn.Render("PARTIAL RESULTS"))
		for _, scope := range meta.FailedScopes {
			fmt.Fprintf(out, "  %s %s\n", summaryWarn.Render(scope.Scope), scope.Err)
		}
	}
}
