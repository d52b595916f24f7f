package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/perimetra/vpcmap/pkg/config"
	"github.com/perimetra/vpcmap/pkg/version"
)

var (
	cfgFile string
	flagCfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vpcmap",
	Short: "Network topology diagrams from live AWS accounts",
	Long: `vpcmap discovers VPCs, subnets, compute, and firewall rules across
regions and renders the permitted traffic flows as a mermaid or
Graphviz diagram.`,
	Version:       version.Current,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.vpcmap.yaml)")
	pf.StringSliceVar(&flagCfg.Regions, "region", []string{config.DefaultRegion}, "AWS regions to discover")
	pf.StringVar(&flagCfg.Profile, "profile", "", "AWS shared config profile")
	pf.BoolVar(&flagCfg.Strict, "strict", false, "Fail on partial discovery results")
	pf.BoolVarP(&flagCfg.Verbose, "verbose", "v", false, "Log every AWS API call")
	pf.BoolVar(&flagCfg.JSONLogs, "json-logs", false, "Emit logs as JSON")
	pf.StringVar(&flagCfg.OtelEndpoint, "otel-endpoint", "", "OTLP HTTP endpoint for traces")

	pf.BoolVar(&flagCfg.MockMode, "mock", false, "Run against a built-in fixture inventory")
	pf.MarkHidden("mock")

	rootCmd.SetHelpFunc(renderHelp)
}

func initEnv() {
	viper.SetEnvPrefix("VPCMAP")
	viper.AutomaticEnv()
}

// loadConfig layers file, environment, and changed flags, in that order.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := cfgFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".vpcmap.yaml")
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if p := viper.GetString("profile"); p != "" && cfg.Profile == "" {
		cfg.Profile = p
	}
	if e := viper.GetString("otel_endpoint"); e != "" && cfg.OtelEndpoint == "" {
		cfg.OtelEndpoint = e
	}

	f := cmd.Flags()
	if f.Changed("region") {
		cfg.Regions = flagCfg.Regions
	}
	if f.Changed("profile") {
		cfg.Profile = flagCfg.Profile
	}
	if f.Changed("strict") {
		cfg.Strict = flagCfg.Strict
	}
	if f.Changed("verbose") {
		cfg.Verbose = flagCfg.Verbose
	}
	if f.Changed("json-logs") {
		cfg.JSONLogs = flagCfg.JSONLogs
	}
	if f.Changed("otel-endpoint") {
		cfg.OtelEndpoint = flagCfg.OtelEndpoint
	}
	cfg.MockMode = flagCfg.MockMode

	return cfg, nil
}

// initLogging installs the process logger. Diagram text goes to stdout, so
// logs always go to stderr.
func initLogging(cfg config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redactSensitiveData}

	var handler slog.Handler
	if cfg.JSONLogs {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// redactSensitiveData scrubs credential material from log output.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"account": true, "password": true, "access_key": true,
		"secret_key": true, "token": true, "session_token": true,
	}
	if sensitiveKeys[a.Key] {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

func renderHelp(cmd *cobra.Command, args []string) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5FAFFF")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	fmt.Println(titleStyle.Render(fmt.Sprintf("VPCMAP %s", version.Current)))
	fmt.Println(cmd.Short)

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Println(titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Println("")
	}

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-18s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}
