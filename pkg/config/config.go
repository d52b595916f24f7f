// Package config defines runtime configuration for discovery and diagram
// generation, loadable from YAML with flag overrides applied on top.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/perimetra/vpcmap/pkg/topology"
)

// Format selects the diagram output language.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
)

// LBDisplay controls how load balancers appear in the diagram.
type LBDisplay string

const (
	// LBFull renders load balancers as ordinary nodes.
	LBFull LBDisplay = "full"
	// LBCollapsed folds a load balancer into an annotation on its targets.
	LBCollapsed LBDisplay = "collapsed"
	// LBHidden drops load balancers and their connections entirely.
	LBHidden LBDisplay = "hidden"
)

// Defaults.
const (
	DefaultRegion = "us-east-1"
	DefaultPreset = "network"
)

// Config is the full runtime configuration. Zero values mean "inherit from
// the preset" for filter fields and "use the default" elsewhere.
type Config struct {
	Regions []string `yaml:"regions"`
	Profile string   `yaml:"profile"`

	// Strict turns partial discovery results into a hard failure.
	Strict bool `yaml:"strict"`

	Preset    string `yaml:"preset"`
	Flow      string `yaml:"flow"`
	Direction string `yaml:"direction"`
	Detail    string `yaml:"detail"`

	// Boolean filters only tighten the preset, they never loosen it.
	FilterInternal  bool `yaml:"filter_internal"`
	FilterEphemeral bool `yaml:"filter_ephemeral"`
	OnlyIngress     bool `yaml:"only_ingress"`

	Exclude   []string            `yaml:"exclude"`
	TierRules []topology.TierRule `yaml:"tier_rules"`

	LoadBalancers LBDisplay `yaml:"load_balancers"`

	Output string `yaml:"output"`
	Format Format `yaml:"format"`

	OtelEndpoint string `yaml:"otel_endpoint"`
	Verbose      bool   `yaml:"verbose"`
	JSONLogs     bool   `yaml:"json_logs"`
	MockMode     bool   `yaml:"-"`
}

// Default returns the configuration used when no file and no flags are given.
func Default() Config {
	return Config{
		Regions:       []string{DefaultRegion},
		Preset:        DefaultPreset,
		LoadBalancers: LBFull,
		Format:        FormatMermaid,
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = []string{DefaultRegion}
	}
	return cfg, nil
}

// Policy composes the filter policy: preset first, explicit overrides on top.
// Unknown preset or override values fail here, before any API call is made.
func (c Config) Policy() (topology.Policy, error) {
	name := c.Preset
	if name == "" {
		name = DefaultPreset
	}
	p, err := topology.Preset(name)
	if err != nil {
		return topology.Policy{}, err
	}

	if c.Flow != "" {
		p.Flow = topology.FlowScope(c.Flow)
	}
	if c.Direction != "" {
		p.Direction = topology.TrafficDirection(c.Direction)
	}
	if c.Detail != "" {
		p.Detail = topology.Detail(c.Detail)
	}
	if c.FilterInternal {
		p.FilterInternal = true
	}
	if c.FilterEphemeral {
		p.FilterEphemeral = true
	}
	if c.OnlyIngress {
		p.OnlyIngress = true
	}

	if err := p.Validate(); err != nil {
		return topology.Policy{}, err
	}
	return p, nil
}

// Validate rejects unusable configuration before discovery starts.
func (c Config) Validate() error {
	if len(c.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}
	switch c.Format {
	case FormatMermaid, FormatDOT:
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	switch c.LoadBalancers {
	case LBFull, LBCollapsed, LBHidden:
	default:
		return fmt.Errorf("unknown load balancer display mode %q", c.LoadBalancers)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}

// Classifier builds the tier classifier from configured rules, falling back
// to the built-in defaults.
func (c Config) Classifier() (*topology.Classifier, error) {
	rules := c.TierRules
	if len(rules) == 0 {
		rules = topology.DefaultTierRules()
	}
	return topology.NewClassifier(rules)
}
