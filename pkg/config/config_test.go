package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/topology"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(cfg.Regions) != 1 || cfg.Regions[0] != DefaultRegion {
		t.Errorf("expected default region, got %v", cfg.Regions)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vpcmap.yaml")
	data := `
regions: [us-east-1, eu-west-1]
profile: staging
preset: security
detail: ports
exclude:
  - "tags.env == 'sandbox'"
tier_rules:
  - tier: presentation
    patterns: ["*edge*"]
load_balancers: collapsed
format: dot
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Regions) != 2 || cfg.Profile != "staging" {
		t.Errorf("regions/profile not parsed: %+v", cfg)
	}
	if cfg.Format != FormatDOT || cfg.LoadBalancers != LBCollapsed {
		t.Errorf("format/lb mode not parsed: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config must validate: %v", err)
	}

	// Preset security plus the explicit detail override.
	p, err := cfg.Policy()
	if err != nil {
		t.Fatal(err)
	}
	if p.Flow != topology.FlowTierCrossing {
		t.Errorf("expected tier-crossing flow from security preset, got %s", p.Flow)
	}
	if p.Detail != topology.DetailPorts {
		t.Errorf("explicit detail override must win, got %s", p.Detail)
	}
	if !p.OnlyIngress || !p.FilterEphemeral {
		t.Errorf("security preset booleans lost: %+v", p)
	}
}

func TestPolicyRejectsUnknownValues(t *testing.T) {
	cfg := Default()
	cfg.Preset = "verbose"
	if _, err := cfg.Policy(); err == nil {
		t.Error("unknown preset must fail")
	}

	cfg = Default()
	cfg.Flow = "everything"
	if _, err := cfg.Policy(); err == nil {
		t.Error("unknown flow scope must fail")
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := Default()
	cfg.Format = "svg"
	if err := cfg.Validate(); err == nil {
		t.Error("unsupported format must fail validation")
	}
}

func TestClassifierUsesConfiguredRules(t *testing.T) {
	cfg := Default()
	cfg.TierRules = []topology.TierRule{
		{Tier: topology.TierRestricted, Patterns: []string{"*vault*"}},
	}
	cl, err := cfg.Classifier()
	if err != nil {
		t.Fatal(err)
	}
	subnet := &catalog.Resource{
		ID:   "sub-1",
		Kind: catalog.KindSubnet,
		Tags: map[string]string{"Name": "vault-a"},
	}
	if got := cl.Classify(subnet); got != topology.TierRestricted {
		t.Errorf("expected restricted, got %s", got)
	}
}
