package discovery

import (
	"testing"

	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/topology"
)

func TestMockCatalogRunsFullPipeline(t *testing.T) {
	cat := MockCatalog()

	if got := len(cat.Resources()); got != 9 {
		t.Fatalf("expected 9 mock resources, got %d", got)
	}

	edges, diag := topology.Resolve(cat)
	if diag.DanglingRefs != 0 {
		t.Errorf("mock inventory must have no dangling refs, got %d", diag.DanglingRefs)
	}

	conns := topology.Deduplicate(edges)
	// lb -> web -> app -> db chain, plus the 0.0.0.0/0 ingress on the load
	// balancer matching each of the three addressed resources.
	if len(conns) != 6 {
		t.Fatalf("expected 6 connections, got %d: %+v", len(conns), conns)
	}

	pairs := map[[2]string]bool{}
	for _, c := range conns {
		pairs[[2]string{c.Source, c.Dest}] = true
	}
	if !pairs[[2]string{"i-0mockweb", "i-0mockapp"}] || !pairs[[2]string{"i-0mockapp", "mock-postgres"}] {
		t.Errorf("tier chain broken: %v", pairs)
	}
}

func TestMergePartialFailure(t *testing.T) {
	col := NewCollector("us-east-1")
	col.AddResource(catalog.Resource{ID: "vpc-1", Kind: catalog.KindNetwork})
	col.AddError("prod:us-east-1 [rds]", errTest)

	d := New(Options{Regions: []string{"us-east-1"}})
	cat, err := d.merge([]*Collector{col})
	if err != nil {
		t.Fatalf("non-strict merge must succeed: %v", err)
	}
	meta := cat.Metadata()
	if !meta.Partial || len(meta.FailedScopes) != 1 {
		t.Errorf("partial state not recorded: %+v", meta)
	}
	if len(cat.Resources()) != 1 {
		t.Error("successful scopes must still be merged")
	}
}

func TestMergeStrictFailsOnPartial(t *testing.T) {
	col := NewCollector("us-east-1")
	col.AddError("prod:us-east-1 [ec2]", errTest)

	d := New(Options{Regions: []string{"us-east-1"}, Strict: true})
	cat, err := d.merge([]*Collector{col})
	if err == nil {
		t.Fatal("strict mode must fail on partial results")
	}
	if cat == nil {
		t.Error("catalog must still be returned for diagnostics")
	}
}

var errTest = errOf("scan failed")

type errOf string

func (e errOf) Error() string { return string(e) }
