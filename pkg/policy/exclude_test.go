package policy

import (
	"testing"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

func TestExcluderMatches(t *testing.T) {
	exc, err := NewExcluder([]string{
		`tags.env == 'sandbox'`,
		`kind == 'certificate'`,
	})
	if err != nil {
		t.Fatalf("Failed to compile expressions: %v", err)
	}

	sandbox := &catalog.Resource{ID: "i-1", Kind: catalog.KindInstance, Region: "us-east-1",
		Tags: map[string]string{"env": "sandbox"}}
	if !exc.Excluded(sandbox) {
		t.Error("expected sandbox instance to be excluded")
	}

	cert := &catalog.Resource{ID: "cert-1", Kind: catalog.KindCertificate, Region: "global"}
	if !exc.Excluded(cert) {
		t.Error("expected certificate to be excluded")
	}

	prod := &catalog.Resource{ID: "i-2", Kind: catalog.KindInstance, Region: "us-east-1",
		Tags: map[string]string{"env": "prod"}}
	if exc.Excluded(prod) {
		t.Error("prod instance must survive")
	}
}

func TestExcluderNameVariable(t *testing.T) {
	exc, err := NewExcluder([]string{`name.startsWith('temp-')`})
	if err != nil {
		t.Fatalf("Failed to compile: %v", err)
	}

	named := &catalog.Resource{ID: "i-3", Kind: catalog.KindInstance,
		Tags: map[string]string{"Name": "temp-runner"}}
	if !exc.Excluded(named) {
		t.Error("expected name match via Name tag")
	}

	// Name() falls back to the provider id.
	bare := &catalog.Resource{ID: "temp-i-4", Kind: catalog.KindInstance}
	if !exc.Excluded(bare) {
		t.Error("expected id fallback to match the name expression")
	}

	other := &catalog.Resource{ID: "i-5", Kind: catalog.KindInstance}
	if exc.Excluded(other) {
		t.Error("non-matching id must survive")
	}
}

func TestExcluderApply(t *testing.T) {
	exc, err := NewExcluder([]string{`region == 'eu-west-1'`})
	if err != nil {
		t.Fatalf("Failed to compile: %v", err)
	}

	in := []*catalog.Resource{
		{ID: "a", Kind: catalog.KindInstance, Region: "us-east-1"},
		{ID: "b", Kind: catalog.KindInstance, Region: "eu-west-1"},
		{ID: "c", Kind: catalog.KindSubnet, Region: "eu-west-1"},
	}
	out, removed := exc.Apply(in)
	if removed != 2 || len(out) != 1 || out[0].ID != "a" {
		t.Errorf("expected only 'a' to survive, got %d survivors, %d removed", len(out), removed)
	}
}

func TestExcluderRejectsBadExpression(t *testing.T) {
	if _, err := NewExcluder([]string{`kind ==`}); err == nil {
		t.Error("expected compile error for malformed expression")
	}
}

func TestEmptyExcluderPassesThrough(t *testing.T) {
	exc, err := NewExcluder(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := &catalog.Resource{ID: "i-1", Kind: catalog.KindInstance}
	if exc.Excluded(r) {
		t.Error("empty excluder must never match")
	}
}
