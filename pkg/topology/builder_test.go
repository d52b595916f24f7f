package topology

import (
	"reflect"
	"testing"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

func classifierOrDie(t *testing.T) *Classifier {
	t.Helper()
	cl, err := NewClassifier(DefaultTierRules())
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	return cl
}

func TestBuildHierarchy(t *testing.T) {
	c := threeTierCatalog()
	cl := classifierOrDie(t)

	edges, diag := Resolve(c)
	conns := Deduplicate(edges)
	topo := Build(c, conns, cl.Classify, diag)

	// account -> region -> network -> tiers
	if len(topo.Root.Children) != 1 {
		t.Fatalf("expected 1 region, got %d", len(topo.Root.Children))
	}
	region := topo.Root.Children[0]
	if region.Key != "us-east-1" || region.Kind != "region" {
		t.Fatalf("unexpected region node: %+v", region)
	}
	if len(region.Children) != 1 {
		t.Fatalf("expected 1 network, got %d", len(region.Children))
	}
	net := region.Children[0]
	if net.Key != "us-east-1/vpc-1" {
		t.Errorf("network keys are region-qualified, got %q", net.Key)
	}
	if net.Label != "core" {
		t.Errorf("network label should come from the Name tag, got %q", net.Label)
	}

	tiers := make(map[string]int)
	for _, child := range net.Children {
		tiers[child.Label] = len(child.Resources)
	}
	// web + its subnet under presentation, db + its subnet under restricted;
	// no application or unclassified node at all.
	want := map[string]int{"presentation": 2, "restricted": 2}
	if !reflect.DeepEqual(tiers, want) {
		t.Errorf("tier layout = %v, want %v", tiers, want)
	}
}

func TestBuildResourceCoverage(t *testing.T) {
	c := threeTierCatalog()
	cl := classifierOrDie(t)
	topo := Build(c, nil, cl.Classify, Diagnostics{})

	// Every catalog resource lands in exactly one node.
	if got, want := topo.ResourceCount(), len(c.Resources()); got != want {
		t.Errorf("placed %d resources, catalog has %d", got, want)
	}

	seen := make(map[string]int)
	topo.Walk(func(n *Node, _ int) {
		for _, r := range n.Resources {
			seen[r.ID]++
		}
	})
	for id, count := range seen {
		if count != 1 {
			t.Errorf("resource %s placed %d times", id, count)
		}
	}
}

func TestBuildUngroupedBuckets(t *testing.T) {
	slice := catalog.Slice{
		Region: "us-east-1",
		Resources: []catalog.Resource{
			{ID: "vpc-1", Kind: catalog.KindNetwork},
			// In a network but not in any subnet.
			{ID: "nat-1", Kind: catalog.KindInstance, NetworkID: "vpc-1"},
			// Global resources: no network at all.
			{ID: "Z123", Kind: catalog.KindZone, Region: "global"},
			{ID: "cert-1", Kind: catalog.KindCertificate, Region: "global"},
		},
	}
	c := catalog.Merge([]catalog.Slice{slice}, catalog.Metadata{})
	cl := classifierOrDie(t)
	topo := Build(c, nil, cl.Classify, Diagnostics{})

	var netBucket, regionBucket *Node
	topo.Walk(func(n *Node, _ int) {
		switch n.Key {
		case "us-east-1/vpc-1/ungrouped":
			netBucket = n
		case "global/ungrouped":
			regionBucket = n
		}
	})
	if netBucket == nil || len(netBucket.Resources) != 1 || netBucket.Resources[0].ID != "nat-1" {
		t.Errorf("subnet-less resource should sit in the network's ungrouped bucket: %+v", netBucket)
	}
	if regionBucket == nil || len(regionBucket.Resources) != 2 {
		t.Errorf("network-less resources should sit in a region-level bucket: %+v", regionBucket)
	}
}

func TestBuildSiblingKeysUnique(t *testing.T) {
	// Two networks in different regions may carry the same provider id; the
	// composite keys keep siblings distinct all the way down.
	slices := []catalog.Slice{
		{Region: "us-east-1", Resources: []catalog.Resource{
			{ID: "vpc-1", Kind: catalog.KindNetwork},
			{ID: "sub-a", Kind: catalog.KindSubnet, NetworkID: "vpc-1", Tags: map[string]string{"Name": "public-a"}},
		}},
		{Region: "eu-west-1", Resources: []catalog.Resource{
			{ID: "vpc-1", Kind: catalog.KindNetwork},
			{ID: "sub-b", Kind: catalog.KindSubnet, NetworkID: "vpc-1", Tags: map[string]string{"Name": "public-b"}},
		}},
	}
	c := catalog.Merge(slices, catalog.Metadata{})
	cl := classifierOrDie(t)
	topo := Build(c, nil, cl.Classify, Diagnostics{})

	keys := make(map[string]bool)
	topo.Walk(func(n *Node, _ int) {
		for _, child := range n.Children {
			full := n.Key + "|" + child.Key
			if keys[full] {
				t.Errorf("duplicate sibling key %q under %q", child.Key, n.Key)
			}
			keys[full] = true
		}
	})
}

func TestBuildDeterministic(t *testing.T) {
	cl := classifierOrDie(t)

	build := func() *Topology {
		c := threeTierCatalog()
		edges, diag := Resolve(c)
		return Build(c, Deduplicate(edges), cl.Classify, diag)
	}

	a, b := build(), build()
	var shapeA, shapeB []string
	a.Walk(func(n *Node, depth int) { shapeA = append(shapeA, n.Key) })
	b.Walk(func(n *Node, depth int) { shapeB = append(shapeB, n.Key) })
	if !reflect.DeepEqual(shapeA, shapeB) {
		t.Errorf("repeated builds differ:\n%v\n%v", shapeA, shapeB)
	}
	if !reflect.DeepEqual(a.Connections, b.Connections) {
		t.Errorf("repeated builds produce different edge lists")
	}
}
