package topology

import (
	"sort"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// Node is one container in the account/region/network/tier nesting. Keys are
// composite (region/network/tier) so sibling keys never collide even when
// resource names do.
type Node struct {
	Key       string
	Label     string
	Kind      string // account, region, network, tier, ungrouped
	Children  []*Node
	Resources []*catalog.Resource
}

// Topology is the finished hierarchy plus the flat connection list. Edges
// stay outside the tree: a connection's endpoints may sit in different
// tiers, networks, or regions, and embedding pointers in tree nodes would
// either duplicate the graph or make it cyclic.
type Topology struct {
	Root        *Node
	Connections []Connection
	Diag        Diagnostics
}

// ClassifyFunc resolves a subnet resource to its tier.
type ClassifyFunc func(*catalog.Resource) Tier

const ungrouped = "ungrouped"

// Build walks every resource once and places it at its
// (region, network, tier) path, creating nodes on first use. Resources with
// no subnet land in their network's ungrouped bucket; resources with no
// network (DNS zones, certificates) in a region-level one. Tier nodes only
// exist when something lives in them.
func Build(c *catalog.Catalog, conns []Connection, classify ClassifyFunc, diag Diagnostics) *Topology {
	root := &Node{Key: "account", Kind: "account"}
	index := map[string]*Node{root.Key: root}

	child := func(parent *Node, key, label, kind string) *Node {
		if n, ok := index[key]; ok {
			return n
		}
		n := &Node{Key: key, Label: label, Kind: kind}
		index[key] = n
		parent.Children = append(parent.Children, n)
		return n
	}

	subnetTier := func(subnetID, region string) Tier {
		if sub, ok := c.Lookup(subnetID); ok && sub.Kind == catalog.KindSubnet {
			return classify(sub)
		}
		return TierUnclassified
	}

	for _, r := range c.Resources() {
		region := child(root, r.Region, r.Region, "region")

		if r.Kind == catalog.KindNetwork {
			net := child(region, r.Region+"/"+r.ID, r.Name(), "network")
			net.Resources = append(net.Resources, r)
			continue
		}

		var leaf *Node
		switch {
		case r.Kind == catalog.KindSubnet:
			net := child(region, r.Region+"/"+r.NetworkID, r.NetworkID, "network")
			tier := classify(r)
			leaf = child(net, net.Key+"/"+string(tier), string(tier), "tier")
		case r.SubnetID != "":
			net := child(region, r.Region+"/"+r.NetworkID, r.NetworkID, "network")
			tier := subnetTier(r.SubnetID, r.Region)
			leaf = child(net, net.Key+"/"+string(tier), string(tier), "tier")
		case r.NetworkID != "":
			net := child(region, r.Region+"/"+r.NetworkID, r.NetworkID, "network")
			leaf = child(net, net.Key+"/"+ungrouped, ungrouped, ungrouped)
		default:
			leaf = child(region, r.Region+"/"+ungrouped, ungrouped, ungrouped)
		}
		leaf.Resources = append(leaf.Resources, r)
	}

	// Network nodes created lazily from member resources get their label
	// upgraded once the network resource itself is seen.
	for _, r := range c.Resources() {
		if r.Kind == catalog.KindNetwork {
			if n, ok := index[r.Region+"/"+r.ID]; ok {
				n.Label = r.Name()
			}
		}
	}

	sortTree(root)
	return &Topology{Root: root, Connections: conns, Diag: diag}
}

func sortTree(n *Node) {
	sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Key < n.Children[j].Key })
	for _, c := range n.Children {
		sortTree(c)
	}
}

// Walk visits every node depth-first in deterministic order.
func (t *Topology) Walk(fn func(*Node, int)) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root, 0)
}

// ResourceCount sums the resources across all nodes.
func (t *Topology) ResourceCount() int {
	total := 0
	t.Walk(func(n *Node, _ int) { total += len(n.Resources) })
	return total
}
