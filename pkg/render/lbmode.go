package render

import (
	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/config"
	"github.com/perimetra/vpcmap/pkg/topology"
)

// ApplyLBDisplay rewrites the topology for the requested load balancer
// display mode. Full leaves the topology alone. Hidden drops load balancers
// and every connection touching them. Collapsed removes the node but splices
// flows through it, so a chain in -> lb -> target becomes in -> target with
// the target-side protocol and port range.
func ApplyLBDisplay(t *topology.Topology, mode config.LBDisplay) {
	if mode == config.LBFull || mode == "" {
		return
	}

	lbs := make(map[string]bool)
	t.Walk(func(n *topology.Node, _ int) {
		for _, r := range n.Resources {
			if r.Kind == catalog.KindLoadBalancer {
				lbs[r.ID] = true
			}
		}
	})
	if len(lbs) == 0 {
		return
	}

	var kept []topology.Connection
	if mode == config.LBCollapsed {
		incoming := make(map[string][]topology.Connection)
		for _, c := range t.Connections {
			if lbs[c.Dest] && !lbs[c.Source] {
				incoming[c.Dest] = append(incoming[c.Dest], c)
			}
		}
		for _, c := range t.Connections {
			switch {
			case lbs[c.Source] && !lbs[c.Dest]:
				for _, in := range incoming[c.Source] {
					spliced := c
					spliced.Source = in.Source
					spliced.Provenance = append(append([]string(nil), in.Provenance...), c.Provenance...)
					kept = append(kept, spliced)
				}
			case !lbs[c.Source] && !lbs[c.Dest]:
				kept = append(kept, c)
			}
		}
		kept = topology.DeduplicateConnections(kept)
	} else { // hidden
		for _, c := range t.Connections {
			if lbs[c.Source] || lbs[c.Dest] {
				continue
			}
			kept = append(kept, c)
		}
	}
	t.Connections = kept

	t.Walk(func(n *topology.Node, _ int) {
		filtered := n.Resources[:0]
		for _, r := range n.Resources {
			if r.Kind != catalog.KindLoadBalancer {
				filtered = append(filtered, r)
			}
		}
		n.Resources = filtered
	})
}
