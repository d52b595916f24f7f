package topology

import (
	"log/slog"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// Diagnostics counts the non-fatal events of a resolution pass. Dangling
// references are expected (cross-region rule set references resolve against
// regions we never discovered) and are surfaced only on request.
type Diagnostics struct {
	DanglingRefs int

	// InternetFacing marks resources owning a permission whose CIDR peer
	// matched no discovered address, i.e. traffic to or from the internet.
	InternetFacing map[string]bool
}

// Resolve expands every permission of every attached rule set into concrete
// endpoint pairs. Ingress on resource R with peer P yields P->R, egress
// yields R->P: the arrow always points the way the permitted traffic flows.
func Resolve(c *catalog.Catalog) ([]ResolvedEdge, Diagnostics) {
	diag := Diagnostics{InternetFacing: make(map[string]bool)}
	var edges []ResolvedEdge

	for _, rs := range c.RuleSets() {
		owners := c.Attached(rs.Region, rs.ID)
		if len(owners) == 0 {
			continue
		}
		for _, perm := range rs.Ingress {
			edges = append(edges, resolvePermission(c, rs, perm, owners, DirectionIngress, &diag)...)
		}
		for _, perm := range rs.Egress {
			edges = append(edges, resolvePermission(c, rs, perm, owners, DirectionEgress, &diag)...)
		}
	}

	if diag.DanglingRefs > 0 {
		slog.Debug("skipped permissions with unresolvable rule set references", "count", diag.DanglingRefs)
	}
	return edges, diag
}

func resolvePermission(c *catalog.Catalog, rs *catalog.RuleSet, perm catalog.Permission, owners []*catalog.Resource, dir Direction, diag *Diagnostics) []ResolvedEdge {
	var out []ResolvedEdge

	for _, peer := range perm.Peers {
		var peers []*catalog.Resource
		if peer.IsCIDR() {
			peers = resourcesInPrefix(c, peer)
			if len(peers) == 0 {
				// No discovered address falls in the range: the peer is the
				// internet. No placeholder node; the owners just get flagged
				// for the external-only filter.
				for _, o := range owners {
					diag.InternetFacing[o.ID] = true
				}
				continue
			}
		} else {
			// References stay within the owning region. A miss means the
			// referenced set was discovered nowhere; drop and count.
			if _, ok := c.RuleSet(rs.Region, peer.RuleSet); !ok {
				diag.DanglingRefs++
				continue
			}
			peers = c.Attached(rs.Region, peer.RuleSet)
		}

		for _, p := range peers {
			for _, o := range owners {
				if p.ID == o.ID {
					continue
				}
				e := ResolvedEdge{
					Protocol:  perm.Protocol,
					PortFrom:  perm.PortFrom,
					PortTo:    perm.PortTo,
					Direction: dir,
					Origin:    rs.ID,
				}
				if dir == DirectionIngress {
					e.Source, e.Dest = p.ID, o.ID
				} else {
					e.Source, e.Dest = o.ID, p.ID
				}
				out = append(out, e)
			}
		}
	}
	return out
}

func resourcesInPrefix(c *catalog.Catalog, peer catalog.PeerRef) []*catalog.Resource {
	var out []*catalog.Resource
	for _, r := range c.Resources() {
		for _, addr := range r.Addresses {
			if peer.CIDR.Contains(addr) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
