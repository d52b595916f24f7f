// Package topology turns raw firewall rule sets into a deduplicated
// connection graph and a nested account/region/network/tier hierarchy
// suitable for diagram rendering.
package topology

// Direction is the side of the firewall a permission was declared on.
type Direction string

const (
	DirectionIngress Direction = "ingress"
	DirectionEgress  Direction = "egress"
)

// ResolvedEdge is one pre-deduplication endpoint pair produced from a single
// permission. The same logical flow may appear many times, once per rule
// that allows it.
type ResolvedEdge struct {
	Source    string
	Dest      string
	Protocol  string
	PortFrom  int
	PortTo    int
	Direction Direction
	Origin    string // rule set that produced the edge
}

// Connection is a deduplicated, directed logical flow between two resources.
// Unique by (source, dest, protocol, port range). Provenance lists the rule
// sets that justified it; it is used for audit-detail rendering only.
type Connection struct {
	Source   string
	Dest     string
	Protocol string
	PortFrom int
	PortTo   int

	Provenance    []string
	IngressOrigin bool
}
