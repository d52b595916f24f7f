package topology

import "sort"

type connKey struct {
	source   string
	dest     string
	protocol string
	portFrom int
	portTo   int
}

// Deduplicate collapses resolved edges that describe the same logical flow
// into single connections, accumulating the origin rule sets as a provenance
// set. Adjacent or overlapping port ranges are never coalesced; the port
// range is part of the grouping key.
func Deduplicate(edges []ResolvedEdge) []Connection {
	conns := make([]Connection, 0, len(edges))
	for _, e := range edges {
		conns = append(conns, Connection{
			Source:        e.Source,
			Dest:          e.Dest,
			Protocol:      e.Protocol,
			PortFrom:      e.PortFrom,
			PortTo:        e.PortTo,
			Provenance:    []string{e.Origin},
			IngressOrigin: e.Direction == DirectionIngress,
		})
	}
	return DeduplicateConnections(conns)
}

// DeduplicateConnections merges connections sharing the grouping key. It is
// idempotent: running it on its own output changes nothing.
func DeduplicateConnections(conns []Connection) []Connection {
	prov := make(map[connKey]map[string]bool)
	ingress := make(map[connKey]bool)
	var order []connKey

	for _, c := range conns {
		key := connKey{c.Source, c.Dest, c.Protocol, c.PortFrom, c.PortTo}
		if _, ok := prov[key]; !ok {
			prov[key] = make(map[string]bool)
			order = append(order, key)
		}
		for _, id := range c.Provenance {
			prov[key][id] = true
		}
		if c.IngressOrigin {
			ingress[key] = true
		}
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.source != b.source {
			return a.source < b.source
		}
		if a.dest != b.dest {
			return a.dest < b.dest
		}
		if a.protocol != b.protocol {
			return a.protocol < b.protocol
		}
		if a.portFrom != b.portFrom {
			return a.portFrom < b.portFrom
		}
		return a.portTo < b.portTo
	})

	out := make([]Connection, 0, len(order))
	for _, key := range order {
		ids := make([]string, 0, len(prov[key]))
		for id := range prov[key] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out = append(out, Connection{
			Source:        key.source,
			Dest:          key.dest,
			Protocol:      key.protocol,
			PortFrom:      key.portFrom,
			PortTo:        key.portTo,
			Provenance:    ids,
			IngressOrigin: ingress[key],
		})
	}
	return out
}
