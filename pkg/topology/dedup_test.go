package topology

import (
	"reflect"
	"testing"
)

func TestDeduplicateMergesProvenance(t *testing.T) {
	// Two rules on the same pair with an identical tuple collapse into one
	// connection carrying both origins.
	edges := []ResolvedEdge{
		{Source: "web", Dest: "db", Protocol: "tcp", PortFrom: 5432, PortTo: 5432, Direction: DirectionIngress, Origin: "sg-db"},
		{Source: "web", Dest: "db", Protocol: "tcp", PortFrom: 5432, PortTo: 5432, Direction: DirectionEgress, Origin: "sg-web"},
	}

	conns := Deduplicate(edges)
	if len(conns) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(conns))
	}
	if got := conns[0].Provenance; !reflect.DeepEqual(got, []string{"sg-db", "sg-web"}) {
		t.Errorf("expected provenance set of size 2, got %v", got)
	}
	if !conns[0].IngressOrigin {
		t.Error("merged connection should keep its ingress origin")
	}
}

func TestDeduplicateKeepsDistinctRanges(t *testing.T) {
	// Adjacent ranges are never coalesced.
	edges := []ResolvedEdge{
		{Source: "a", Dest: "b", Protocol: "tcp", PortFrom: 80, PortTo: 80, Origin: "sg-1"},
		{Source: "a", Dest: "b", Protocol: "tcp", PortFrom: 81, PortTo: 81, Origin: "sg-1"},
		{Source: "a", Dest: "b", Protocol: "udp", PortFrom: 80, PortTo: 80, Origin: "sg-1"},
	}
	conns := Deduplicate(edges)
	if len(conns) != 3 {
		t.Fatalf("expected 3 distinct connections, got %d", len(conns))
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	edges := []ResolvedEdge{
		{Source: "a", Dest: "b", Protocol: "tcp", PortFrom: 443, PortTo: 443, Direction: DirectionIngress, Origin: "sg-1"},
		{Source: "a", Dest: "b", Protocol: "tcp", PortFrom: 443, PortTo: 443, Direction: DirectionIngress, Origin: "sg-2"},
		{Source: "b", Dest: "c", Protocol: "tcp", PortFrom: 6379, PortTo: 6379, Direction: DirectionEgress, Origin: "sg-3"},
	}

	once := Deduplicate(edges)
	twice := DeduplicateConnections(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("dedup must be idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestDeduplicateOrderIndependent(t *testing.T) {
	a := []ResolvedEdge{
		{Source: "x", Dest: "y", Protocol: "tcp", PortFrom: 22, PortTo: 22, Origin: "sg-b"},
		{Source: "x", Dest: "y", Protocol: "tcp", PortFrom: 22, PortTo: 22, Origin: "sg-a"},
	}
	b := []ResolvedEdge{a[1], a[0]}

	if !reflect.DeepEqual(Deduplicate(a), Deduplicate(b)) {
		t.Error("dedup output must not depend on input order")
	}
}
