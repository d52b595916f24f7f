package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/topology"
)

// DOT renders a topology in Graphviz dot syntax using nested clusters.
type DOT struct {
	Detail topology.Detail
}

func (d *DOT) Render(w io.Writer, t *topology.Topology) error {
	var b strings.Builder
	b.WriteString("digraph topology {\n")
	b.WriteString("    rankdir=TB;\n")
	b.WriteString("    compound=true;\n")
	b.WriteString("    node [shape=box, fontname=\"Helvetica\"];\n")

	var visit func(n *topology.Node, depth int)
	visit = func(n *topology.Node, depth int) {
		indent := strings.Repeat("    ", depth)
		container := n.Kind != "account"
		if container {
			fmt.Fprintf(&b, "%ssubgraph cluster_%s {\n", indent, sanitizeID(n.Key))
			fmt.Fprintf(&b, "%s    label=\"%s\";\n", indent, n.Label)
		}
		inner := indent
		if container {
			inner += "    "
		}
		for _, r := range n.Resources {
			fmt.Fprintf(&b, "%s\"%s\" [label=\"%s\"%s];\n", inner, sanitizeID(r.ID), r.Name(), dotShape(r.Kind))
		}
		for _, c := range n.Children {
			dd := depth
			if container {
				dd++
			}
			visit(c, dd)
		}
		if container {
			fmt.Fprintf(&b, "%s}\n", indent)
		}
	}
	visit(t.Root, 1)

	if len(t.Connections) > 0 {
		b.WriteString("\n")
	}
	for _, c := range t.Connections {
		label := EdgeLabel(c, d.Detail)
		if label == "" {
			fmt.Fprintf(&b, "    \"%s\" -> \"%s\";\n", sanitizeID(c.Source), sanitizeID(c.Dest))
		} else {
			fmt.Fprintf(&b, "    \"%s\" -> \"%s\" [label=\"%s\"];\n", sanitizeID(c.Source), sanitizeID(c.Dest), label)
		}
	}

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func dotShape(k catalog.Kind) string {
	switch k {
	case catalog.KindLoadBalancer:
		return ", shape=ellipse"
	case catalog.KindDatabase:
		return ", shape=cylinder"
	case catalog.KindZone:
		return ", shape=hexagon"
	case catalog.KindCertificate:
		return ", shape=note"
	default:
		return ""
	}
}
