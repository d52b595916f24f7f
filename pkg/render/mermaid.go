package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/topology"
)

// Mermaid renders a topology as a mermaid flowchart with nested subgraphs
// for regions, networks, and tiers.
type Mermaid struct {
	Detail topology.Detail
}

func (m *Mermaid) Render(w io.Writer, t *topology.Topology) error {
	var b strings.Builder
	b.WriteString("graph TD\n")

	var visit func(n *topology.Node, depth int)
	visit = func(n *topology.Node, depth int) {
		indent := strings.Repeat("    ", depth)
		container := n.Kind != "account"
		if container {
			fmt.Fprintf(&b, "%ssubgraph %s[\"%s\"]\n", indent, sanitizeID(n.Key), n.Label)
		}
		inner := indent
		if container {
			inner += "    "
		}
		for _, r := range n.Resources {
			fmt.Fprintf(&b, "%s%s\n", inner, mermaidNode(r))
		}
		for _, c := range n.Children {
			d := depth
			if container {
				d++
			}
			visit(c, d)
		}
		if container {
			fmt.Fprintf(&b, "%send\n", indent)
		}
	}
	visit(t.Root, 1)

	if len(t.Connections) > 0 {
		b.WriteString("\n")
	}
	for _, c := range t.Connections {
		label := EdgeLabel(c, m.Detail)
		if label == "" {
			fmt.Fprintf(&b, "    %s --> %s\n", sanitizeID(c.Source), sanitizeID(c.Dest))
		} else {
			fmt.Fprintf(&b, "    %s -->|\"%s\"| %s\n", sanitizeID(c.Source), label, sanitizeID(c.Dest))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// mermaidNode picks a node shape by resource kind: stadium for load
// balancers, cylinder for databases, circle for DNS zones, rectangle
// otherwise.
func mermaidNode(r *catalog.Resource) string {
	id := sanitizeID(r.ID)
	label := r.Name()
	switch r.Kind {
	case catalog.KindLoadBalancer:
		return fmt.Sprintf("%s([\"%s\"])", id, label)
	case catalog.KindDatabase:
		return fmt.Sprintf("%s[(\"%s\")]", id, label)
	case catalog.KindZone:
		return fmt.Sprintf("%s((\"%s\"))", id, label)
	case catalog.KindCertificate:
		return fmt.Sprintf("%s{{\"%s\"}}", id, label)
	default:
		return fmt.Sprintf("%s[\"%s\"]", id, label)
	}
}
