// Package render turns a topology into diagram source text. Output is fully
// deterministic: identical input produces byte-identical diagrams.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/perimetra/vpcmap/pkg/topology"
)

// Renderer writes one diagram dialect.
type Renderer interface {
	Render(w io.Writer, t *topology.Topology) error
}

// serviceNames maps well-known ports onto protocol names for edge labels.
var serviceNames = map[int]string{
	22:    "ssh",
	80:    "http",
	443:   "https",
	3306:  "mysql",
	5432:  "postgres",
	6379:  "redis",
	27017: "mongodb",
}

// EdgeLabel formats a connection's label for the requested detail level.
// Minimal yields an empty label; full appends the rule set provenance.
func EdgeLabel(c topology.Connection, d topology.Detail) string {
	switch d {
	case topology.DetailMinimal:
		return ""
	case topology.DetailPorts:
		return portLabel(c)
	case topology.DetailProtocols:
		return protoLabel(c)
	default: // full
		label := protoLabel(c)
		if len(c.Provenance) > 0 {
			label += " [" + strings.Join(c.Provenance, ",") + "]"
		}
		return label
	}
}

func portLabel(c topology.Connection) string {
	if c.PortFrom == 0 && c.PortTo == 65535 {
		return "all"
	}
	if c.PortFrom == c.PortTo {
		s := strconv.Itoa(c.PortFrom)
		if name, ok := serviceNames[c.PortFrom]; ok {
			s += " (" + name + ")"
		}
		return s
	}
	return fmt.Sprintf("%d-%d", c.PortFrom, c.PortTo)
}

func protoLabel(c topology.Connection) string {
	ports := portLabel(c)
	if c.Protocol == "all" && ports == "all" {
		return "all"
	}
	return c.Protocol + "/" + ports
}

// sanitizeID makes an identifier safe for mermaid/DOT node names.
func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
