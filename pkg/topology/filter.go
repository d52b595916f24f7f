package topology

import (
	"fmt"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// FlowScope selects which boundary an edge must cross to survive.
type FlowScope string

const (
	FlowAll          FlowScope = "all"
	FlowNone         FlowScope = "none"
	FlowInterSubnet  FlowScope = "inter-subnet"
	FlowTierCrossing FlowScope = "tier-crossing"
	FlowExternalOnly FlowScope = "external-only"
)

// TrafficDirection filters on the tier ordering.
type TrafficDirection string

const (
	DirectionBoth       TrafficDirection = "both"
	DirectionNorthSouth TrafficDirection = "north-south"
	DirectionEastWest   TrafficDirection = "east-west"
)

// Detail instructs a renderer what to print per edge. It never changes
// which edges survive.
type Detail string

const (
	DetailMinimal   Detail = "minimal"
	DetailPorts     Detail = "ports"
	DetailProtocols Detail = "protocols"
	DetailFull      Detail = "full"
)

// EphemeralPortFloor is the lowest source port treated as an ephemeral
// client port when filter-ephemeral is on.
const EphemeralPortFloor = 32767

// Policy is the explicit filter configuration. Predicates compose by
// intersection: an edge survives only if it passes every active one.
type Policy struct {
	Flow            FlowScope
	Direction       TrafficDirection
	Detail          Detail
	FilterInternal  bool
	FilterEphemeral bool
	OnlyIngress     bool
}

// Validate rejects unknown enum values before the pipeline runs.
func (p Policy) Validate() error {
	switch p.Flow {
	case FlowAll, FlowNone, FlowInterSubnet, FlowTierCrossing, FlowExternalOnly:
	default:
		return fmt.Errorf("invalid flow scope %q", p.Flow)
	}
	switch p.Direction {
	case DirectionBoth, DirectionNorthSouth, DirectionEastWest:
	default:
		return fmt.Errorf("invalid direction %q", p.Direction)
	}
	switch p.Detail {
	case DetailMinimal, DetailPorts, DetailProtocols, DetailFull:
	default:
		return fmt.Errorf("invalid detail level %q", p.Detail)
	}
	return nil
}

// DefaultPolicy mirrors the network preset.
func DefaultPolicy() Policy {
	return Policy{Flow: FlowInterSubnet, Direction: DirectionBoth, Detail: DetailPorts}
}

// Preset returns a named option bundle. Presets apply before explicit
// per-option overrides, so explicit flags always win.
func Preset(name string) (Policy, error) {
	switch name {
	case "clean":
		return Policy{Flow: FlowNone, Direction: DirectionBoth, Detail: DetailMinimal}, nil
	case "network":
		return Policy{Flow: FlowInterSubnet, Direction: DirectionBoth, Detail: DetailPorts}, nil
	case "security":
		return Policy{
			Flow:            FlowTierCrossing,
			Direction:       DirectionBoth,
			Detail:          DetailFull,
			OnlyIngress:     true,
			FilterEphemeral: true,
		}, nil
	case "debug":
		return Policy{Flow: FlowAll, Direction: DirectionBoth, Detail: DetailFull}, nil
	default:
		return Policy{}, fmt.Errorf("unknown preset %q", name)
	}
}

type endpoint struct {
	subnet   string
	tier     Tier
	kind     catalog.Kind
	external bool
}

// View is the endpoint lookup the predicates run against, built once from
// the immutable catalog plus the resolver's internet-facing markings.
type View struct {
	endpoints map[string]endpoint
}

// NewView indexes every resource's subnet, tier, kind, and external flag.
func NewView(c *catalog.Catalog, classify ClassifyFunc, diag Diagnostics) *View {
	tiers := make(map[string]Tier)
	for _, r := range c.Resources() {
		if r.Kind == catalog.KindSubnet {
			tiers[r.ID] = classify(r)
		}
	}

	v := &View{endpoints: make(map[string]endpoint)}
	for _, r := range c.Resources() {
		ep := endpoint{
			subnet:   r.SubnetID,
			kind:     r.Kind,
			tier:     TierUnclassified,
			external: r.InternetFacing || diag.InternetFacing[r.ID],
		}
		if r.Kind == catalog.KindSubnet {
			ep.subnet = r.ID
			ep.tier = tiers[r.ID]
		} else if t, ok := tiers[r.SubnetID]; ok {
			ep.tier = t
		}
		v.endpoints[r.ID] = ep
	}
	return v
}

func (v *View) lookup(id string) endpoint {
	return v.endpoints[id]
}

// Filter applies the policy to the edge list. An invalid policy is an
// error, never a silent pass-through.
func Filter(conns []Connection, p Policy, v *View) ([]Connection, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Flow == FlowNone {
		return []Connection{}, nil
	}

	out := make([]Connection, 0, len(conns))
	for _, conn := range conns {
		src, dst := v.lookup(conn.Source), v.lookup(conn.Dest)

		if !passFlow(p.Flow, src, dst) {
			continue
		}
		if !passDirection(p.Direction, src, dst) {
			continue
		}
		if p.FilterInternal && src.subnet != "" && src.subnet == dst.subnet {
			continue
		}
		if p.FilterEphemeral && conn.PortFrom > EphemeralPortFloor {
			continue
		}
		if p.OnlyIngress && !conn.IngressOrigin {
			continue
		}
		out = append(out, conn)
	}
	return out, nil
}

func passFlow(scope FlowScope, src, dst endpoint) bool {
	switch scope {
	case FlowInterSubnet:
		return src.subnet != dst.subnet
	case FlowTierCrossing:
		return src.tier != dst.tier
	case FlowExternalOnly:
		return src.kind == catalog.KindLoadBalancer || dst.kind == catalog.KindLoadBalancer ||
			src.external || dst.external
	default: // FlowAll
		return true
	}
}

func passDirection(dir TrafficDirection, src, dst endpoint) bool {
	if dir == DirectionBoth {
		return true
	}
	srcRank, srcOK := tierRank[src.tier]
	dstRank, dstOK := tierRank[dst.tier]
	if !srcOK || !dstOK {
		return false
	}
	if dir == DirectionNorthSouth {
		return srcRank != dstRank
	}
	return srcRank == dstRank // east-west
}
