// Package catalog holds the normalized, immutable inventory of discovered
// cloud resources and their firewall rule sets, merged across regions.
package catalog

import (
	"net/netip"
	"sort"
)

// Kind identifies the class of a discovered resource.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindSubnet       Kind = "subnet"
	KindInstance     Kind = "instance"
	KindLoadBalancer Kind = "load_balancer"
	KindDatabase     Kind = "database"
	KindZone         Kind = "zone"
	KindCertificate  Kind = "certificate"
)

// Resource is a single discovered entity. Identity is the provider-assigned
// ID; uniqueness is enforced per (region, kind), so the composite key is the
// real identity during merge.
type Resource struct {
	ID             string
	Kind           Kind
	Region         string
	NetworkID      string
	SubnetID       string
	Tags           map[string]string
	Addresses      []netip.Addr
	RuleSets       []string
	InternetFacing bool
}

// Name returns the Name tag, falling back to the provider ID.
func (r *Resource) Name() string {
	if n, ok := r.Tags["Name"]; ok && n != "" {
		return n
	}
	return r.ID
}

// PeerRef is a firewall rule's allowed counterparty: either a literal CIDR
// block or a reference to another rule set (possibly in another region).
type PeerRef struct {
	CIDR    netip.Prefix
	RuleSet string
}

// IsCIDR reports whether the peer is a literal address range.
func (p PeerRef) IsCIDR() bool { return p.RuleSet == "" }

// CIDRPeer builds a literal-range peer.
func CIDRPeer(prefix netip.Prefix) PeerRef { return PeerRef{CIDR: prefix} }

// GroupPeer builds a rule-set-reference peer.
func GroupPeer(id string) PeerRef { return PeerRef{RuleSet: id} }

// Permission is one ingress or egress firewall rule.
type Permission struct {
	Protocol string
	PortFrom int
	PortTo   int
	Peers    []PeerRef
}

// RuleSet is a named collection of permissions attachable to any number of
// resources. Attachment is recorded on the Resource side.
type RuleSet struct {
	ID      string
	Name    string
	Region  string
	Ingress []Permission
	Egress  []Permission
}

// Slice is the discovery output for a single region. Each region's scan
// produces its own Slice; slices are merged into a Catalog afterwards.
type Slice struct {
	Region    string
	Resources []Resource
	RuleSets  []RuleSet
}

// ScopeError records a failed discovery scope (profile:region [scanner]).
type ScopeError struct {
	Scope string
	Err   string
}

// Metadata carries partial-failure state accumulated during discovery.
type Metadata struct {
	Partial      bool
	FailedScopes []ScopeError
	Regions      []string
}

type resourceKey struct {
	region string
	kind   Kind
	id     string
}

// RefKey addresses a rule set by its composite identity.
type RefKey struct {
	Region string
	ID     string
}

// Catalog is the merged, read-only inventory. Build it once with Merge; all
// derived structures are pure functions of it.
type Catalog struct {
	resources   []*Resource
	byKey       map[resourceKey]*Resource
	byID        map[string]*Resource
	rulesets    map[RefKey]*RuleSet
	attachments map[RefKey][]*Resource
	meta        Metadata
}

// Merge unions per-region slices into a Catalog. The union is
// non-conflicting: provider IDs are region-scoped, so merge order does not
// matter. Resources are sorted so every downstream walk is deterministic.
func Merge(slices []Slice, meta Metadata) *Catalog {
	c := &Catalog{
		byKey:       make(map[resourceKey]*Resource),
		byID:        make(map[string]*Resource),
		rulesets:    make(map[RefKey]*RuleSet),
		attachments: make(map[RefKey][]*Resource),
		meta:        meta,
	}

	for _, s := range slices {
		for i := range s.Resources {
			r := s.Resources[i]
			if r.Region == "" {
				r.Region = s.Region
			}
			key := resourceKey{r.Region, r.Kind, r.ID}
			if _, dup := c.byKey[key]; dup {
				continue
			}
			res := &r
			c.byKey[key] = res
			c.resources = append(c.resources, res)
		}
		for i := range s.RuleSets {
			rs := s.RuleSets[i]
			if rs.Region == "" {
				rs.Region = s.Region
			}
			c.rulesets[RefKey{rs.Region, rs.ID}] = &rs
		}
	}

	sort.Slice(c.resources, func(i, j int) bool {
		a, b := c.resources[i], c.resources[j]
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})

	// Provider-ID index over the sorted order, first match wins, so lookups
	// stay deterministic regardless of slice order.
	for _, r := range c.resources {
		if _, ok := c.byID[r.ID]; !ok {
			c.byID[r.ID] = r
		}
	}

	// Attachment index: rule set -> resources. Built once, read many.
	for _, r := range c.resources {
		for _, id := range r.RuleSets {
			key := RefKey{r.Region, id}
			c.attachments[key] = append(c.attachments[key], r)
		}
	}

	return c
}

// Resources returns all resources in deterministic order.
func (c *Catalog) Resources() []*Resource { return c.resources }

// Lookup finds a resource by provider ID.
func (c *Catalog) Lookup(id string) (*Resource, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// RuleSets returns every rule set in deterministic (region, id) order.
func (c *Catalog) RuleSets() []*RuleSet {
	out := make([]*RuleSet, 0, len(c.rulesets))
	for _, rs := range c.rulesets {
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RuleSetsIn returns the rule sets of one region in deterministic order.
func (c *Catalog) RuleSetsIn(region string) []*RuleSet {
	var out []*RuleSet
	for key, rs := range c.rulesets {
		if key.Region == region {
			out = append(out, rs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RuleSet resolves a (region, id) reference. A miss means the referenced set
// lives in an undiscovered region.
func (c *Catalog) RuleSet(region, id string) (*RuleSet, bool) {
	rs, ok := c.rulesets[RefKey{region, id}]
	return rs, ok
}

// Attached returns the resources a rule set is attached to.
func (c *Catalog) Attached(region, rulesetID string) []*Resource {
	return c.attachments[RefKey{region, rulesetID}]
}

// Regions lists every region that contributed resources, sorted.
func (c *Catalog) Regions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.resources {
		if !seen[r.Region] {
			seen[r.Region] = true
			out = append(out, r.Region)
		}
	}
	sort.Strings(out)
	return out
}

// Metadata returns discovery partial-failure state.
func (c *Catalog) Metadata() Metadata { return c.meta }
