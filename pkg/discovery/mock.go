package discovery

import (
	"net/netip"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// MockCatalog returns a fixed three-tier inventory for offline runs. The
// shape exercises every pipeline stage: CIDR and group rules, a public load
// balancer, tiers, and global resources.
func MockCatalog() *catalog.Catalog {
	region := "us-east-1"
	slice := catalog.Slice{
		Region: region,
		Resources: []catalog.Resource{
			{ID: "vpc-0mock0", Kind: catalog.KindNetwork, Tags: map[string]string{"Name": "core"}},
			{ID: "subnet-0mockpub", Kind: catalog.KindSubnet, NetworkID: "vpc-0mock0",
				Tags: map[string]string{"Name": "public-web-a"}},
			{ID: "subnet-0mockapp", Kind: catalog.KindSubnet, NetworkID: "vpc-0mock0",
				Tags: map[string]string{"Name": "private-app-a"}},
			{ID: "subnet-0mockdb", Kind: catalog.KindSubnet, NetworkID: "vpc-0mock0",
				Tags: map[string]string{"Name": "data-db-a"}},
			{ID: "arn:aws:elasticloadbalancing:us-east-1:123456789012:loadbalancer/app/mock/50dc6c495c0c9188",
				Kind: catalog.KindLoadBalancer, NetworkID: "vpc-0mock0",
				Tags:     map[string]string{"Name": "edge"},
				RuleSets: []string{"sg-0mocklb"}, InternetFacing: true},
			{ID: "i-0mockweb", Kind: catalog.KindInstance, NetworkID: "vpc-0mock0", SubnetID: "subnet-0mockpub",
				Tags:      map[string]string{"Name": "web-1"},
				RuleSets:  []string{"sg-0mockweb"},
				Addresses: []netip.Addr{netip.MustParseAddr("10.0.1.10")}},
			{ID: "i-0mockapp", Kind: catalog.KindInstance, NetworkID: "vpc-0mock0", SubnetID: "subnet-0mockapp",
				Tags:      map[string]string{"Name": "app-1"},
				RuleSets:  []string{"sg-0mockapp"},
				Addresses: []netip.Addr{netip.MustParseAddr("10.0.2.10")}},
			{ID: "mock-postgres", Kind: catalog.KindDatabase, NetworkID: "vpc-0mock0", SubnetID: "subnet-0mockdb",
				RuleSets:  []string{"sg-0mockdb"},
				Addresses: []netip.Addr{netip.MustParseAddr("10.0.3.10")}},
		},
		RuleSets: []catalog.RuleSet{
			{ID: "sg-0mocklb", Name: "edge-lb", Ingress: []catalog.Permission{
				{Protocol: "tcp", PortFrom: 443, PortTo: 443,
					Peers: []catalog.PeerRef{catalog.CIDRPeer(netip.MustParsePrefix("0.0.0.0/0"))}},
			}},
			{ID: "sg-0mockweb", Name: "web", Ingress: []catalog.Permission{
				{Protocol: "tcp", PortFrom: 80, PortTo: 80,
					Peers: []catalog.PeerRef{catalog.GroupPeer("sg-0mocklb")}},
			}},
			{ID: "sg-0mockapp", Name: "app", Ingress: []catalog.Permission{
				{Protocol: "tcp", PortFrom: 8080, PortTo: 8080,
					Peers: []catalog.PeerRef{catalog.GroupPeer("sg-0mockweb")}},
			}},
			{ID: "sg-0mockdb", Name: "db", Ingress: []catalog.Permission{
				{Protocol: "tcp", PortFrom: 5432, PortTo: 5432,
					Peers: []catalog.PeerRef{catalog.GroupPeer("sg-0mockapp")}},
			}},
		},
	}

	global := catalog.Slice{
		Region: GlobalRegion,
		Resources: []catalog.Resource{
			{ID: "Z0MOCK", Kind: catalog.KindZone, Tags: map[string]string{"Name": "example.com"}},
		},
	}

	return catalog.Merge([]catalog.Slice{slice, global}, catalog.Metadata{Regions: []string{region}})
}
