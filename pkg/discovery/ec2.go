package discovery

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// EC2Client is the subset of the EC2 API the scanner uses.
type EC2Client interface {
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeNatGateways(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error)
}

// EC2Scanner discovers VPCs, subnets, instances, NAT gateways, and security
// groups.
type EC2Scanner struct {
	Client EC2Client
	Region string
}

func NewEC2Scanner(cfg aws.Config) *EC2Scanner {
	return &EC2Scanner{Client: ec2.NewFromConfig(cfg), Region: cfg.Region}
}

func (s *EC2Scanner) Name() string { return "ec2" }

func (s *EC2Scanner) Scan(ctx context.Context, col *Collector) error {
	if err := s.scanVpcs(ctx, col); err != nil {
		return err
	}
	if err := s.scanSubnets(ctx, col); err != nil {
		return err
	}
	if err := s.scanInstances(ctx, col); err != nil {
		return err
	}
	if err := s.scanNatGateways(ctx, col); err != nil {
		return err
	}
	return s.scanSecurityGroups(ctx, col)
}

func (s *EC2Scanner) scanVpcs(ctx context.Context, col *Collector) error {
	paginator := ec2.NewDescribeVpcsPaginator(s.Client, &ec2.DescribeVpcsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to describe vpcs: %w", err)
		}
		for _, vpc := range page.Vpcs {
			col.AddResource(catalog.Resource{
				ID:     aws.ToString(vpc.VpcId),
				Kind:   catalog.KindNetwork,
				Region: s.Region,
				Tags:   parseTags(vpc.Tags),
			})
		}
	}
	return nil
}

func (s *EC2Scanner) scanSubnets(ctx context.Context, col *Collector) error {
	paginator := ec2.NewDescribeSubnetsPaginator(s.Client, &ec2.DescribeSubnetsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to describe subnets: %w", err)
		}
		for _, sub := range page.Subnets {
			col.AddResource(catalog.Resource{
				ID:        aws.ToString(sub.SubnetId),
				Kind:      catalog.KindSubnet,
				Region:    s.Region,
				NetworkID: aws.ToString(sub.VpcId),
				Tags:      parseTags(sub.Tags),
			})
		}
	}
	return nil
}

func (s *EC2Scanner) scanInstances(ctx context.Context, col *Collector) error {
	paginator := ec2.NewDescribeInstancesPaginator(s.Client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				if inst.State != nil && inst.State.Name == types.InstanceStateNameTerminated {
					continue
				}

				r := catalog.Resource{
					ID:        aws.ToString(inst.InstanceId),
					Kind:      catalog.KindInstance,
					Region:    s.Region,
					NetworkID: aws.ToString(inst.VpcId),
					SubnetID:  aws.ToString(inst.SubnetId),
					Tags:      parseTags(inst.Tags),
				}
				for _, sg := range inst.SecurityGroups {
					r.RuleSets = append(r.RuleSets, aws.ToString(sg.GroupId))
				}
				if addr, ok := parseAddr(inst.PrivateIpAddress); ok {
					r.Addresses = append(r.Addresses, addr)
				}
				if addr, ok := parseAddr(inst.PublicIpAddress); ok {
					r.Addresses = append(r.Addresses, addr)
					r.InternetFacing = true
				}
				col.AddResource(r)
			}
		}
	}
	return nil
}

func (s *EC2Scanner) scanNatGateways(ctx context.Context, col *Collector) error {
	paginator := ec2.NewDescribeNatGatewaysPaginator(s.Client, &ec2.DescribeNatGatewaysInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to describe nat gateways: %w", err)
		}
		for _, nat := range page.NatGateways {
			if nat.State != types.NatGatewayStateAvailable {
				continue
			}
			r := catalog.Resource{
				ID:        aws.ToString(nat.NatGatewayId),
				Kind:      catalog.KindInstance,
				Region:    s.Region,
				NetworkID: aws.ToString(nat.VpcId),
				SubnetID:  aws.ToString(nat.SubnetId),
				Tags:      parseTags(nat.Tags),
			}
			for _, addr := range nat.NatGatewayAddresses {
				if a, ok := parseAddr(addr.PrivateIp); ok {
					r.Addresses = append(r.Addresses, a)
				}
				if a, ok := parseAddr(addr.PublicIp); ok {
					r.Addresses = append(r.Addresses, a)
					r.InternetFacing = true
				}
			}
			col.AddResource(r)
		}
	}
	return nil
}

func (s *EC2Scanner) scanSecurityGroups(ctx context.Context, col *Collector) error {
	paginator := ec2.NewDescribeSecurityGroupsPaginator(s.Client, &ec2.DescribeSecurityGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to describe security groups: %w", err)
		}
		for _, sg := range page.SecurityGroups {
			rs := catalog.RuleSet{
				ID:     aws.ToString(sg.GroupId),
				Name:   aws.ToString(sg.GroupName),
				Region: s.Region,
			}
			for _, perm := range sg.IpPermissions {
				rs.Ingress = append(rs.Ingress, convertPermission(perm))
			}
			for _, perm := range sg.IpPermissionsEgress {
				rs.Egress = append(rs.Egress, convertPermission(perm))
			}
			col.AddRuleSet(rs)
		}
	}
	return nil
}

// convertPermission normalizes one SG rule: protocol numbers become names,
// missing port bounds become the full range.
func convertPermission(perm types.IpPermission) catalog.Permission {
	p := catalog.Permission{
		Protocol: NormalizeProtocol(aws.ToString(perm.IpProtocol)),
	}
	p.PortFrom = int(aws.ToInt32(perm.FromPort))
	p.PortTo = int(aws.ToInt32(perm.ToPort))
	if p.Protocol == "all" || (p.PortFrom == 0 && p.PortTo == 0) {
		p.PortFrom, p.PortTo = 0, 65535
	}

	for _, ipRange := range perm.IpRanges {
		if prefix, err := netip.ParsePrefix(aws.ToString(ipRange.CidrIp)); err == nil {
			p.Peers = append(p.Peers, catalog.CIDRPeer(prefix))
		}
	}
	for _, pair := range perm.UserIdGroupPairs {
		if id := aws.ToString(pair.GroupId); id != "" {
			p.Peers = append(p.Peers, catalog.GroupPeer(id))
		}
	}
	return p
}

// NormalizeProtocol maps AWS protocol identifiers onto canonical names.
// "-1" means any protocol; numeric codes map to their IANA names.
func NormalizeProtocol(proto string) string {
	switch proto {
	case "-1", "all", "":
		return "all"
	case "6", "tcp":
		return "tcp"
	case "17", "udp":
		return "udp"
	case "1", "icmp":
		return "icmp"
	default:
		return proto
	}
}

func parseTags(tags []types.Tag) map[string]string {
	out := make(map[string]string)
	for _, t := range tags {
		if t.Key != nil && t.Value != nil {
			out[*t.Key] = *t.Value
		}
	}
	return out
}

func parseAddr(s *string) (netip.Addr, bool) {
	if s == nil {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(*s)
	return addr, err == nil
}
