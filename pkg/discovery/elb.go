package discovery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// ELBClient is the subset of the ELBv2 API the scanner uses.
type ELBClient interface {
	DescribeLoadBalancers(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	DescribeTags(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error)
}

// ELBScanner discovers application and network load balancers. A load
// balancer spans subnets, so it sits at the network level rather than in a
// single subnet.
type ELBScanner struct {
	Client ELBClient
	Region string
}

func NewELBScanner(cfg aws.Config) *ELBScanner {
	return &ELBScanner{Client: elbv2.NewFromConfig(cfg), Region: cfg.Region}
}

func (s *ELBScanner) Name() string { return "elb" }

func (s *ELBScanner) Scan(ctx context.Context, col *Collector) error {
	paginator := elbv2.NewDescribeLoadBalancersPaginator(s.Client, &elbv2.DescribeLoadBalancersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to describe load balancers: %w", err)
		}
		for _, lb := range page.LoadBalancers {
			r := catalog.Resource{
				ID:             aws.ToString(lb.LoadBalancerArn),
				Kind:           catalog.KindLoadBalancer,
				Region:         s.Region,
				NetworkID:      aws.ToString(lb.VpcId),
				Tags:           map[string]string{"Name": aws.ToString(lb.LoadBalancerName)},
				InternetFacing: lb.Scheme == elbv2types.LoadBalancerSchemeEnumInternetFacing,
			}
			r.RuleSets = append(r.RuleSets, lb.SecurityGroups...)
			col.AddResource(r)
		}
	}
	return nil
}
