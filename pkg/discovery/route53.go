package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// GlobalRegion marks resources without a regional home (DNS zones).
const GlobalRegion = "global"

// Route53Client is the subset of the Route 53 API the scanner uses.
type Route53Client interface {
	ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error)
}

// Route53Scanner discovers hosted zones. Route 53 is a global service, so
// the scanner runs once regardless of the region list.
type Route53Scanner struct {
	Client Route53Client
}

func NewRoute53Scanner(cfg aws.Config) *Route53Scanner {
	return &Route53Scanner{Client: route53.NewFromConfig(cfg)}
}

func (s *Route53Scanner) Name() string { return "route53" }

func (s *Route53Scanner) Scan(ctx context.Context, col *Collector) error {
	paginator := route53.NewListHostedZonesPaginator(s.Client, &route53.ListHostedZonesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list hosted zones: %w", err)
		}
		for _, zone := range page.HostedZones {
			name := strings.TrimSuffix(aws.ToString(zone.Name), ".")
			col.AddResource(catalog.Resource{
				// Zone IDs come back as "/hostedzone/Z123"; keep the bare id.
				ID:     strings.TrimPrefix(aws.ToString(zone.Id), "/hostedzone/"),
				Kind:   catalog.KindZone,
				Region: GlobalRegion,
				Tags:   map[string]string{"Name": name},
			})
		}
	}
	return nil
}
