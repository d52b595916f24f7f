package discovery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// RDSClient is the subset of the RDS API the scanner uses.
type RDSClient interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// RDSScanner discovers database instances. An instance's subnet group names
// several subnets; the first one anchors it in the hierarchy.
type RDSScanner struct {
	Client RDSClient
	Region string
}

func NewRDSScanner(cfg aws.Config) *RDSScanner {
	return &RDSScanner{Client: rds.NewFromConfig(cfg), Region: cfg.Region}
}

func (s *RDSScanner) Name() string { return "rds" }

func (s *RDSScanner) Scan(ctx context.Context, col *Collector) error {
	paginator := rds.NewDescribeDBInstancesPaginator(s.Client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to describe db instances: %w", err)
		}
		for _, db := range page.DBInstances {
			r := catalog.Resource{
				ID:             aws.ToString(db.DBInstanceIdentifier),
				Kind:           catalog.KindDatabase,
				Region:         s.Region,
				InternetFacing: aws.ToBool(db.PubliclyAccessible),
			}
			if db.DBSubnetGroup != nil {
				r.NetworkID = aws.ToString(db.DBSubnetGroup.VpcId)
				if len(db.DBSubnetGroup.Subnets) > 0 {
					r.SubnetID = aws.ToString(db.DBSubnetGroup.Subnets[0].SubnetIdentifier)
				}
			}
			for _, sg := range db.VpcSecurityGroups {
				if id := aws.ToString(sg.VpcSecurityGroupId); id != "" {
					r.RuleSets = append(r.RuleSets, id)
				}
			}
			col.AddResource(r)
		}
	}
	return nil
}
