//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"

	"github.com/perimetra/vpcmap/pkg/catalog"
	"github.com/perimetra/vpcmap/pkg/discovery"
	"github.com/perimetra/vpcmap/pkg/topology"
)

const localstackImage = "localstack/localstack:3.0.2"

// TestDiscoveryAgainstLocalStack provisions a small VPC in LocalStack, runs
// the EC2 scanner against it, and checks the inventory and the resolved
// connection graph end to end.
func TestDiscoveryAgainstLocalStack(t *testing.T) {
	ctx := context.Background()

	container, err := localstack.Run(ctx, localstackImage)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start localstack: %v", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	if err != nil {
		t.Fatalf("failed to resolve endpoint: %v", err)
	}

	t.Setenv("AWS_ENDPOINT_URL", endpoint)
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_REGION", "us-east-1")

	client, err := discovery.NewClient(ctx, "us-east-1", "", false)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	api := ec2.NewFromConfig(client.Config)

	vpcID := provisionVpc(t, api)
	subnetID := provisionSubnet(t, api, vpcID, "public-web-a")
	sgID := provisionSecurityGroup(t, api, vpcID)
	instanceID := provisionInstance(t, api, subnetID, sgID)

	col := discovery.NewCollector("us-east-1")
	if err := discovery.NewEC2Scanner(client.Config).Scan(ctx, col); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	cat := catalog.Merge([]catalog.Slice{col.Slice()}, catalog.Metadata{Regions: []string{"us-east-1"}})

	if _, ok := cat.Lookup(vpcID); !ok {
		t.Errorf("vpc %s not discovered", vpcID)
	}
	sub, ok := cat.Lookup(subnetID)
	if !ok {
		t.Fatalf("subnet %s not discovered", subnetID)
	}
	if sub.Name() != "public-web-a" {
		t.Errorf("subnet name tag lost: %q", sub.Name())
	}
	inst, ok := cat.Lookup(instanceID)
	if !ok {
		t.Fatalf("instance %s not discovered", instanceID)
	}
	if inst.SubnetID != subnetID || inst.NetworkID != vpcID {
		t.Errorf("instance placement wrong: %+v", inst)
	}

	rs, ok := cat.RuleSet("us-east-1", sgID)
	if !ok {
		t.Fatalf("rule set %s not discovered", sgID)
	}
	if len(rs.Ingress) == 0 {
		t.Fatal("ingress rules missing")
	}

	// Resolution over a real LocalStack inventory must complete cleanly.
	edges, diag := topology.Resolve(cat)
	conns := topology.Deduplicate(edges)
	t.Logf("resolved %d edges, %d connections, %d dangling refs",
		len(edges), len(conns), diag.DanglingRefs)
}

func provisionVpc(t *testing.T, api *ec2.Client) string {
	t.Helper()
	out, err := api.CreateVpc(context.TODO(), &ec2.CreateVpcInput{
		CidrBlock: aws.String("10.0.0.0/16"),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeVpc,
			Tags:         []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String("e2e-core")}},
		}},
	})
	if err != nil {
		t.Fatalf("failed to create vpc: %v", err)
	}
	return *out.Vpc.VpcId
}

func provisionSubnet(t *testing.T, api *ec2.Client, vpcID, name string) string {
	t.Helper()
	out, err := api.CreateSubnet(context.TODO(), &ec2.CreateSubnetInput{
		VpcId:     aws.String(vpcID),
		CidrBlock: aws.String("10.0.1.0/24"),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeSubnet,
			Tags:         []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
		}},
	})
	if err != nil {
		t.Fatalf("failed to create subnet: %v", err)
	}
	return *out.Subnet.SubnetId
}

func provisionSecurityGroup(t *testing.T, api *ec2.Client, vpcID string) string {
	t.Helper()
	out, err := api.CreateSecurityGroup(context.TODO(), &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String("e2e-web"),
		Description: aws.String("e2e web tier"),
		VpcId:       aws.String(vpcID),
	})
	if err != nil {
		t.Fatalf("failed to create security group: %v", err)
	}
	_, err = api.AuthorizeSecurityGroupIngress(context.TODO(), &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId: out.GroupId,
		IpPermissions: []ec2types.IpPermission{{
			IpProtocol: aws.String("tcp"),
			FromPort:   aws.Int32(443),
			ToPort:     aws.Int32(443),
			IpRanges:   []ec2types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}},
		}},
	})
	if err != nil {
		t.Fatalf("failed to authorize ingress: %v", err)
	}
	return *out.GroupId
}

func provisionInstance(t *testing.T, api *ec2.Client, subnetID, sgID string) string {
	t.Helper()
	out, err := api.RunInstances(context.TODO(), &ec2.RunInstancesInput{
		ImageId:          aws.String("ami-12345678"),
		InstanceType:     ec2types.InstanceTypeT3Micro,
		MinCount:         aws.Int32(1),
		MaxCount:         aws.Int32(1),
		SubnetId:         aws.String(subnetID),
		SecurityGroupIds: []string{sgID},
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags:         []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String("e2e-web-1")}},
		}},
	})
	if err != nil {
		t.Fatalf("failed to run instance: %v", err)
	}
	return *out.Instances[0].InstanceId
}
