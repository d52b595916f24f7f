package discovery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// ACMClient is the subset of the ACM API the scanner uses.
type ACMClient interface {
	ListCertificates(ctx context.Context, params *acm.ListCertificatesInput, optFns ...func(*acm.Options)) (*acm.ListCertificatesOutput, error)
}

// ACMScanner discovers TLS certificates. Certificates have no network
// placement, so they land in the region's ungrouped bucket.
type ACMScanner struct {
	Client ACMClient
	Region string
}

func NewACMScanner(cfg aws.Config) *ACMScanner {
	return &ACMScanner{Client: acm.NewFromConfig(cfg), Region: cfg.Region}
}

func (s *ACMScanner) Name() string { return "acm" }

func (s *ACMScanner) Scan(ctx context.Context, col *Collector) error {
	paginator := acm.NewListCertificatesPaginator(s.Client, &acm.ListCertificatesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list certificates: %w", err)
		}
		for _, cert := range page.CertificateSummaryList {
			col.AddResource(catalog.Resource{
				ID:     aws.ToString(cert.CertificateArn),
				Kind:   catalog.KindCertificate,
				Region: s.Region,
				Tags:   map[string]string{"Name": aws.ToString(cert.DomainName)},
			})
		}
	}
	return nil
}
