// Package lookup resolves the network hosting the database.
//
// The default VPC and its public subnets are read from the EC2 API once and
// cached in a context file, so later evaluations are offline and
// deterministic.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/ubuntu/decorate"
	"go.uber.org/zap"
)

var (
	// ErrNoDefaultVPC is returned when the account has no default VPC in the region.
	ErrNoDefaultVPC = errors.New("no default VPC")

	// ErrNoPublicSubnets is returned when the default VPC has no subnet that
	// maps public IPs on launch.
	ErrNoPublicSubnets = errors.New("no public subnets")
)

// EC2API is the subset of the EC2 client used by lookups.
type EC2API interface {
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
}

// Network is a resolved VPC and the subnets hosting the database.
type Network struct {
	VpcID             string   `json:"vpcId"`
	VpcCIDR           string   `json:"vpcCidrBlock"`
	SubnetIDs         []string `json:"subnetIds"`
	AvailabilityZones []string `json:"availabilityZones"`
}

// DefaultVPCKey is the cache key of the default VPC lookup in a region.
func DefaultVPCKey(region string) string {
	return fmt.Sprintf("vpc-provider:filter.isDefault=true:region=%s:subnetType=public", region)
}

// Resolver resolves the default VPC, reading the cache first.
type Resolver struct {
	cache  *Cache
	region string
	client func(ctx context.Context) (EC2API, error)
	logger *zap.Logger
}

// NewResolver returns a resolver for region. client is only called on a
// cache miss.
func NewResolver(cache *Cache, region string, client func(ctx context.Context) (EC2API, error), logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cache: cache, region: region, client: client, logger: logger}
}

// DefaultVPC returns the default VPC of the region and its public subnets.
func (r *Resolver) DefaultVPC(ctx context.Context) (network Network, err error) {
	key := DefaultVPCKey(r.region)
	defer decorate.OnError(&err, "lookup %s failed", key)

	found, err := r.cache.Get(key, &network)
	if err != nil {
		return Network{}, err
	}
	if found {
		return network, nil
	}

	r.logger.Info("Context cache miss, querying EC2", zap.String("key", key))
	client, err := r.client(ctx)
	if err != nil {
		return Network{}, err
	}
	network, err = DefaultVPC(ctx, client)
	if err != nil {
		return Network{}, err
	}
	if err := r.cache.Put(key, network); err != nil {
		return Network{}, err
	}
	return network, nil
}

// DefaultVPC queries EC2 for the default VPC and its public subnets,
// ordered by availability zone then subnet ID.
func DefaultVPC(ctx context.Context, client EC2API) (Network, error) {
	vpcs, err := client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []types.Filter{{Name: aws.String("isDefault"), Values: []string{"true"}}},
	})
	if err != nil {
		return Network{}, fmt.Errorf("describing VPCs: %w", err)
	}
	if len(vpcs.Vpcs) == 0 {
		return Network{}, ErrNoDefaultVPC
	}
	vpc := vpcs.Vpcs[0]

	var subnets []types.Subnet
	paginator := ec2.NewDescribeSubnetsPaginator(client, &ec2.DescribeSubnetsInput{
		Filters: []types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{aws.ToString(vpc.VpcId)}},
			{Name: aws.String("map-public-ip-on-launch"), Values: []string{"true"}},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return Network{}, fmt.Errorf("describing subnets: %w", err)
		}
		subnets = append(subnets, page.Subnets...)
	}
	if len(subnets) == 0 {
		return Network{}, fmt.Errorf("%w in %s", ErrNoPublicSubnets, aws.ToString(vpc.VpcId))
	}

	sort.Slice(subnets, func(i, j int) bool {
		ai, aj := aws.ToString(subnets[i].AvailabilityZone), aws.ToString(subnets[j].AvailabilityZone)
		if ai != aj {
			return ai < aj
		}
		return aws.ToString(subnets[i].SubnetId) < aws.ToString(subnets[j].SubnetId)
	})

	network := Network{
		VpcID:   aws.ToString(vpc.VpcId),
		VpcCIDR: aws.ToString(vpc.CidrBlock),
	}
	for _, s := range subnets {
		network.SubnetIDs = append(network.SubnetIDs, aws.ToString(s.SubnetId))
		network.AvailabilityZones = append(network.AvailabilityZones, aws.ToString(s.AvailabilityZone))
	}
	return network, nil
}

// LoadAWSConfig loads the shared AWS configuration, overriding the region
// when one is given.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS configuration: %w", err)
	}
	if cfg.Region == "" {
		return aws.Config{}, errors.New("no AWS region configured; set stack.region or AWS_REGION")
	}
	return cfg, nil
}

// EC2Client returns a client factory backed by the shared AWS configuration.
func EC2Client(cfg aws.Config) func(ctx context.Context) (EC2API, error) {
	return func(context.Context) (EC2API, error) {
		return ec2.NewFromConfig(cfg), nil
	}
}
