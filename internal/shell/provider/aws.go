package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smithy "github.com/aws/smithy-go"

	"github.com/artpar/appdesc/internal/core/app"
	"github.com/artpar/appdesc/internal/core/resource"
)

// AWSProvider reads cloud secrets from Secrets Manager and resolves the
// network settings of ECS services through EC2.
type AWSProvider struct {
	region  string
	secrets SecretsAPI
	network NetworkAPI
	logger  *slog.Logger
}

// NewAWSProvider creates a provider for one region using static credentials.
func NewAWSProvider(creds Credentials, logger *slog.Logger) *AWSProvider {
	static := credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")
	return newAWSProvider(
		creds.Region,
		secretsmanager.New(secretsmanager.Options{Region: creds.Region, Credentials: static}),
		ec2.New(ec2.Options{Region: creds.Region, Credentials: static}),
		logger,
	)
}

func newAWSProvider(region string, secrets SecretsAPI, network NetworkAPI, logger *slog.Logger) *AWSProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &AWSProvider{
		region:  region,
		secrets: secrets,
		network: network,
		logger:  logger.With("provider", "aws", "region", region),
	}
}

// =============================================================================
// Secrets
// =============================================================================

// SecretValues reads a secret holding a JSON object and returns its entries.
// Numbers and booleans are kept as written; nested values are rejected.
func (p *AWSProvider) SecretValues(ctx context.Context, id string) (map[string]string, error) {
	out, err := p.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return nil, fmt.Errorf("secret %s: %w", id, ErrSecretNotFound)
		}
		return nil, fmt.Errorf("failed to read secret %s: %w", id, err)
	}

	raw := out.SecretBinary
	if out.SecretString != nil {
		raw = []byte(aws.ToString(out.SecretString))
	}
	values, err := parseSecretObject(raw)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", id, err)
	}

	p.logger.Debug("read secret", "secret", id, "keys", len(values))
	return values, nil
}

func parseSecretObject(raw []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrSecretFormat
	}

	values := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			values[k] = val
		case json.Number:
			values[k] = val.String()
		case bool:
			values[k] = fmt.Sprint(val)
		case nil:
			values[k] = ""
		default:
			return nil, fmt.Errorf("key %s: %w", k, ErrSecretFormat)
		}
	}
	return values, nil
}

// =============================================================================
// Network
// =============================================================================

// ECSBuildContext resolves the subnets and security groups of cfg into IDs
// and returns the build context of an ECS service. Entries that already are
// IDs are kept; others are looked up by Name tag or group name.
func (p *AWSProvider) ECSBuildContext(ctx context.Context, cfg app.ECSConfig, defaultCluster string) (*resource.ECSBuildContext, error) {
	subnets, err := p.subnetIDs(ctx, cfg.Subnets)
	if err != nil {
		return nil, err
	}
	groups, err := p.securityGroupIDs(ctx, cfg.SecurityGroups)
	if err != nil {
		return nil, err
	}

	cluster := cfg.Cluster
	if cluster == "" {
		cluster = defaultCluster
	}
	return &resource.ECSBuildContext{
		Cluster:          cluster,
		Region:           p.region,
		Subnets:          subnets,
		SecurityGroupIDs: groups,
	}, nil
}

func (p *AWSProvider) subnetIDs(ctx context.Context, refs []string) ([]string, error) {
	names := namesToResolve(refs, "subnet-")
	resolved := make(map[string]string, len(names))
	if len(names) > 0 {
		out, err := p.network.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
			Filters: []ec2types.Filter{{Name: aws.String("tag:Name"), Values: names}},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe subnets: %w", err)
		}
		for _, s := range out.Subnets {
			for _, tag := range s.Tags {
				if aws.ToString(tag.Key) == "Name" {
					resolved[aws.ToString(tag.Value)] = aws.ToString(s.SubnetId)
				}
			}
		}
	}
	return p.mapRefs("subnet", refs, "subnet-", resolved)
}

func (p *AWSProvider) securityGroupIDs(ctx context.Context, refs []string) ([]string, error) {
	names := namesToResolve(refs, "sg-")
	resolved := make(map[string]string, len(names))
	if len(names) > 0 {
		out, err := p.network.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
			Filters: []ec2types.Filter{{Name: aws.String("group-name"), Values: names}},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe security groups: %w", err)
		}
		for _, g := range out.SecurityGroups {
			resolved[aws.ToString(g.GroupName)] = aws.ToString(g.GroupId)
		}
	}
	return p.mapRefs("security group", refs, "sg-", resolved)
}

// mapRefs replaces names by their IDs, keeping the input order.
func (p *AWSProvider) mapRefs(kind string, refs []string, idPrefix string, resolved map[string]string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(refs))
	var missing []string
	for _, ref := range refs {
		if strings.HasPrefix(ref, idPrefix) {
			ids = append(ids, ref)
			continue
		}
		id, ok := resolved[ref]
		if !ok {
			missing = append(missing, ref)
			continue
		}
		p.logger.Debug("resolved network name", "kind", kind, "name", ref, "id", id)
		ids = append(ids, id)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s %s: %w", kind, strings.Join(missing, ", "), ErrNetworkNotFound)
	}
	return ids, nil
}

func namesToResolve(refs []string, idPrefix string) []string {
	var names []string
	for _, ref := range refs {
		if !strings.HasPrefix(ref, idPrefix) {
			names = append(names, ref)
		}
	}
	return names
}
