// Package provider implements the cloud clients used while building and
// applying resource groups.
// This is part of the Imperative Shell - handles I/O with cloud APIs.
package provider

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var (
	// ErrSecretNotFound is returned when the secret store has no such entry.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretFormat is returned when a secret is not a flat JSON object.
	ErrSecretFormat = errors.New("secret is not a JSON object of scalars")

	// ErrNetworkNotFound is returned when a subnet or security group name
	// does not resolve to an ID.
	ErrNetworkNotFound = errors.New("network resource not found")
)

// Credentials are static cloud API credentials.
type Credentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SecretsAPI is the part of the Secrets Manager client the provider uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NetworkAPI is the part of the EC2 client the provider uses.
type NetworkAPI interface {
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
}
