package provider

import (
	"errors"
)

// =============================================================================
// Validation (Pure - no I/O)
// =============================================================================

var (
	ErrAWSRegionRequired    = errors.New("AWS region is required")
	ErrAWSAccessKeyRequired = errors.New("AWS access key ID is required")
	ErrAWSSecretKeyRequired = errors.New("AWS secret access key is required")
	ErrInvalidTaskSize      = errors.New("invalid Fargate task size")
)

// AWSCredentials represents AWS access credentials.
type AWSCredentials struct {
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// ValidateAWSCredentials validates AWS credential fields.
func ValidateAWSCredentials(creds AWSCredentials) error {
	if creds.Region == "" {
		return ErrAWSRegionRequired
	}
	if creds.AccessKeyID == "" {
		return ErrAWSAccessKeyRequired
	}
	if creds.SecretAccessKey == "" {
		return ErrAWSSecretKeyRequired
	}
	return nil
}
