package config

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// StorageConfig holds the S3 bucket used for profile photos. Photo upload is
// disabled when Bucket is empty.
type StorageConfig struct {
	Bucket     string
	Region     string
	Endpoint   string
	PresignTTL time.Duration
}

// Enabled reports whether a bucket is configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// AWSConfig loads credentials from the default chain (env, shared config, role).
func (s StorageConfig) AWSConfig(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.Region))
}
