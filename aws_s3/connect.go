package aws_s3

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds the settings needed to reach an S3-compatible endpoint
// (AWS proper, or e.g. a minio server).
type Config struct {
	// "http://127.0.0.1:9000"
	HostEndpointUrl string
	// "us-east-1"
	Region    string
	AccessKey string
	SecretKey string
	// UsePathStyle addresses buckets as path segments instead of
	// subdomains; required by most non-AWS endpoints.
	UsePathStyle bool
	// Credentials overrides the static AccessKey/SecretKey pair, e.g. with
	// a role-assumption provider built from the factory's nested
	// sts_assume_role option group.
	Credentials aws.CredentialsProvider
}

// Connect builds an S3 client for the configured endpoint.
func Connect(config Config) *s3.Client {
	provider := config.Credentials
	if provider == nil {
		provider = credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")
	}
	client := s3.NewFromConfig(aws.Config{Region: config.Region}, func(o *s3.Options) {
		if config.HostEndpointUrl != "" {
			o.BaseEndpoint = aws.String(config.HostEndpointUrl)
		}
		o.Credentials = provider
		o.UsePathStyle = config.UsePathStyle
	})
	return client
}
