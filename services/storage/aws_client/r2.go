package aws_client

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
)

// R2Config holds configuration specific to Cloudflare R2
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
}

// S3Config holds configuration for AWS S3
type S3Config struct {
	Region          string
	AccessKeyID     string
	AccessKeySecret string
}

// NewR2Client creates an S3Client configured for Cloudflare R2
func NewR2Client(config R2Config) (S3Client, error) {
	return NewS3Client(R2AwsConfig(config))
}

func R2AwsConfig(config R2Config) *aws.Config {
	return &aws.Config{
		Endpoint:    aws.String("https://" + config.AccountID + ".r2.cloudflarestorage.com"),
		Region:      aws.String("auto"), // R2 uses "auto" region
		Credentials: credentials.NewStaticCredentials(config.AccessKeyID, config.AccessKeySecret, ""),
		// R2 does not support virtual-hosted buckets
		S3ForcePathStyle: aws.Bool(true),
	}
}

func NewAwsS3Client(config S3Config) (S3Client, error) {
	awsCfg := &aws.Config{
		Region: aws.String(config.Region),
	}
	// without static keys the default credential chain is used
	if config.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(config.AccessKeyID, config.AccessKeySecret, "")
	}
	return NewS3Client(awsCfg)
}
