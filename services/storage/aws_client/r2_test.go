package aws_client

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/stretchr/testify/assert"
)

func TestR2AwsConfig(t *testing.T) {
	cfg := R2AwsConfig(R2Config{AccountID: "acc123", AccessKeyID: "id", AccessKeySecret: "secret"})

	assert.Equal(t, "https://acc123.r2.cloudflarestorage.com", aws.StringValue(cfg.Endpoint))
	assert.Equal(t, "auto", aws.StringValue(cfg.Region))
	assert.True(t, aws.BoolValue(cfg.S3ForcePathStyle))

	creds, err := cfg.Credentials.Get()
	assert.NoError(t, err)
	assert.Equal(t, "id", creds.AccessKeyID)
}
