package storage

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/interfaces"
	"github.com/customeros/txwatch/services/storage/aws_client"
)

const (
	ProviderS3 = "s3"
	ProviderR2 = "r2"

	ContentTypeText = "text/plain; charset=utf-8"
)

// NewArchiveStorage builds the body archive, it returns nil when archiving is disabled
func NewArchiveStorage(cfg *config.ArchiveConfig) (interfaces.StorageService, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var (
		client aws_client.S3Client
		err    error
	)
	switch cfg.Provider {
	case ProviderS3:
		client, err = aws_client.NewAwsS3Client(aws_client.S3Config{
			Region:          cfg.AwsRegion,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
		})
	case ProviderR2:
		client, err = aws_client.NewR2Client(aws_client.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
		})
	default:
		return nil, errors.Errorf("unsupported archive provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create archive client")
	}

	return NewStorageService(client, cfg.Bucket), nil
}

// TransactionArchiveKey is where the body of a concluded transaction email is kept
func TransactionArchiveKey(code, mailID string) string {
	return fmt.Sprintf("transactions/%s/%s.txt", code, mailID)
}
