package storage

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/txwatch/config"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) Upload(ctx context.Context, input s3manager.UploadInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *mockS3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockS3Client) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func TestObjectStorageService_Upload(t *testing.T) {
	client := new(mockS3Client)
	client.On("Upload", mock.Anything, mock.MatchedBy(func(input s3manager.UploadInput) bool {
		body, err := io.ReadAll(input.Body)
		return err == nil &&
			aws.StringValue(input.Bucket) == "archive" &&
			aws.StringValue(input.Key) == "transactions/987654/m1.txt" &&
			aws.StringValue(input.ContentType) == ContentTypeText &&
			string(body) == "Código da Transação: 987654"
	})).Return(nil)

	service := NewStorageService(client, "archive")
	err := service.Upload(context.Background(), TransactionArchiveKey("987654", "m1"), []byte("Código da Transação: 987654"), ContentTypeText)

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestObjectStorageService_DownloadAndDelete(t *testing.T) {
	client := new(mockS3Client)
	client.On("Download", mock.Anything, "archive", "k").Return([]byte("body"), nil)
	client.On("Delete", mock.Anything, "archive", "k").Return(nil)

	service := NewStorageService(client, "archive")

	data, err := service.Download(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))
	assert.NoError(t, service.Delete(context.Background(), "k"))
	client.AssertExpectations(t)
}

func TestNewArchiveStorage(t *testing.T) {
	disabled, err := NewArchiveStorage(&config.ArchiveConfig{})
	require.NoError(t, err)
	assert.Nil(t, disabled)

	_, err = NewArchiveStorage(&config.ArchiveConfig{Provider: "gcs"})
	assert.Error(t, err)

	r2, err := NewArchiveStorage(&config.ArchiveConfig{Provider: ProviderR2, R2AccountID: "acc", Bucket: "b", AccessKeyID: "id", AccessKeySecret: "s"})
	require.NoError(t, err)
	assert.NotNil(t, r2)
}

func TestTransactionArchiveKey(t *testing.T) {
	assert.Equal(t, "transactions/42/abc.txt", TransactionArchiveKey("42", "abc"))
}
