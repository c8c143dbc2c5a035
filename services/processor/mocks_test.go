package processor

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/txwatch/dto"
	"github.com/customeros/txwatch/internal/models"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) SetEmailUser(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) GetEmailList(ctx context.Context) ([]models.EmailSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EmailSummary), args.Error(1)
}

func (m *mockProvider) FetchEmail(ctx context.Context, mailID string) (string, bool) {
	args := m.Called(ctx, mailID)
	return args.String(0), args.Bool(1)
}

func (m *mockProvider) DeleteEmail(ctx context.Context, mailID string) bool {
	args := m.Called(ctx, mailID)
	return args.Bool(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyCompletion(ctx context.Context, code string) bool {
	args := m.Called(ctx, code)
	return args.Bool(0)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *mockStorage) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	return nil, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishTransactionConcluded(ctx context.Context, event dto.TransactionConcluded) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}
