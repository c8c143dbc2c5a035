package processor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/dto"
	txerrors "github.com/customeros/txwatch/internal/errors"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/models"
	"github.com/customeros/txwatch/internal/repository"
)

const testAddress = "nhobzkpo@guerrillamailblock.com"

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true, LogLevel: "debug"})
	appLogger.InitLogger()
	return appLogger
}

func newTestProcessor(cfg *config.ProcessorConfig, deps Dependencies) *processor {
	if cfg == nil {
		cfg = &config.ProcessorConfig{Concurrency: 4}
	}
	return NewProcessor(testLogger(), cfg, "nhobzkpo", deps).(*processor)
}

func codeBody(code string) string {
	return "Pagamento confirmado\nCódigo da Transação: " + code
}

func TestRunCycle_EmptyMailbox(t *testing.T) {
	provider := new(mockProvider)
	notifier := new(mockNotifier)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{}, nil)

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: notifier})
	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Listed)
	assert.Equal(t, testAddress, report.Mailbox)
	provider.AssertNotCalled(t, "FetchEmail", mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "DeleteEmail", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "NotifyCompletion", mock.Anything, mock.Anything)
}

func TestRunCycle_SetEmailUserFailureAbortsCycle(t *testing.T) {
	provider := new(mockProvider)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return("", errors.Wrap(txerrors.ErrProvider, "boom"))

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: new(mockNotifier)})
	report, err := p.RunCycle(context.Background())

	require.Error(t, err)
	assert.True(t, txerrors.IsProviderError(err))
	assert.NotEmpty(t, report.Error)
	provider.AssertNotCalled(t, "GetEmailList", mock.Anything)

	status := p.Status()
	assert.Equal(t, int64(1), status.Cycles)
	require.NotNil(t, status.LastReport)
	assert.NotEmpty(t, status.LastReport.Error)
}

func TestRunCycle_ListFailureAbortsCycle(t *testing.T) {
	provider := new(mockProvider)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return(nil, errors.Wrap(txerrors.ErrProvider, "503"))

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: new(mockNotifier)})
	_, err := p.RunCycle(context.Background())

	require.Error(t, err)
	provider.AssertNotCalled(t, "FetchEmail", mock.Anything, mock.Anything)
}

func TestRunCycle_FetchFailuresOnlySkipThoseEmails(t *testing.T) {
	provider := new(mockProvider)
	notifier := new(mockNotifier)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{
		{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"},
	}, nil)
	provider.On("FetchEmail", mock.Anything, "1").Return(codeBody("111"), true)
	provider.On("FetchEmail", mock.Anything, "2").Return("", false)
	provider.On("FetchEmail", mock.Anything, "3").Return(codeBody("333"), true)
	provider.On("FetchEmail", mock.Anything, "4").Return("", false)
	notifier.On("NotifyCompletion", mock.Anything, "111").Return(true)
	notifier.On("NotifyCompletion", mock.Anything, "333").Return(true)
	provider.On("DeleteEmail", mock.Anything, "1").Return(true)
	provider.On("DeleteEmail", mock.Anything, "3").Return(true)

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: notifier})
	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, report.Listed)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 2, report.Extracted)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, 2, report.Skipped)
	provider.AssertNotCalled(t, "DeleteEmail", mock.Anything, "2")
	provider.AssertNotCalled(t, "DeleteEmail", mock.Anything, "4")
	notifier.AssertNumberOfCalls(t, "NotifyCompletion", 2)
}

func TestRunCycle_NoCodeIsLeftInMailbox(t *testing.T) {
	provider := new(mockProvider)
	notifier := new(mockNotifier)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{{ID: "1", Subject: "Newsletter"}}, nil)
	provider.On("FetchEmail", mock.Anything, "1").Return("Promoção da semana", true)

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: notifier})
	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 0, report.Extracted)
	assert.Equal(t, 1, report.Skipped)
	notifier.AssertNotCalled(t, "NotifyCompletion", mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "DeleteEmail", mock.Anything, mock.Anything)
}

func TestRunCycle_DeletedOnlyWhenNotified(t *testing.T) {
	provider := new(mockProvider)
	notifier := new(mockNotifier)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{{ID: "ok"}, {ID: "fail"}}, nil)
	provider.On("FetchEmail", mock.Anything, "ok").Return(codeBody("1"), true)
	provider.On("FetchEmail", mock.Anything, "fail").Return(codeBody("2"), true)
	notifier.On("NotifyCompletion", mock.Anything, "1").Return(true)
	notifier.On("NotifyCompletion", mock.Anything, "2").Return(false)
	provider.On("DeleteEmail", mock.Anything, "ok").Return(true)

	attempts := repository.NewMemoryTransactionAttemptRepository()
	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: notifier, Attempts: attempts})
	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Skipped)
	provider.AssertNotCalled(t, "DeleteEmail", mock.Anything, "fail")

	failed, err := attempts.GetByMailID(context.Background(), testAddress, "fail")
	require.NoError(t, err)
	require.NotNil(t, failed)
	assert.Equal(t, 1, failed.Attempts)
	assert.Nil(t, failed.ConcludedAt)

	concluded, err := attempts.GetByMailID(context.Background(), testAddress, "ok")
	require.NoError(t, err)
	require.NotNil(t, concluded)
	assert.NotNil(t, concluded.ConcludedAt)
}

func TestRunCycle_DeleteFailureIsSkipped(t *testing.T) {
	provider := new(mockProvider)
	notifier := new(mockNotifier)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{{ID: "1"}}, nil)
	provider.On("FetchEmail", mock.Anything, "1").Return(codeBody("9"), true)
	notifier.On("NotifyCompletion", mock.Anything, "9").Return(true)
	provider.On("DeleteEmail", mock.Anything, "1").Return(false)
	publisher := new(mockPublisher)

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: notifier, Publisher: publisher})
	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, 0, report.Deleted)
	assert.Equal(t, 1, report.Skipped)
	publisher.AssertNotCalled(t, "PublishTransactionConcluded", mock.Anything, mock.Anything)
}

func TestRunCycle_AttemptLimit(t *testing.T) {
	provider := new(mockProvider)
	notifier := new(mockNotifier)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{{ID: "1"}}, nil)
	provider.On("FetchEmail", mock.Anything, "1").Return(codeBody("5"), true)
	notifier.On("NotifyCompletion", mock.Anything, "5").Return(false)

	p := newTestProcessor(&config.ProcessorConfig{Concurrency: 1, MaxNotifyAttempts: 2}, Dependencies{
		Provider: provider,
		Notifier: notifier,
		Attempts: repository.NewMemoryTransactionAttemptRepository(),
	})

	for i := 0; i < 3; i++ {
		_, err := p.RunCycle(context.Background())
		require.NoError(t, err)
	}

	notifier.AssertNumberOfCalls(t, "NotifyCompletion", 2)
	provider.AssertNotCalled(t, "DeleteEmail", mock.Anything, mock.Anything)
	assert.Equal(t, int64(3), p.Status().Cycles)
}

func TestRunCycle_ArchivesAndPublishes(t *testing.T) {
	provider := new(mockProvider)
	notifier := new(mockNotifier)
	archive := new(mockStorage)
	publisher := new(mockPublisher)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{{ID: "m1", Subject: "Pix", From: "banco@example.com"}}, nil)
	provider.On("FetchEmail", mock.Anything, "m1").Return(codeBody("987654"), true)
	notifier.On("NotifyCompletion", mock.Anything, "987654").Return(true)
	provider.On("DeleteEmail", mock.Anything, "m1").Return(true)
	archive.On("Upload", mock.Anything, "transactions/987654/m1.txt", []byte(codeBody("987654")), mock.Anything).Return(nil)
	publisher.On("PublishTransactionConcluded", mock.Anything, mock.MatchedBy(func(event dto.TransactionConcluded) bool {
		return event.Code == "987654" &&
			event.MailID == "m1" &&
			event.Mailbox == testAddress &&
			event.From == "banco@example.com" &&
			event.ArchiveKey == "transactions/987654/m1.txt" &&
			event.CycleId != ""
	})).Return(nil)

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: notifier, Archive: archive, Publisher: publisher})
	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	archive.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRunCycle_ArchiveAndPublishFailuresDoNotBlockDelete(t *testing.T) {
	provider := new(mockProvider)
	notifier := new(mockNotifier)
	archive := new(mockStorage)
	publisher := new(mockPublisher)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{{ID: "m1"}}, nil)
	provider.On("FetchEmail", mock.Anything, "m1").Return(codeBody("1"), true)
	notifier.On("NotifyCompletion", mock.Anything, "1").Return(true)
	provider.On("DeleteEmail", mock.Anything, "m1").Return(true)
	archive.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket missing"))
	publisher.On("PublishTransactionConcluded", mock.Anything, mock.MatchedBy(func(event dto.TransactionConcluded) bool {
		return event.ArchiveKey == ""
	})).Return(errors.New("broker down"))

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: notifier, Archive: archive, Publisher: publisher})
	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	provider.AssertCalled(t, "DeleteEmail", mock.Anything, "m1")
}

func TestRunCycle_PanicIsolatedToOneEmail(t *testing.T) {
	provider := new(mockProvider)
	notifier := new(mockNotifier)
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{{ID: "bad"}, {ID: "good"}}, nil)
	provider.On("FetchEmail", mock.Anything, "bad").Run(func(args mock.Arguments) {
		panic("decoder exploded")
	}).Return("", false)
	provider.On("FetchEmail", mock.Anything, "good").Return(codeBody("2"), true)
	notifier.On("NotifyCompletion", mock.Anything, "2").Return(true)
	provider.On("DeleteEmail", mock.Anything, "good").Return(true)

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: notifier})
	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Skipped)
}

func TestRunCycle_OverlappingCycleIsRejected(t *testing.T) {
	provider := new(mockProvider)
	started := make(chan struct{})
	release := make(chan struct{})
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Run(func(args mock.Arguments) {
		close(started)
		<-release
	}).Return(testAddress, nil).Once()
	provider.On("GetEmailList", mock.Anything).Return([]models.EmailSummary{}, nil)

	p := newTestProcessor(nil, Dependencies{Provider: provider, Notifier: new(mockNotifier)})

	done := make(chan error, 1)
	go func() {
		_, err := p.RunCycle(context.Background())
		done <- err
	}()
	<-started

	assert.True(t, p.Status().Running)
	_, err := p.RunCycle(context.Background())
	assert.ErrorIs(t, err, txerrors.ErrCycleInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, p.Status().Running)
	provider.AssertNumberOfCalls(t, "SetEmailUser", 1)
}

func TestRunCycle_ConcurrencyLimit(t *testing.T) {
	const limit = 3
	provider := new(mockProvider)
	emails := make([]models.EmailSummary, 12)
	for i := range emails {
		emails[i] = models.EmailSummary{ID: string(rune('a' + i))}
	}
	provider.On("SetEmailUser", mock.Anything, "nhobzkpo").Return(testAddress, nil)
	provider.On("GetEmailList", mock.Anything).Return(emails, nil)

	var inFlight, maxInFlight atomic.Int32
	provider.On("FetchEmail", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		current := inFlight.Add(1)
		for {
			seen := maxInFlight.Load()
			if current <= seen || maxInFlight.CompareAndSwap(seen, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	}).Return("", false)

	p := newTestProcessor(&config.ProcessorConfig{Concurrency: limit}, Dependencies{Provider: provider, Notifier: new(mockNotifier)})
	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 12, report.Skipped)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(limit))
	assert.Greater(t, maxInFlight.Load(), int32(1))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "a b c", excerpt("  a\n b \t c "))
	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	assert.Len(t, []rune(excerpt(long)), excerptLength+3)
}
