package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/dto"
	"github.com/customeros/txwatch/interfaces"
	"github.com/customeros/txwatch/internal/enum"
	txerrors "github.com/customeros/txwatch/internal/errors"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/models"
	"github.com/customeros/txwatch/internal/tracing"
	"github.com/customeros/txwatch/internal/utils"
	"github.com/customeros/txwatch/services/storage"
)

const excerptLength = 80

// Dependencies are the collaborators of the processor, Archive and Publisher are optional
type Dependencies struct {
	Provider  interfaces.MailProvider
	Notifier  interfaces.TransactionNotifier
	Attempts  interfaces.TransactionAttemptRepository
	Archive   interfaces.StorageService
	Publisher interfaces.EventPublisher
}

type processor struct {
	log         logger.Logger
	cfg         *config.ProcessorConfig
	mailboxUser string
	deps        Dependencies

	cycleLock sync.Mutex
	running   atomic.Bool
	cycles    atomic.Int64

	statusMu   sync.RWMutex
	lastReport *dto.CycleReport
}

func NewProcessor(log logger.Logger, cfg *config.ProcessorConfig, mailboxUser string, deps Dependencies) interfaces.Processor {
	return &processor{
		log:         log,
		cfg:         cfg,
		mailboxUser: mailboxUser,
		deps:        deps,
	}
}

// cycleCounters are shared by the email pipelines of one cycle
type cycleCounters struct {
	fetched   atomic.Int32
	extracted atomic.Int32
	notified  atomic.Int32
	deleted   atomic.Int32
	skipped   atomic.Int32
}

// RunCycle polls the mailbox once. Only one cycle runs at a time, an overlapping call
// returns ErrCycleInProgress without touching the provider.
func (p *processor) RunCycle(ctx context.Context) (*dto.CycleReport, error) {
	if !p.cycleLock.TryLock() {
		return nil, txerrors.ErrCycleInProgress
	}
	defer p.cycleLock.Unlock()
	p.running.Store(true)
	defer p.running.Store(false)

	cycleId := utils.GenerateNanoIDWithPrefix("cycl", 12)
	ctx = utils.WithCycle(ctx, cycleId, p.mailboxUser)

	span, ctx := opentracing.StartSpanFromContext(ctx, "Processor.RunCycle")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	report := &dto.CycleReport{
		CycleId:   cycleId,
		StartedAt: utils.Now(),
	}
	defer func() {
		report.FinishedAt = utils.Now()
		p.cycles.Add(1)
		p.storeReport(report)
	}()

	log := p.log.With("cycleId", cycleId)

	address, err := p.deps.Provider.SetEmailUser(ctx, p.mailboxUser)
	if err != nil {
		return p.abortCycle(span, log, report, errors.Wrap(err, "set email user"))
	}
	report.Mailbox = address
	ctx = utils.WithCycle(ctx, cycleId, address)
	span.SetTag(tracing.SpanTagMailbox, address)

	emails, err := p.deps.Provider.GetEmailList(ctx)
	if err != nil {
		return p.abortCycle(span, log, report, errors.Wrap(err, "get email list"))
	}
	report.Listed = len(emails)

	if len(emails) == 0 {
		log.Debugf("No emails found in %s", address)
		return report, nil
	}
	p.logReceivedEmails(log, emails)

	counters := &cycleCounters{}
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency())
	for _, email := range emails {
		email := email
		g.Go(func() error {
			p.runEmailPipeline(ctx, log, email, counters)
			return nil
		})
	}
	_ = g.Wait()

	report.Fetched = int(counters.fetched.Load())
	report.Extracted = int(counters.extracted.Load())
	report.Notified = int(counters.notified.Load())
	report.Deleted = int(counters.deleted.Load())
	report.Skipped = int(counters.skipped.Load())

	log.Infof("Cycle finished: listed=%d fetched=%d extracted=%d notified=%d deleted=%d skipped=%d",
		report.Listed, report.Fetched, report.Extracted, report.Notified, report.Deleted, report.Skipped)
	return report, nil
}

func (p *processor) Status() dto.ProcessorStatus {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()

	status := dto.ProcessorStatus{
		Running: p.running.Load(),
		Cycles:  p.cycles.Load(),
	}
	if p.lastReport != nil {
		last := *p.lastReport
		status.LastReport = &last
	}
	return status
}

func (p *processor) storeReport(report *dto.CycleReport) {
	last := *report
	p.statusMu.Lock()
	p.lastReport = &last
	p.statusMu.Unlock()
}

func (p *processor) abortCycle(span opentracing.Span, log logger.Logger, report *dto.CycleReport, err error) (*dto.CycleReport, error) {
	tracing.TraceErr(span, err)
	log.Errorf("Cycle aborted: %v", err)
	report.Error = err.Error()
	return report, err
}

func (p *processor) concurrency() int {
	if p.cfg == nil || p.cfg.Concurrency < 1 {
		return 1
	}
	return p.cfg.Concurrency
}

func (p *processor) logReceivedEmails(log logger.Logger, emails []models.EmailSummary) {
	log.Debugf("Received %d emails", len(emails))
	for _, email := range emails {
		subject := email.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		log.Debugf("Email %s from %s at %s: %s | %s", email.ID, email.From, email.Date, subject, excerpt(email.Excerpt))
	}
}

// runEmailPipeline isolates one email, a panic only skips that email
func (p *processor) runEmailPipeline(ctx context.Context, log logger.Logger, email models.EmailSummary, counters *cycleCounters) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic processing email %s: %v", email.ID, r)
			counters.skipped.Add(1)
		}
	}()

	state, reason := p.processEmail(ctx, log, email, counters)
	if state == enum.EmailDeleted {
		counters.deleted.Add(1)
		return
	}
	counters.skipped.Add(1)
	log.Infof("Email %s skipped: %s", email.ID, reason)
}

func (p *processor) processEmail(ctx context.Context, log logger.Logger, email models.EmailSummary, counters *cycleCounters) (enum.EmailState, enum.SkipReason) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Processor.processEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)
	advance := func(state enum.EmailState) {
		span.SetTag("email.state", state.String())
	}
	advance(enum.EmailListed)

	body, ok := p.deps.Provider.FetchEmail(ctx, email.ID)
	if !ok {
		advance(enum.EmailSkipped)
		return enum.EmailSkipped, enum.SkipBodyUnavailable
	}
	counters.fetched.Add(1)
	advance(enum.EmailBodyFetched)

	code, ok := ExtractTransactionCode(body)
	if !ok {
		log.Debugf("No transaction code found in email %s", email.ID)
		advance(enum.EmailSkipped)
		return enum.EmailSkipped, enum.SkipCodeNotFound
	}
	counters.extracted.Add(1)
	advance(enum.EmailCodeExtracted)
	span.SetTag("transaction.code", code)

	mailbox := utils.GetMailboxFromContext(ctx)
	if p.attemptLimitReached(ctx, log, mailbox, email.ID) {
		log.Warnf("Email %s with code %s reached %d notify attempts, leaving it in the mailbox", email.ID, code, p.cfg.MaxNotifyAttempts)
		advance(enum.EmailSkipped)
		return enum.EmailSkipped, enum.SkipAttemptLimit
	}

	if !p.deps.Notifier.NotifyCompletion(ctx, code) {
		p.recordOutcome(ctx, log, mailbox, email.ID, code, enum.AttemptNotifyFailed)
		advance(enum.EmailSkipped)
		return enum.EmailSkipped, enum.SkipNotifyFailed
	}
	counters.notified.Add(1)
	advance(enum.EmailNotified)
	log.Infof("Transaction %s concluded", code)

	archiveKey := p.archiveBody(ctx, log, email.ID, code, body)

	if !p.deps.Provider.DeleteEmail(ctx, email.ID) {
		p.recordOutcome(ctx, log, mailbox, email.ID, code, enum.AttemptDeleteFailed)
		advance(enum.EmailSkipped)
		return enum.EmailSkipped, enum.SkipDeleteFailed
	}
	p.recordOutcome(ctx, log, mailbox, email.ID, code, enum.AttemptConcluded)
	advance(enum.EmailDeleted)
	log.Infof("Email %s deleted", email.ID)

	p.publishConcluded(ctx, log, email, code, archiveKey)
	return enum.EmailDeleted, enum.SkipNone
}

func (p *processor) attemptLimitReached(ctx context.Context, log logger.Logger, mailbox, mailID string) bool {
	if p.cfg == nil || p.cfg.MaxNotifyAttempts <= 0 || p.deps.Attempts == nil {
		return false
	}
	attempt, err := p.deps.Attempts.GetByMailID(ctx, mailbox, mailID)
	if err != nil {
		log.Warnf("Could not read notify attempts for email %s: %v", mailID, err)
		return false
	}
	return attempt != nil && attempt.ConcludedAt == nil && attempt.Attempts >= p.cfg.MaxNotifyAttempts
}

func (p *processor) recordOutcome(ctx context.Context, log logger.Logger, mailbox, mailID, code string, outcome enum.AttemptOutcome) {
	if p.deps.Attempts == nil {
		return
	}
	if _, err := p.deps.Attempts.RecordOutcome(ctx, mailbox, mailID, code, outcome); err != nil {
		log.Warnf("Could not record %s for email %s: %v", outcome, mailID, err)
	}
}

func (p *processor) archiveBody(ctx context.Context, log logger.Logger, mailID, code, body string) string {
	if p.deps.Archive == nil {
		return ""
	}
	key := storage.TransactionArchiveKey(code, mailID)
	if err := p.deps.Archive.Upload(ctx, key, []byte(body), storage.ContentTypeText); err != nil {
		log.Errorf("Failed to archive email %s: %v", mailID, err)
		return ""
	}
	return key
}

func (p *processor) publishConcluded(ctx context.Context, log logger.Logger, email models.EmailSummary, code, archiveKey string) {
	if p.deps.Publisher == nil {
		return
	}
	event := dto.TransactionConcluded{
		Code:        code,
		MailID:      email.ID,
		Mailbox:     utils.GetMailboxFromContext(ctx),
		Subject:     email.Subject,
		From:        email.From,
		CycleId:     utils.GetCycleIdFromContext(ctx),
		ArchiveKey:  archiveKey,
		ConcludedAt: utils.Now().Format(time.RFC3339),
	}
	if err := p.deps.Publisher.PublishTransactionConcluded(ctx, event); err != nil {
		log.Errorf("Failed to publish concluded event for transaction %s: %v", code, err)
	}
}

func excerpt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	return fmt.Sprintf("%s...", string(runes[:excerptLength]))
}
