package enum

// EmailState is the position of one listed email inside a polling cycle
type EmailState string

const (
	EmailListed        EmailState = "listed"
	EmailBodyFetched   EmailState = "body_fetched"
	EmailCodeExtracted EmailState = "code_extracted"
	EmailNotified      EmailState = "notified"
	EmailDeleted       EmailState = "deleted"
	EmailSkipped       EmailState = "skipped"
)

func (t EmailState) String() string {
	return string(t)
}

// SkipReason explains why an email left the pipeline before deletion
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipBodyUnavailable SkipReason = "body_unavailable"
	SkipCodeNotFound    SkipReason = "code_not_found"
	SkipAttemptLimit    SkipReason = "attempt_limit"
	SkipNotifyFailed    SkipReason = "notify_failed"
	SkipDeleteFailed    SkipReason = "delete_failed"
	SkipPanic           SkipReason = "panic"
)

func (t SkipReason) String() string {
	return string(t)
}

// AttemptOutcome is what the attempt ledger records for one notify round
type AttemptOutcome string

const (
	AttemptNotifyFailed AttemptOutcome = "notify_failed"
	AttemptDeleteFailed AttemptOutcome = "delete_failed"
	AttemptConcluded    AttemptOutcome = "concluded"
)

func (t AttemptOutcome) String() string {
	return string(t)
}
