package cron_config

import "time"

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Mailbox poll, every 10 seconds
	CronSchedulePoll string `env:"CRON_SCHEDULE_POLL" envDefault:"@every 10s"`
	// Run a cycle right after the scheduler starts
	RunPollOnStart bool `env:"CRON_RUN_POLL_ON_START" envDefault:"true"`
	// Attempt ledger cleanup, daily at 03:00
	CronScheduleLedgerCleanup string        `env:"CRON_SCHEDULE_LEDGER_CLEANUP" envDefault:"0 0 3 * * *"`
	LedgerRetention           time.Duration `env:"LEDGER_RETENTION" envDefault:"720h"`
}
