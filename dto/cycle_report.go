package dto

import "time"

// CycleReport summarizes one poll-extract-notify-delete pass over the mailbox
type CycleReport struct {
	CycleId    string    `json:"cycleId"`
	Mailbox    string    `json:"mailbox,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Listed     int       `json:"listed"`
	Fetched    int       `json:"fetched"`
	Extracted  int       `json:"extracted"`
	Notified   int       `json:"notified"`
	Deleted    int       `json:"deleted"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
}

// ProcessorStatus is what the status endpoint reports
type ProcessorStatus struct {
	Running    bool         `json:"running"`
	Cycles     int64        `json:"cycles"`
	LastReport *CycleReport `json:"lastReport,omitempty"`
}
