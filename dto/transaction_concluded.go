package dto

// TransactionConcluded is published once the webhook accepted a code and the email was removed
type TransactionConcluded struct {
	Code        string `json:"code"`
	MailID      string `json:"mailId"`
	Mailbox     string `json:"mailbox"`
	Subject     string `json:"subject"`
	From        string `json:"from"`
	CycleId     string `json:"cycleId"`
	ArchiveKey  string `json:"archiveKey,omitempty"`
	ConcludedAt string `json:"concludedAt"`
}
