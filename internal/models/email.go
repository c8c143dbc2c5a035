package models

// EmailSummary is one entry of the provider's mailbox listing
type EmailSummary struct {
	ID      string
	Subject string
	From    string
	Excerpt string
	Date    string
}
