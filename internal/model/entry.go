package model

import (
	"time"
)

// LedgerEntry represents one redeemed promotional code in the ledger.
// Keys in the backing store are the normalized (uppercased, trimmed) codes;
// the code is repeated inside the record so entries are self-describing.
type LedgerEntry struct {
	Code            string    `db:"code" json:"code"`
	Email           string    `db:"email" json:"email"`
	Timestamp       time.Time `db:"redeemed_at" json:"timestamp"`
	Website         string    `db:"website" json:"website"`
	Campaign        string    `db:"campaign" json:"campaign"`
	FirstName       string    `db:"first_name" json:"firstName"`
	LastName        string    `db:"last_name" json:"lastName"`
	NewsletterOptIn bool      `db:"newsletter_opt_in" json:"newsletterOptIn"`
}

// EntryMetadata carries the caller-supplied fields of a commit. Code, email,
// campaign and the timestamp are set by the ledger itself.
type EntryMetadata struct {
	Website         string
	FirstName       string
	LastName        string
	NewsletterOptIn bool
}

// Stats aggregates ledger contents for operator reporting.
type Stats struct {
	TotalCodes   int            `json:"totalCodes"`
	UniqueEmails int            `json:"uniqueEmails"`
	ByWebsite    map[string]int `json:"byWebsite"`
	MostRecent   *LedgerEntry   `json:"mostRecent,omitempty"`
}
