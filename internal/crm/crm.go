// Package crm forwards finalized participant records to the external
// email-marketing platform. The submission core only depends on the
// pass/fail outcome of Register, never on provider internals.
package crm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is implemented by each marketing platform integration.
type Client interface {
	// Register creates or updates the participant's profile with the
	// provider and, when the participant opted in, subscribes them to the
	// marketing list.
	Register(ctx context.Context, p Participant) error

	// Provider returns the platform name for logging and metrics.
	Provider() string
}

// Participant is the finalized record handed to the provider after the
// submission guard accepted it.
type Participant struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Street     string
	City       string
	PostalCode string
	Country    string

	Code     string
	Campaign string
	Website  string
	Source   string
	Offer    string

	UTMSource   string
	UTMMedium   string
	UTMCampaign string

	NewsletterOptIn bool
	Consent         bool
}

// HasAddress reports whether the optional postal address was provided in
// full. Partial addresses are still forwarded field by field, but only a
// complete one is tagged as address-provided.
func (p Participant) HasAddress() bool {
	return p.Street != "" && p.City != "" && p.PostalCode != ""
}

// Error is a failed provider call. Detail is the provider's own error text
// when one was returned.
type Error struct {
	Provider string
	Status   int
	Detail   string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s request failed (status %d): %s", e.Provider, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s request failed (status %d)", e.Provider, e.Status)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
