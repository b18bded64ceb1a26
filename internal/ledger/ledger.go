package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/saaw-digital/giveaway-service/internal/model"
)

// Ledger is the file-backed submission ledger. All operations go through the
// Store port; Commit performs a full read-modify-write of the backing store,
// serialized by an internal mutex so concurrent submissions within one
// process cannot interleave between check and write.
type Ledger struct {
	mu    sync.Mutex
	store Store
}

// New creates a ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Entries returns the current ledger contents keyed by normalized code.
func (l *Ledger) Entries(ctx context.Context) (map[string]model.LedgerEntry, error) {
	return l.store.Load(ctx)
}

// CodeExists returns the prior entry for a normalized code, or nil if the
// code has never been redeemed.
func (l *Ledger) CodeExists(ctx context.Context, code string) (*model.LedgerEntry, error) {
	entries, err := l.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if entry, ok := entries[NormalizeCode(code)]; ok {
		return &entry, nil
	}
	return nil, nil
}

// EmailParticipated scans all entries and returns those whose normalized
// email matches and whose campaign matches exactly.
func (l *Ledger) EmailParticipated(ctx context.Context, email, campaign string) ([]model.LedgerEntry, error) {
	entries, err := l.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	normalized := NormalizeEmail(email)
	var matches []model.LedgerEntry
	for _, entry := range entries {
		if NormalizeEmail(entry.Email) == normalized && entry.Campaign == campaign {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

// Commit records a redemption. Code and email are normalized, the timestamp
// is assigned here, and the entry is written keyed by code. An existing entry
// for the same code is overwritten (last-write-wins).
func (l *Ledger) Commit(ctx context.Context, code, email, campaign string, meta model.EntryMetadata) (model.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.store.Load(ctx)
	if err != nil {
		return model.LedgerEntry{}, err
	}

	entry := model.LedgerEntry{
		Code:            NormalizeCode(code),
		Email:           NormalizeEmail(email),
		Timestamp:       time.Now().UTC(),
		Website:         meta.Website,
		Campaign:        campaign,
		FirstName:       meta.FirstName,
		LastName:        meta.LastName,
		NewsletterOptIn: meta.NewsletterOptIn,
	}
	entries[entry.Code] = entry

	if err := l.store.Save(ctx, entries); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("failed to persist ledger entry: %w", err)
	}

	return entry, nil
}

// Statistics aggregates the ledger, optionally filtered by campaign.
func (l *Ledger) Statistics(ctx context.Context, campaign string) (model.Stats, error) {
	entries, err := l.store.Load(ctx)
	if err != nil {
		return model.Stats{}, err
	}

	all := make([]model.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		all = append(all, e)
	}
	return Aggregate(all, campaign), nil
}

// Aggregate computes statistics over a set of entries. A non-empty campaign
// restricts the aggregation to that campaign. Shared by the file and
// Postgres backends.
func Aggregate(entries []model.LedgerEntry, campaign string) model.Stats {
	stats := model.Stats{ByWebsite: map[string]int{}}

	emails := map[string]struct{}{}
	for i := range entries {
		e := entries[i]
		if campaign != "" && e.Campaign != campaign {
			continue
		}

		stats.TotalCodes++
		emails[NormalizeEmail(e.Email)] = struct{}{}
		stats.ByWebsite[e.Website]++

		if stats.MostRecent == nil || e.Timestamp.After(stats.MostRecent.Timestamp) {
			latest := e
			stats.MostRecent = &latest
		}
	}
	stats.UniqueEmails = len(emails)

	return stats
}
