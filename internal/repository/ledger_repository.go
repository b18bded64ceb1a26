package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/saaw-digital/giveaway-service/internal/ledger"
	"github.com/saaw-digital/giveaway-service/internal/model"
)

// ledger_entries carries a unique constraint on code, so the check-then-act
// race of the file backend becomes a detectable insert conflict here.
const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	code              TEXT PRIMARY KEY,
	email             TEXT NOT NULL,
	redeemed_at       TIMESTAMPTZ NOT NULL,
	website           TEXT NOT NULL DEFAULT '',
	campaign          TEXT NOT NULL,
	first_name        TEXT NOT NULL DEFAULT '',
	last_name         TEXT NOT NULL DEFAULT '',
	newsletter_opt_in BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_email_campaign
	ON ledger_entries (email, campaign);
`

// LedgerRepository is the Postgres-backed submission ledger, the shared
// backend for multi-instance deployments.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a ledger repository over an open connection.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// EnsureSchema creates the ledger table if it does not exist yet.
func (r *LedgerRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

// CodeExists returns the prior entry for a normalized code, or nil.
func (r *LedgerRepository) CodeExists(ctx context.Context, code string) (*model.LedgerEntry, error) {
	query := `
		SELECT code, email, redeemed_at, website, campaign, first_name, last_name, newsletter_opt_in
		FROM ledger_entries
		WHERE code = $1
	`

	var entry model.LedgerEntry
	err := r.db.GetContext(ctx, &entry, query, ledger.NormalizeCode(code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up code: %w", err)
	}

	return &entry, nil
}

// EmailParticipated returns all entries for the normalized email within the
// given campaign.
func (r *LedgerRepository) EmailParticipated(ctx context.Context, email, campaign string) ([]model.LedgerEntry, error) {
	query := `
		SELECT code, email, redeemed_at, website, campaign, first_name, last_name, newsletter_opt_in
		FROM ledger_entries
		WHERE email = $1 AND campaign = $2
		ORDER BY redeemed_at ASC
	`

	var entries []model.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, query, ledger.NormalizeEmail(email), campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email participation: %w", err)
	}

	return entries, nil
}

// Commit inserts the redemption. A conflicting code is reported as
// ledger.ErrCodeTaken instead of silently overwriting, turning the
// concurrent-redemption race into a fast failure.
func (r *LedgerRepository) Commit(ctx context.Context, code, email, campaign string, meta model.EntryMetadata) (model.LedgerEntry, error) {
	entry := model.LedgerEntry{
		Code:            ledger.NormalizeCode(code),
		Email:           ledger.NormalizeEmail(email),
		Timestamp:       time.Now().UTC(),
		Website:         meta.Website,
		Campaign:        campaign,
		FirstName:       meta.FirstName,
		LastName:        meta.LastName,
		NewsletterOptIn: meta.NewsletterOptIn,
	}

	query := `
		INSERT INTO ledger_entries (code, email, redeemed_at, website, campaign, first_name, last_name, newsletter_opt_in)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.Code, entry.Email, entry.Timestamp, entry.Website,
		entry.Campaign, entry.FirstName, entry.LastName, entry.NewsletterOptIn)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.LedgerEntry{}, ledger.ErrCodeTaken
	}

	return entry, nil
}

// Statistics aggregates entries, optionally filtered by campaign. The table
// stays campaign-sized, so the aggregation is shared with the file backend
// rather than pushed into SQL.
func (r *LedgerRepository) Statistics(ctx context.Context, campaign string) (model.Stats, error) {
	query := `
		SELECT code, email, redeemed_at, website, campaign, first_name, last_name, newsletter_opt_in
		FROM ledger_entries
	`

	var entries []model.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return model.Stats{}, fmt.Errorf("failed to load ledger entries: %w", err)
	}

	return ledger.Aggregate(entries, campaign), nil
}
