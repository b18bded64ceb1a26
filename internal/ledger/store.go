package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/saaw-digital/giveaway-service/internal/model"
)

var (
	// ErrCorrupt indicates the backing store exists but its contents cannot
	// be parsed. Callers must not treat this as an empty ledger.
	ErrCorrupt = errors.New("ledger: backing store corrupt")

	// ErrCodeTaken indicates a commit lost a uniqueness race on the code key.
	// Only backends that detect conflicts (Postgres) return it.
	ErrCodeTaken = errors.New("ledger: code already redeemed")
)

// Store is the persistence port for the file-backed ledger. Load returns the
// full contents keyed by normalized code; a missing backing store yields an
// empty map, a present-but-unparseable one yields ErrCorrupt.
type Store interface {
	Load(ctx context.Context) (map[string]model.LedgerEntry, error)
	Save(ctx context.Context, entries map[string]model.LedgerEntry) error
}

// NormalizeCode uppercases and trims a promotional code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
