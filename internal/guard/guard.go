package guard

import (
	"context"
	"fmt"
	"sort"

	"github.com/saaw-digital/giveaway-service/internal/model"
)

// Rejection reasons surfaced to the API layer. The two cases warrant
// different corrective action by the end user, so they are never collapsed
// into a generic failure.
const (
	ReasonCodeAlreadyUsed          = "CODE_ALREADY_USED"
	ReasonEmailAlreadyParticipated = "EMAIL_ALREADY_PARTICIPATED"
)

// Ledger is the read-only slice of the submission ledger the guard needs.
type Ledger interface {
	CodeExists(ctx context.Context, code string) (*model.LedgerEntry, error)
	EmailParticipated(ctx context.Context, email, campaign string) ([]model.LedgerEntry, error)
}

// Result is the outcome of a duplicate check. Rejections are values, not
// errors; Context carries machine-readable details for the rejection reason.
type Result struct {
	Accepted bool           `json:"accepted"`
	Reason   string         `json:"reason,omitempty"`
	Message  string         `json:"message,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// Guard combines the two duplicate checks into a single decision.
type Guard struct {
	ledger Ledger
}

// New creates a guard over the given ledger.
func New(l Ledger) *Guard {
	return &Guard{ledger: l}
}

// Validate checks a submission against the ledger. The code-uniqueness check
// runs strictly before the email-per-campaign check: a stale code is the more
// specific error and the one worth surfacing when both rules would fire.
//
// The result is advisory only; it reflects the ledger snapshot at call time
// and performs no mutation.
func (g *Guard) Validate(ctx context.Context, code, email, campaign string) (Result, error) {
	prior, err := g.ledger.CodeExists(ctx, code)
	if err != nil {
		return Result{}, fmt.Errorf("code check failed: %w", err)
	}
	if prior != nil {
		return Result{
			Reason:  ReasonCodeAlreadyUsed,
			Message: "Dieser Code wurde bereits eingelöst.",
			Context: map[string]any{
				"usedAt":  prior.Timestamp,
				"website": prior.Website,
			},
		}, nil
	}

	matches, err := g.ledger.EmailParticipated(ctx, email, campaign)
	if err != nil {
		return Result{}, fmt.Errorf("email check failed: %w", err)
	}
	if len(matches) > 0 {
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Timestamp.Before(matches[j].Timestamp)
		})

		codes := make([]string, 0, len(matches))
		for _, m := range matches {
			codes = append(codes, m.Code)
		}

		return Result{
			Reason:  ReasonEmailAlreadyParticipated,
			Message: "Du hast bereits mit dieser E-Mail Adresse teilgenommen.",
			Context: map[string]any{
				"usedCodes":          codes,
				"firstParticipation": matches[0].Timestamp,
			},
		}, nil
	}

	return Result{Accepted: true}, nil
}
