package guard_test

import (
	"context"
	"testing"

	"github.com/saaw-digital/giveaway-service/internal/guard"
	"github.com/saaw-digital/giveaway-service/internal/ledger"
	"github.com/saaw-digital/giveaway-service/internal/model"
)

func newGuardWithLedger(t *testing.T) (*guard.Guard, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(ledger.NewMemStore())
	return guard.New(l), l
}

func TestValidateScenario(t *testing.T) {
	ctx := context.Background()
	g, l := newGuardWithLedger(t)

	// fresh ledger: accepted
	res, err := g.Validate(ctx, "AB12C", "a@b.com", "2025")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("expected acceptance on empty ledger, got %+v", res)
	}

	if _, err := l.Commit(ctx, "AB12C", "a@b.com", "2025", model.EntryMetadata{Website: "rubbellos.sweetsausallerwelt.de"}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	// same code again: code rejection
	res, err = g.Validate(ctx, "AB12C", "a@b.com", "2025")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if res.Accepted || res.Reason != guard.ReasonCodeAlreadyUsed {
		t.Fatalf("expected CODE_ALREADY_USED, got %+v", res)
	}
	if res.Context["website"] != "rubbellos.sweetsausallerwelt.de" {
		t.Errorf("expected prior website in context, got %+v", res.Context)
	}

	// new code, same email and campaign: email rejection
	res, err = g.Validate(ctx, "ZZ999", "a@b.com", "2025")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if res.Accepted || res.Reason != guard.ReasonEmailAlreadyParticipated {
		t.Fatalf("expected EMAIL_ALREADY_PARTICIPATED, got %+v", res)
	}
	codes, ok := res.Context["usedCodes"].([]string)
	if !ok || len(codes) != 1 || codes[0] != "AB12C" {
		t.Errorf("expected prior codes in context, got %+v", res.Context)
	}

	// new code and new email: accepted
	res, err = g.Validate(ctx, "ZZ999", "c@d.com", "2025")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("expected acceptance for fresh code and email, got %+v", res)
	}
}

func TestValidateSameEmailDifferentCampaign(t *testing.T) {
	ctx := context.Background()
	g, l := newGuardWithLedger(t)

	if _, err := l.Commit(ctx, "AB12C", "a@b.com", "2025", model.EntryMetadata{}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	res, err := g.Validate(ctx, "ZZ999", "a@b.com", "2026")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("participation must be campaign-scoped, got %+v", res)
	}
}

func TestValidateCodeCheckWinsTieBreak(t *testing.T) {
	ctx := context.Background()
	g, l := newGuardWithLedger(t)

	// code used AND email participated: the code rejection must win
	if _, err := l.Commit(ctx, "AB12C", "a@b.com", "2025", model.EntryMetadata{}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	res, err := g.Validate(ctx, "AB12C", "a@b.com", "2025")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if res.Reason != guard.ReasonCodeAlreadyUsed {
		t.Fatalf("expected code check to win the tie-break, got %q", res.Reason)
	}
}

func TestValidateNormalizationEquivalence(t *testing.T) {
	ctx := context.Background()
	g, l := newGuardWithLedger(t)

	if _, err := l.Commit(ctx, "abc12", "User@Example.com", "2025", model.EntryMetadata{}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	lower, err := g.Validate(ctx, "abc12", "user@example.com", "2025")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	upper, err := g.Validate(ctx, " ABC12 ", " USER@EXAMPLE.COM ", "2025")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	if lower.Reason != upper.Reason {
		t.Errorf("normalization not applied: %q vs %q", lower.Reason, upper.Reason)
	}
	if lower.Reason != guard.ReasonCodeAlreadyUsed {
		t.Errorf("expected code rejection, got %q", lower.Reason)
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	g, l := newGuardWithLedger(t)

	for i := 0; i < 3; i++ {
		if _, err := g.Validate(ctx, "AB12C", "a@b.com", "2025"); err != nil {
			t.Fatalf("validate failed: %v", err)
		}
	}

	entries, err := l.Entries(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("validate must not write, found %d entries", len(entries))
	}
}
