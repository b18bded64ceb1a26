package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/saaw-digital/giveaway-service/internal/crm"
	"github.com/saaw-digital/giveaway-service/internal/guard"
	"github.com/saaw-digital/giveaway-service/internal/ledger"
	"github.com/saaw-digital/giveaway-service/internal/model"
	"github.com/saaw-digital/giveaway-service/internal/service"
)

// --- Fake CRM client ---

type fakeCRM struct {
	registered []crm.Participant
	fail       error
}

func (f *fakeCRM) Provider() string { return "fake" }

func (f *fakeCRM) Register(_ context.Context, p crm.Participant) error {
	if f.fail != nil {
		return f.fail
	}
	f.registered = append(f.registered, p)
	return nil
}

func newService(client crm.Client) (*service.SubmissionService, *ledger.Ledger) {
	l := ledger.New(ledger.NewMemStore())
	svc := service.NewSubmissionService(l, client, "rubbellos_2025", "rubbellos.sweetsausallerwelt.de", zap.NewNop())
	return svc, l
}

func TestSubmitAcceptedCommitsAndRegisters(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCRM{}
	svc, l := newService(fake)

	result, err := svc.Submit(ctx, service.SubmissionRequest{
		Code:            "AB12C",
		Email:           "a@b.com",
		FirstName:       "Anna",
		NewsletterOptIn: true,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Entry == nil {
		t.Fatalf("expected accepted entry, got %+v", result)
	}
	if result.Entry.Website != "rubbellos.sweetsausallerwelt.de" {
		t.Errorf("expected default website, got %q", result.Entry.Website)
	}

	if len(fake.registered) != 1 {
		t.Fatalf("expected one CRM registration, got %d", len(fake.registered))
	}
	if fake.registered[0].Campaign != "rubbellos_2025" {
		t.Errorf("unexpected campaign forwarded: %q", fake.registered[0].Campaign)
	}

	prior, err := l.CodeExists(ctx, "AB12C")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if prior == nil {
		t.Fatal("expected commit after acceptance")
	}
}

func TestSubmitRejectionSkipsCRM(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCRM{}
	svc, l := newService(fake)

	if _, err := l.Commit(ctx, "AB12C", "other@b.com", "rubbellos_2025", model.EntryMetadata{}); err != nil {
		t.Fatalf("seed commit failed: %v", err)
	}

	result, err := svc.Submit(ctx, service.SubmissionRequest{Code: "AB12C", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Rejection == nil || result.Rejection.Reason != guard.ReasonCodeAlreadyUsed {
		t.Fatalf("expected code rejection, got %+v", result)
	}

	if len(fake.registered) != 0 {
		t.Error("rejected submission must not reach the CRM")
	}
}

func TestSubmitCRMFailurePreventsCommit(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCRM{fail: &crm.Error{Provider: "fake", Status: 500, Detail: "boom"}}
	svc, l := newService(fake)

	_, err := svc.Submit(ctx, service.SubmissionRequest{Code: "AB12C", Email: "a@b.com"})
	if err == nil {
		t.Fatal("expected error when CRM rejects")
	}
	var crmErr *crm.Error
	if !errors.As(err, &crmErr) {
		t.Fatalf("expected crm.Error in chain, got %v", err)
	}

	prior, lookupErr := l.CodeExists(ctx, "AB12C")
	if lookupErr != nil {
		t.Fatalf("lookup failed: %v", lookupErr)
	}
	if prior != nil {
		t.Error("submission must not be committed when the CRM failed")
	}
}

// conflictLedger simulates a backend that detects the commit race.
type conflictLedger struct {
	*ledger.Ledger
}

func (c *conflictLedger) Commit(context.Context, string, string, string, model.EntryMetadata) (model.LedgerEntry, error) {
	return model.LedgerEntry{}, ledger.ErrCodeTaken
}

func TestSubmitCommitConflictBecomesRejection(t *testing.T) {
	ctx := context.Background()
	l := &conflictLedger{Ledger: ledger.New(ledger.NewMemStore())}
	svc := service.NewSubmissionService(l, &fakeCRM{}, "rubbellos_2025", "w", zap.NewNop())

	result, err := svc.Submit(ctx, service.SubmissionRequest{Code: "AB12C", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("conflict must surface as rejection, not error: %v", err)
	}
	if result.Rejection == nil || result.Rejection.Reason != guard.ReasonCodeAlreadyUsed {
		t.Fatalf("expected CODE_ALREADY_USED rejection, got %+v", result)
	}
}
