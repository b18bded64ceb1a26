package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/saaw-digital/giveaway-service/internal/crm"
	"github.com/saaw-digital/giveaway-service/internal/guard"
	"github.com/saaw-digital/giveaway-service/internal/ledger"
	"github.com/saaw-digital/giveaway-service/internal/metrics"
	"github.com/saaw-digital/giveaway-service/internal/model"
)

// Ledger is the full operation surface the submission flow needs. Both the
// file-backed ledger and the Postgres repository implement it.
type Ledger interface {
	guard.Ledger
	Commit(ctx context.Context, code, email, campaign string, meta model.EntryMetadata) (model.LedgerEntry, error)
	Statistics(ctx context.Context, campaign string) (model.Stats, error)
}

// SubmissionRequest is a shape-validated giveaway submission.
type SubmissionRequest struct {
	Code       string
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Street     string
	City       string
	PostalCode string
	Country    string

	Source      string
	Offer       string
	Website     string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string

	Consent         bool
	NewsletterOptIn bool
}

// SubmissionResult is the outcome of a submission. Exactly one of Entry or
// Rejection is set.
type SubmissionResult struct {
	Entry     *model.LedgerEntry
	Rejection *guard.Result
}

// SubmissionService sequences guard validation, CRM registration and the
// ledger commit for one submission.
type SubmissionService struct {
	mu       sync.Mutex
	ledger   Ledger
	guard    *guard.Guard
	crm      crm.Client
	campaign string
	website  string
	logger   *zap.Logger
}

// NewSubmissionService creates the service. campaign scopes per-email
// uniqueness; website is the fallback originating-site identifier when a
// request does not carry one.
func NewSubmissionService(l Ledger, client crm.Client, campaign, website string, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{
		ledger:   l,
		guard:    guard.New(l),
		crm:      client,
		campaign: campaign,
		website:  website,
		logger:   logger,
	}
}

// Campaign returns the campaign identifier this service scopes to.
func (s *SubmissionService) Campaign() string { return s.campaign }

// Submit runs one submission end to end: duplicate checks, CRM registration,
// ledger commit. The whole sequence is one critical section so two
// concurrent submissions for the same code cannot both pass the check before
// either commits. A CRM failure aborts before the commit; the submission is
// never recorded as accepted when the provider rejected it.
func (s *SubmissionService) Submit(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error) {
	start := time.Now()
	result := "error"
	defer func() {
		metrics.RecordSubmissionDuration(result, time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	verdict, err := s.guard.Validate(ctx, req.Code, req.Email, s.campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to validate submission: %w", err)
	}
	if !verdict.Accepted {
		result = "rejected"
		metrics.RecordRejection(verdict.Reason)
		return &SubmissionResult{Rejection: &verdict}, nil
	}

	website := req.Website
	if website == "" {
		website = s.website
	}

	participant := crm.Participant{
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Street:          req.Street,
		City:            req.City,
		PostalCode:      req.PostalCode,
		Country:         req.Country,
		Code:            req.Code,
		Campaign:        s.campaign,
		Website:         website,
		Source:          req.Source,
		Offer:           req.Offer,
		UTMSource:       req.UTMSource,
		UTMMedium:       req.UTMMedium,
		UTMCampaign:     req.UTMCampaign,
		NewsletterOptIn: req.NewsletterOptIn,
		Consent:         req.Consent,
	}

	if err := s.crm.Register(ctx, participant); err != nil {
		metrics.RecordCRMRequest(s.crm.Provider(), "error")
		return nil, fmt.Errorf("crm registration failed: %w", err)
	}
	metrics.RecordCRMRequest(s.crm.Provider(), "success")

	entry, err := s.ledger.Commit(ctx, req.Code, req.Email, s.campaign, model.EntryMetadata{
		Website:         website,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		NewsletterOptIn: req.NewsletterOptIn,
	})
	if err != nil {
		// A conflicting concurrent commit surfaces here on backends that
		// detect it; report it as the code rejection it is.
		if errors.Is(err, ledger.ErrCodeTaken) {
			result = "rejected"
			metrics.RecordRejection(guard.ReasonCodeAlreadyUsed)
			return &SubmissionResult{Rejection: &guard.Result{
				Reason:  guard.ReasonCodeAlreadyUsed,
				Message: "Dieser Code wurde bereits eingelöst.",
			}}, nil
		}
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}

	result = "success"
	s.logger.Info("submission accepted",
		zap.String("code", entry.Code),
		zap.String("campaign", entry.Campaign),
		zap.String("website", entry.Website),
		zap.Bool("newsletter_opt_in", entry.NewsletterOptIn),
	)

	return &SubmissionResult{Entry: &entry}, nil
}

// Statistics aggregates the ledger, optionally filtered by campaign.
func (s *SubmissionService) Statistics(ctx context.Context, campaign string) (model.Stats, error) {
	return s.ledger.Statistics(ctx, campaign)
}
