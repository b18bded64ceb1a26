package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/saaw-digital/giveaway-service/internal/crm"
	"github.com/saaw-digital/giveaway-service/internal/metrics"
)

// NewsletterRequest is a hero/newsletter capture. No promotional code is
// required; a code supplied anyway is forwarded to the CRM as a property but
// never checked or recorded in the ledger.
type NewsletterRequest struct {
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
	Code        string
	Website     string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// NewsletterService forwards newsletter signups straight to the CRM. Unlike
// the giveaway flow it always subscribes and never touches the ledger.
type NewsletterService struct {
	crm        crm.Client
	campaign   string
	baseDomain string
	logger     *zap.Logger
}

// NewNewsletterService creates the service. baseDomain is the bare domain
// (no subdomain) that per-source website identifiers are derived from.
func NewNewsletterService(client crm.Client, campaign, baseDomain string, logger *zap.Logger) *NewsletterService {
	return &NewsletterService{
		crm:        client,
		campaign:   campaign,
		baseDomain: baseDomain,
		logger:     logger,
	}
}

// Subscribe registers the signup with the CRM with newsletter consent.
func (s *NewsletterService) Subscribe(ctx context.Context, req NewsletterRequest) error {
	offer := req.Offer
	if offer == "" {
		offer = defaultOffer(req.Source)
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
		Website:         s.detectWebsite(req),
		Source:          req.Source,
		Offer:           offer,
		UTMSource:       req.UTMSource,
		UTMMedium:       req.UTMMedium,
		UTMCampaign:     req.UTMCampaign,
		NewsletterOptIn: true,
	}

	if err := s.crm.Register(ctx, participant); err != nil {
		metrics.RecordCRMRequest(s.crm.Provider(), "error")
		return fmt.Errorf("newsletter subscription failed: %w", err)
	}
	metrics.RecordCRMRequest(s.crm.Provider(), "success")

	s.logger.Info("newsletter signup forwarded",
		zap.String("source", req.Source),
		zap.String("website", participant.Website),
	)
	return nil
}

// detectWebsite resolves the originating site from an explicit value or the
// signup source, falling back to the bare base domain.
func (s *NewsletterService) detectWebsite(req NewsletterRequest) string {
	if req.Website != "" {
		return req.Website
	}

	switch req.Source {
	case "rubbellos":
		return "rubbellos." + s.baseDomain
	case "goldenticket":
		return "goldenticket." + s.baseDomain
	case "newsletter":
		return "newsletter." + s.baseDomain
	}
	return s.baseDomain
}

// defaultOffer maps hero-section sources onto the offer they advertise.
func defaultOffer(source string) string {
	if source == "hero_dubai_offer" || source == "hero_offer" {
		return "Dubai Schokolade"
	}
	return "Standard"
}
