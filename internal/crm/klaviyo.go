package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const (
	klaviyoDefaultBase = "https://a.klaviyo.com/api"
	klaviyoRevision    = "2024-10-15"
)

// Klaviyo talks to the Klaviyo JSON:API. Registration is a profile upsert
// followed, for newsletter opt-ins, by a subscription bulk-create job that
// sets explicit email-marketing consent.
type Klaviyo struct {
	apiKey  string
	listID  string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewKlaviyo creates a Klaviyo client for the given private API key and
// newsletter list.
func NewKlaviyo(apiKey, listID string, logger *zap.Logger) *Klaviyo {
	return &Klaviyo{
		apiKey:  apiKey,
		listID:  listID,
		baseURL: klaviyoDefaultBase,
		http:    newHTTPClient(),
		logger:  logger,
	}
}

// WithBaseURL overrides the API base, used by tests.
func (k *Klaviyo) WithBaseURL(base string) *Klaviyo {
	k.baseURL = base
	return k
}

// Provider returns the platform name.
func (k *Klaviyo) Provider() string { return "klaviyo" }

type klaviyoLocation struct {
	Address1 string `json:"address1,omitempty"`
	City     string `json:"city,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Country  string `json:"country,omitempty"`
}

type klaviyoProfileAttributes struct {
	Email       string           `json:"email"`
	FirstName   string           `json:"first_name,omitempty"`
	LastName    string           `json:"last_name,omitempty"`
	PhoneNumber string           `json:"phone_number,omitempty"`
	Location    *klaviyoLocation `json:"location,omitempty"`
	Properties  map[string]any   `json:"properties,omitempty"`
}

// Register upserts the participant's profile and, when they opted into the
// newsletter, subscribes them to the configured list.
func (k *Klaviyo) Register(ctx context.Context, p Participant) error {
	if err := k.upsertProfile(ctx, p); err != nil {
		return err
	}

	if p.NewsletterOptIn {
		if err := k.subscribe(ctx, p.Email); err != nil {
			return err
		}
	}

	return nil
}

func (k *Klaviyo) upsertProfile(ctx context.Context, p Participant) error {
	attrs := klaviyoProfileAttributes{
		Email:       normalizeEmail(p.Email),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		PhoneNumber: NormalizePhone(p.Phone),
		Properties:  customProperties(p),
	}

	if p.Street != "" || p.City != "" || p.PostalCode != "" {
		attrs.Location = &klaviyoLocation{
			Address1: p.Street,
			City:     p.City,
			Zip:      p.PostalCode,
			Country:  p.Country,
		}
	}

	body := map[string]any{
		"data": map[string]any{
			"type":       "profile",
			"attributes": attrs,
		},
	}

	if err := k.post(ctx, "/profiles/", body); err != nil {
		return err
	}

	k.logger.Info("klaviyo profile upserted", zap.String("email", attrs.Email))
	return nil
}

func (k *Klaviyo) subscribe(ctx context.Context, email string) error {
	body := map[string]any{
		"data": map[string]any{
			"type": "profile-subscription-bulk-create-job",
			"attributes": map[string]any{
				"custom_source": "Giveaway Website",
				"profiles": map[string]any{
					"data": []map[string]any{{
						"type": "profile",
						"attributes": map[string]any{
							"email": normalizeEmail(email),
							"subscriptions": map[string]any{
								"email": map[string]any{
									"marketing": map[string]any{
										"consent": "SUBSCRIBED",
									},
								},
							},
						},
					}},
				},
			},
			"relationships": map[string]any{
				"list": map[string]any{
					"data": map[string]any{
						"type": "list",
						"id":   k.listID,
					},
				},
			},
		},
	}

	if err := k.post(ctx, "/profile-subscription-bulk-create-jobs/", body); err != nil {
		return err
	}

	k.logger.Info("klaviyo newsletter subscription created",
		zap.String("email", normalizeEmail(email)),
		zap.String("list_id", k.listID),
	)
	return nil
}

// post sends a JSON:API request. Klaviyo answers subscription jobs with
// 202 Accepted and an empty body, so any 2xx counts as success.
func (k *Klaviyo) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode klaviyo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build klaviyo request: %w", err)
	}
	req.Header.Set("Authorization", "Klaviyo-API-Key "+k.apiKey)
	req.Header.Set("revision", klaviyoRevision)
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.http.Do(req)
	if err != nil {
		return fmt.Errorf("klaviyo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return &Error{
		Provider: k.Provider(),
		Status:   resp.StatusCode,
		Detail:   readErrorDetail(resp.Body),
	}
}

// customProperties builds the saaw_* property set carried on every profile.
func customProperties(p Participant) map[string]any {
	props := map[string]any{
		"saaw_source_last":  p.Source,
		"saaw_website":      p.Website,
		"saaw_campaign":     p.Campaign,
		"saaw_offer":        p.Offer,
		"saaw_utm_source":   p.UTMSource,
		"saaw_utm_medium":   p.UTMMedium,
		"saaw_utm_campaign": p.UTMCampaign,
	}

	if p.Code != "" {
		props["saaw_code"] = normalizeCode(p.Code)
	}
	if p.NewsletterOptIn {
		props["saaw_newsletter_signup"] = true
	}
	if p.HasAddress() {
		props["saaw_address_provided"] = true
	}

	return props
}

// readErrorDetail extracts the first JSON:API error detail, falling back to
// an empty string when the body is not parseable.
func readErrorDetail(r io.Reader) string {
	var parsed struct {
		Errors []struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		} `json:"errors"`
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return ""
	}
	if len(parsed.Errors) > 0 {
		if parsed.Errors[0].Detail != "" {
			return parsed.Errors[0].Detail
		}
		return parsed.Errors[0].Title
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Title
}
