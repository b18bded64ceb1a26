package crm

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Mailchimp talks to the Mailchimp Marketing API v3. New participants are
// created as list members; a participant the list already knows is updated
// in place and re-tagged instead.
type Mailchimp struct {
	apiKey     string
	audienceID string
	baseURL    string
	http       *http.Client
	logger     *zap.Logger
}

// NewMailchimp creates a Mailchimp client. The datacenter is parsed from the
// API key suffix (keys look like "xxxx-us21") unless a base URL override is
// set later.
func NewMailchimp(apiKey, audienceID string, logger *zap.Logger) *Mailchimp {
	base := ""
	if i := strings.LastIndex(apiKey, "-"); i >= 0 && i < len(apiKey)-1 {
		base = fmt.Sprintf("https://%s.api.mailchimp.com/3.0", apiKey[i+1:])
	}

	return &Mailchimp{
		apiKey:     apiKey,
		audienceID: audienceID,
		baseURL:    base,
		http:       newHTTPClient(),
		logger:     logger,
	}
}

// WithBaseURL overrides the API base, used by tests.
func (m *Mailchimp) WithBaseURL(base string) *Mailchimp {
	m.baseURL = base
	return m
}

// Provider returns the platform name.
func (m *Mailchimp) Provider() string { return "mailchimp" }

type mailchimpAddress struct {
	Addr1   string `json:"addr1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type mailchimpMember struct {
	EmailAddress string         `json:"email_address"`
	Status       string         `json:"status,omitempty"`
	MergeFields  map[string]any `json:"merge_fields"`
	Tags         []string       `json:"tags,omitempty"`
}

// Register creates the participant as a list member. Newsletter opt-ins get
// status "pending" so Mailchimp runs double opt-in; everyone else is stored
// as "transactional" and never receives marketing mail.
func (m *Mailchimp) Register(ctx context.Context, p Participant) error {
	tags := memberTags(p)
	member := mailchimpMember{
		EmailAddress: normalizeEmail(p.Email),
		Status:       "transactional",
		MergeFields:  mergeFields(p),
		Tags:         tags,
	}
	if p.NewsletterOptIn {
		member.Status = "pending"
	}

	status, detail, err := m.do(ctx, http.MethodPost,
		fmt.Sprintf("/lists/%s/members", m.audienceID), member)
	if err != nil {
		return err
	}

	if status >= 200 && status < 300 {
		m.logger.Info("mailchimp member created",
			zap.String("email", member.EmailAddress),
			zap.String("status", member.Status),
		)
		return nil
	}

	// An email the audience already knows is an update, not an error.
	if detail.Title == "Member Exists" {
		return m.updateExisting(ctx, member, tags)
	}

	return &Error{Provider: m.Provider(), Status: status, Detail: detail.text()}
}

// updateExisting patches merge fields on the existing member and re-applies
// the tag set. The member hash is the md5 of the lowercased email.
func (m *Mailchimp) updateExisting(ctx context.Context, member mailchimpMember, tags []string) error {
	sum := md5.Sum([]byte(member.EmailAddress))
	memberPath := fmt.Sprintf("/lists/%s/members/%s", m.audienceID, hex.EncodeToString(sum[:]))

	status, detail, err := m.do(ctx, http.MethodPatch, memberPath, map[string]any{
		"merge_fields": member.MergeFields,
	})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &Error{Provider: m.Provider(), Status: status, Detail: detail.text()}
	}

	tagList := make([]map[string]string, 0, len(tags))
	for _, name := range tags {
		tagList = append(tagList, map[string]string{"name": name, "status": "active"})
	}

	status, detail, err = m.do(ctx, http.MethodPost, memberPath+"/tags", map[string]any{
		"tags": tagList,
	})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &Error{Provider: m.Provider(), Status: status, Detail: detail.text()}
	}

	m.logger.Info("mailchimp member updated", zap.String("email", member.EmailAddress))
	return nil
}

type mailchimpError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e mailchimpError) text() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

func (m *Mailchimp) do(ctx context.Context, method, path string, body any) (int, mailchimpError, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, mailchimpError{}, fmt.Errorf("failed to encode mailchimp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, mailchimpError{}, fmt.Errorf("failed to build mailchimp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return 0, mailchimpError{}, fmt.Errorf("mailchimp request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed mailchimpError
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = json.NewDecoder(resp.Body).Decode(&parsed)
	}

	return resp.StatusCode, parsed, nil
}

// mergeFields maps the participant onto the audience's merge fields.
func mergeFields(p Participant) map[string]any {
	fields := map[string]any{
		"FNAME":        p.FirstName,
		"LNAME":        p.LastName,
		"PHONE":        p.Phone,
		"TICKET":       normalizeCode(p.Code),
		"OFFER":        p.Offer,
		"SOURCE":       p.Source,
		"UTM_SOURCE":   p.UTMSource,
		"UTM_MEDIUM":   p.UTMMedium,
		"UTM_CAMPAIGN": p.UTMCampaign,
	}

	if p.HasAddress() {
		country := p.Country
		if country == "" {
			country = "DE"
		}
		fields["ADDRESS"] = mailchimpAddress{
			Addr1:   p.Street,
			City:    p.City,
			Zip:     p.PostalCode,
			Country: country,
		}
	}

	return fields
}

// memberTags builds the tag set used for audience segmentation.
func memberTags(p Participant) []string {
	tags := []string{
		"gewinnspiel-teilnehmer",
		p.Campaign,
	}
	if p.Source != "" {
		tags = append(tags, p.Source)
	}

	if code := normalizeCode(p.Code); len(code) >= 3 {
		tags = append(tags, "ticket-"+code[:3])
	}
	if p.HasAddress() {
		tags = append(tags, "address-provided")
	}
	if p.UTMSource != "" && p.UTMSource != "direct" {
		tags = append(tags, "utm_source_"+p.UTMSource)
	}
	if p.UTMCampaign != "" {
		tags = append(tags, "utm_campaign_"+p.UTMCampaign)
	}
	if p.NewsletterOptIn {
		tags = append(tags, "newsletter-opt-in")
	}

	return tags
}
