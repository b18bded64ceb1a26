package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/saaw-digital/giveaway-service/internal/crm"
	"github.com/saaw-digital/giveaway-service/internal/service"
)

// emailPattern matches the shape check the landing-page forms apply; real
// verification happens through the CRM's double opt-in.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// SubmissionHandler holds the dependencies for the giveaway HTTP endpoints.
type SubmissionHandler struct {
	Submissions *service.SubmissionService
	Newsletter  *service.NewsletterService
	Logger      *zap.Logger

	codePattern *regexp.Regexp
}

// NewSubmissionHandler creates the handler. codeLength is the canonical
// promotional-code length; codes are matched after uppercasing and trimming.
func NewSubmissionHandler(submissions *service.SubmissionService, newsletter *service.NewsletterService, codeLength int, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		Submissions: submissions,
		Newsletter:  newsletter,
		Logger:      logger,
		codePattern: regexp.MustCompile(fmt.Sprintf(`^[A-Z0-9]{%d}$`, codeLength)),
	}
}

// submissionPayload is the giveaway form body. Older form iterations post the
// code as "ticketCode", the newer ones as "code"; both are accepted.
type submissionPayload struct {
	Code       string `json:"code"`
	TicketCode string `json:"ticketCode"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`

	Source      string `json:"source"`
	Offer       string `json:"offer"`
	Website     string `json:"website"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`

	Consent         bool `json:"consent"`
	NewsletterOptIn bool `json:"newsletterOptIn"`
}

func (p *submissionPayload) effectiveCode() string {
	if p.TicketCode != "" {
		return p.TicketCode
	}
	return p.Code
}

// SubmitGiveaway handles a full giveaway submission: shape validation,
// duplicate guard, CRM registration, ledger commit.
func (h *SubmissionHandler) SubmitGiveaway(w http.ResponseWriter, r *http.Request) {
	var payload submissionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "Ungültiger Request-Body")
		return
	}

	if !emailPattern.MatchString(payload.Email) {
		badRequest(w, "Gültige E-Mail erforderlich")
		return
	}

	code := strings.ToUpper(strings.TrimSpace(payload.effectiveCode()))
	if !h.codePattern.MatchString(code) {
		badRequest(w, "Gültiger Code erforderlich")
		return
	}

	result, err := h.Submissions.Submit(r.Context(), service.SubmissionRequest{
		Code:            code,
		Email:           payload.Email,
		FirstName:       payload.FirstName,
		LastName:        payload.LastName,
		Phone:           payload.Phone,
		Street:          payload.Street,
		City:            payload.City,
		PostalCode:      payload.PostalCode,
		Country:         payload.Country,
		Source:          payload.Source,
		Offer:           payload.Offer,
		Website:         payload.Website,
		UTMSource:       payload.UTMSource,
		UTMMedium:       payload.UTMMedium,
		UTMCampaign:     payload.UTMCampaign,
		Consent:         payload.Consent,
		NewsletterOptIn: payload.NewsletterOptIn,
	})
	if err != nil {
		h.writeFault(w, err)
		return
	}

	if result.Rejection != nil {
		writeJSON(w, http.StatusConflict, envelope{
			Success: false,
			Reason:  result.Rejection.Reason,
			Message: result.Rejection.Message,
			Context: result.Rejection.Context,
		})
		return
	}

	message := "Teilnahme erfolgreich registriert!"
	if result.Entry.NewsletterOptIn {
		message = "Teilnahme registriert! Bitte bestätige deine E-Mail für den Newsletter."
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: message,
		Data:    result.Entry,
	})
}

// newsletterPayload is the hero/newsletter capture body.
type newsletterPayload struct {
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`

	Source      string `json:"source"`
	Offer       string `json:"offer"`
	Code        string `json:"code"`
	Website     string `json:"website"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
}

// SubscribeNewsletter handles a newsletter signup. It never consults the
// ledger; every valid email is forwarded to the CRM with newsletter consent.
func (h *SubmissionHandler) SubscribeNewsletter(w http.ResponseWriter, r *http.Request) {
	var payload newsletterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "Ungültiger Request-Body")
		return
	}

	if !emailPattern.MatchString(payload.Email) {
		badRequest(w, "Gültige E-Mail erforderlich")
		return
	}

	err := h.Newsletter.Subscribe(r.Context(), service.NewsletterRequest{
		Email:       payload.Email,
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Phone:       payload.Phone,
		Street:      payload.Street,
		City:        payload.City,
		PostalCode:  payload.PostalCode,
		Country:     payload.Country,
		Source:      payload.Source,
		Offer:       payload.Offer,
		Code:        payload.Code,
		Website:     payload.Website,
		UTMSource:   payload.UTMSource,
		UTMMedium:   payload.UTMMedium,
		UTMCampaign: payload.UTMCampaign,
	})
	if err != nil {
		h.writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Successfully subscribed!",
	})
}

// Statistics reports ledger aggregates, optionally filtered by ?campaign=.
func (h *SubmissionHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Submissions.Statistics(r.Context(), r.URL.Query().Get("campaign"))
	if err != nil {
		h.writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: stats})
}

// writeFault maps internal failures: CRM errors become 502 so operators can
// tell an upstream outage from a storage fault, everything else is 500.
func (h *SubmissionHandler) writeFault(w http.ResponseWriter, err error) {
	var crmErr *crm.Error
	if errors.As(err, &crmErr) {
		h.Logger.Error("crm request failed",
			zap.String("provider", crmErr.Provider),
			zap.Int("status", crmErr.Status),
			zap.String("detail", crmErr.Detail),
		)
		writeJSON(w, http.StatusBadGateway, envelope{
			Success: false,
			Message: "Fehler beim Speichern im CRM",
			Error:   crmErr.Detail,
		})
		return
	}

	h.Logger.Error("submission failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, envelope{
		Success: false,
		Message: "Interner Server-Fehler",
	})
}
