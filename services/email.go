package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/managenow/api/config"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

// EmailService sends transactional email through the Resend API.
type EmailService struct {
	http        httpClient
	apiKey      string
	from        string
	frontendURL string
}

func NewEmailService(cfg config.EmailConfig, frontendURL string) *EmailService {
	return &EmailService{
		http:        newHTTPClient(strings.TrimRight(cfg.BaseURL, "/")),
		apiKey:      cfg.APIKey,
		from:        cfg.From,
		frontendURL: frontendURL,
	}
}

func (s *EmailService) Send(ctx context.Context, to, subject, html string) error {
	if s.apiKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}
	req := utils.EmailRequest{From: s.from, To: []string{to}, Subject: subject, HTML: html}
	if err := s.http.do(ctx, http.MethodPost, "/emails", s.apiKey, req, nil); err != nil {
		return err
	}
	utils.SafeInfo("✅ Email sent to %s", utils.MaskEmail(to))
	return nil
}

// SendBillReminder formats each payment in the user's currency and mails
// the reminder.
func (s *EmailService) SendBillReminder(ctx context.Context, r models.BillReminder) error {
	data := utils.BillReminderEmail{
		FirstName:   r.FirstName,
		Language:    r.Language,
		FrontendURL: s.frontendURL,
	}
	for _, b := range r.Bills {
		data.Lines = append(data.Lines, utils.ReminderLine{
			Name:         b.Name,
			Amount:       FormatMoney(b.Amount, r.Currency, r.Language),
			DueDate:      b.DueDate.String(),
			DaysUntilDue: b.DaysUntilDue,
		})
	}

	subject, html, err := utils.RenderBillReminder(data)
	if err != nil {
		return err
	}
	return s.Send(ctx, r.Email, subject, html)
}
