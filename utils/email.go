package utils

import (
	"bytes"
	"fmt"
	"html/template"
)

// ============================================================================
// STRUCTS & TYPES
// ============================================================================

// EmailRequest is the body of a Resend send call.
type EmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type ReminderLine struct {
	Name         string
	Amount       string
	DueDate      string
	DaysUntilDue int
}

type BillReminderEmail struct {
	FirstName   string
	Language    string
	FrontendURL string
	Lines       []ReminderLine
}

// ============================================================================
// BILL REMINDER
// ============================================================================

type reminderCopy struct {
	Greeting string
	Intro    string
	Due      string
	Today    string
	Button   string
}

var reminderCopies = map[string]reminderCopy{
	"id": {
		Greeting: "Halo",
		Intro:    "Tagihan berikut akan segera jatuh tempo:",
		Due:      "jatuh tempo dalam %d hari",
		Today:    "jatuh tempo hari ini",
		Button:   "Lihat tagihan",
	},
	"en": {
		Greeting: "Hi",
		Intro:    "These bills are coming up soon:",
		Due:      "due in %d days",
		Today:    "due today",
		Button:   "View bills",
	},
}

var reminderTemplate = template.Must(template.New("reminder").Funcs(template.FuncMap{
	"due": func(c reminderCopy, days int) string {
		if days <= 0 {
			return c.Today
		}
		return fmt.Sprintf(c.Due, days)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>ManageNow</title></head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f3f4f6;">
    <table role="presentation" style="width: 100%; border-collapse: collapse;">
        <tr>
            <td style="padding: 32px 0; text-align: center; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);">
                <h1 style="margin: 0; color: #ffffff; font-size: 26px;">💰 ManageNow</h1>
            </td>
        </tr>
        <tr>
            <td style="padding: 32px 20px;">
                <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
                    <tr>
                        <td style="padding: 32px;">
                            <p style="color: #1f2937; font-size: 16px;">{{.Copy.Greeting}} {{.FirstName}},</p>
                            <p style="color: #4b5563; font-size: 16px;">{{.Copy.Intro}}</p>
                            <ul style="color: #1f2937; font-size: 15px; line-height: 1.8;">
                            {{- range .Lines}}
                                <li><strong>{{.Name}}</strong> {{.Amount}}, {{due $.Copy .DaysUntilDue}} ({{.DueDate}})</li>
                            {{- end}}
                            </ul>
                            <a href="{{.FrontendURL}}/bills" style="display: inline-block; padding: 14px 28px; background: #667eea; color: #ffffff; text-decoration: none; border-radius: 8px;">{{.Copy.Button}}</a>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`))

// RenderBillReminder returns the subject and HTML body of a reminder email
// in the recipient's language. Unknown languages fall back to English.
func RenderBillReminder(data BillReminderEmail) (string, string, error) {
	c, ok := reminderCopies[data.Language]
	if !ok {
		c = reminderCopies["en"]
	}

	var buf bytes.Buffer
	err := reminderTemplate.Execute(&buf, struct {
		BillReminderEmail
		Copy reminderCopy
	}{data, c})
	if err != nil {
		return "", "", err
	}

	subject := fmt.Sprintf("%d upcoming bill(s)", len(data.Lines))
	if data.Language == "id" {
		subject = fmt.Sprintf("%d tagihan akan jatuh tempo", len(data.Lines))
	}
	return subject, buf.String(), nil
}
