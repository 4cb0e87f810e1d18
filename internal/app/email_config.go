package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/socialink/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// MailgunSettings converts EmailConfig to the Mailgun mailer representation.
func (c EmailConfig) MailgunSettings() mail.MailgunSettings {
	return mail.MailgunSettings{
		Domain:  c.Mailgun.Domain,
		APIKey:  c.Mailgun.APIKey,
		From:    c.From,
		BaseURL: c.Mailgun.BaseURL,
		Timeout: c.Mailgun.Timeout,
	}
}

// NewMailer builds the mailer selected by the provider setting. An empty or
// "none" provider yields a mailer that rejects every message.
func (c EmailConfig) NewMailer() (mail.Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "", "none":
		return mail.DisabledMailer{}, nil
	case "smtp":
		return mail.NewSMTPMailer(c.SMTPSettings())
	case "mailgun":
		return mail.NewMailgunMailer(c.MailgunSettings())
	default:
		return nil, fmt.Errorf("email: unsupported provider %q", c.Provider)
	}
}
