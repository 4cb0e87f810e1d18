package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultMailgunBaseURL = "https://api.mailgun.net"

// MailgunSettings configure delivery through the Mailgun messages API.
type MailgunSettings struct {
	Domain     string
	APIKey     string
	From       string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type mailgunMailer struct {
	cfg    MailgunSettings
	client *http.Client
}

// NewMailgunMailer builds a Mailer backed by the Mailgun HTTP API.
func NewMailgunMailer(cfg MailgunSettings) (Mailer, error) {
	cfg.Domain = strings.TrimSpace(cfg.Domain)
	if cfg.Domain == "" {
		return nil, errors.New("mailgun: domain is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mailgun: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultMailgunBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.From == "" {
		cfg.From = fmt.Sprintf("socialink <mailgun@%s>", cfg.Domain)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &mailgunMailer{cfg: cfg, client: client}, nil
}

func (m *mailgunMailer) Send(ctx context.Context, msg Message) error {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return errors.New("mailgun: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}

	form := url.Values{
		"from":    {from},
		"to":      recipients,
		"subject": {msg.Subject},
		"text":    {msg.Body},
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", m.cfg.BaseURL, url.PathEscape(m.cfg.Domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("mailgun: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{Provider: "mailgun", StatusCode: resp.StatusCode}
	}
	return nil
}
