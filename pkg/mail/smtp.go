package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// SMTPSettings configure the SMTP mailer. UseTLS selects implicit TLS
// (port 465 style); otherwise STARTTLS is used when the relay offers it.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

type dialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

type smtpMailer struct {
	cfg  SMTPSettings
	dial dialContextFunc
}

// NewSMTPMailer builds a Mailer that delivers through an SMTP relay.
func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	switch {
	case strings.TrimSpace(cfg.Host) == "":
		return nil, errors.New("smtp: host is required")
	case cfg.Port == 0:
		return nil, errors.New("smtp: port is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	m := &smtpMailer{cfg: cfg}
	netDialer := &net.Dialer{Timeout: cfg.Timeout}
	if cfg.UseTLS {
		tlsDialer := &tls.Dialer{NetDialer: netDialer, Config: m.tlsConfig()}
		m.dial = tlsDialer.DialContext
	} else {
		m.dial = netDialer.DialContext
	}
	return m, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	from, recipients, err := m.envelope(msg)
	if err != nil {
		return err
	}

	address := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dial(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("smtp: dial %s: %w", address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(m.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp: greeting: %w", err)
	}
	defer client.Close()

	if err := m.secure(client); err != nil {
		return err
	}

	if err := client.Mail(from); err != nil {
		return smtpDeliveryError("mail from", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return smtpDeliveryError("rcpt to "+rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return smtpDeliveryError("data", err)
	}
	if _, err := w.Write([]byte(formatMessage(from, recipients, msg.Subject, msg.Body))); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return smtpDeliveryError("end of data", err)
	}

	return client.Quit()
}

// envelope resolves the sender and deduplicated recipients of msg.
func (m *smtpMailer) envelope(msg Message) (string, []string, error) {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return "", nil, errors.New("smtp: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}
	if from == "" {
		return "", nil, errors.New("smtp: sender address is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return "", nil, fmt.Errorf("smtp: invalid from address: %w", err)
	}
	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return "", nil, fmt.Errorf("smtp: invalid recipient address %q: %w", rcpt, err)
		}
	}
	return from, recipients, nil
}

// secure upgrades a plaintext session with STARTTLS when offered and
// authenticates when credentials are configured.
func (m *smtpMailer) secure(client *smtp.Client) error {
	if !m.cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(m.tlsConfig()); err != nil {
				return fmt.Errorf("smtp: starttls: %w", err)
			}
		}
	}

	if strings.TrimSpace(m.cfg.Username) == "" {
		return nil
	}
	if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
		return smtpDeliveryError("auth", err)
	}
	return nil
}

func (m *smtpMailer) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
}

// smtpDeliveryError lifts SMTP reply codes into a DeliveryError.
func smtpDeliveryError(stage string, err error) error {
	var reply *textproto.Error
	if errors.As(err, &reply) {
		return &DeliveryError{Provider: "smtp", StatusCode: reply.Code, Err: fmt.Errorf("%s: %w", stage, err)}
	}
	return fmt.Errorf("smtp: %s: %w", stage, err)
}

func formatMessage(from string, to []string, subject, body string) string {
	subject = strings.NewReplacer("\r", " ", "\n", " ").Replace(subject)

	var b strings.Builder
	header := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	header("From", from)
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", time.Now().UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")

	body = strings.ReplaceAll(body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.String()
}
