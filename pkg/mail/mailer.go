package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrDeliveryDisabled signals that outbound email is switched off via configuration.
var ErrDeliveryDisabled = errors.New("mail: delivery disabled")

// Message represents an outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError reports that the mail provider refused a message.
// StatusCode is the provider HTTP status or the SMTP reply code.
type DeliveryError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	msg := fmt.Sprintf("%s: delivery failed with status code %d", e.Provider, e.StatusCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// DisabledMailer drops every message and reports ErrDeliveryDisabled.
type DisabledMailer struct{}

// Send implements Mailer.
func (DisabledMailer) Send(context.Context, Message) error {
	return ErrDeliveryDisabled
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}
