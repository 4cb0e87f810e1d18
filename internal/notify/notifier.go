package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/socialink/pkg/logger"
	"github.com/charlesng35/socialink/pkg/mail"
)

// Email is a rendered notification.
type Email struct {
	Subject string
	Body    string
}

// Sender delivers a single notification email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notifier sends plain text notifications through a mailer.
type Notifier struct {
	mailer mail.Mailer
}

// New wraps mailer. A nil mailer disables delivery.
func New(mailer mail.Mailer) *Notifier {
	if mailer == nil {
		mailer = mail.DisabledMailer{}
	}
	return &Notifier{mailer: mailer}
}

// Send delivers one email to a single recipient. Provider rejections come
// back as *mail.DeliveryError.
func (n *Notifier) Send(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("notify: recipient is required")
	}

	logger.WithModule("notify").Debug("sending email",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)

	err := n.mailer.Send(ctx, mail.Message{To: []string{to}, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("notify: send %q: %w", subject, err)
	}
	return nil
}

// SendEmail delivers a rendered Email through sender.
func SendEmail(ctx context.Context, sender Sender, to string, email Email) error {
	return sender.Send(ctx, to, email.Subject, email.Body)
}

// RegistrationEmail asks a new user to confirm their address.
func RegistrationEmail(email, confirmationURL string) Email {
	return Email{
		Subject: "Successfully signed Up",
		Body: fmt.Sprintf(
			"Hi %s! You have successfully signed up to the socialink REST API. "+
				"Please confirm your email by clicking on the following link: %s",
			email, confirmationURL,
		),
	}
}

// EnrichmentFailedEmail tells a user their post image could not be generated.
func EnrichmentFailedEmail(email string) Email {
	return Email{
		Subject: "Error generating image",
		Body:    fmt.Sprintf("Hi %s! Unfortunately there was an error generating an image for your post.", email),
	}
}

// EnrichmentCompletedEmail links the user to the post that received an image.
func EnrichmentCompletedEmail(email, postURL string) Email {
	return Email{
		Subject: "Image generation completed",
		Body: fmt.Sprintf(
			"Hi %s! Your image has been generated and added to your post successfully. "+
				"Please click on the following link to view it: %s",
			email, postURL,
		),
	}
}
